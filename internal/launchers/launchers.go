package launchers

import "github.com/0xADE/nas-game/internal/catalog"

// Launcher names as stored in catalog entries
const (
	Steam  = "Steam"
	Epic   = "Epic Games"
	GOG    = "GOG"
	Heroic = "Heroic"
	Lutris = "Lutris"
)

// Discovered is one game found on the local machine
type Discovered struct {
	Name   string // Display name, used for cover lookups
	Source string // File the game was read from
	Entry  catalog.Entry
}

func discovered(name, source, launcher, id string) Discovered {
	return Discovered{
		Name:   name,
		Source: source,
		Entry:  catalog.NewEntry(nil, catalog.LauncherAssociation{Name: launcher, ExternalID: id}),
	}
}

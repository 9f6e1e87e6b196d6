package catalog

import (
	"strconv"
	"strings"
)

// LauncherAssociation records that a title is owned on a given launcher
type LauncherAssociation struct {
	Name       string `json:"name"`        // Launcher name, e.g. "Steam"
	ExternalID string `json:"external_id"` // Launcher-specific id
}

// Entry is one game in the catalog. An entry with no launchers and no
// catalog id is a valid placeholder.
type Entry struct {
	Launchers         []LauncherAssociation `json:"launchers"`
	ExternalCatalogID *string               `json:"external_catalog_id"`
}

// Catalog is the persisted form of the collection
type Catalog struct {
	Entries []Entry `json:"collection"`
}

// NewEntry builds an entry with a copy of the given launchers
func NewEntry(catalogID *string, launchers ...LauncherAssociation) Entry {
	e := Entry{Launchers: append([]LauncherAssociation{}, launchers...)}
	if catalogID != nil {
		id := *catalogID
		e.ExternalCatalogID = &id
	}
	return e
}

// Equal reports field-by-field equality, launcher order included.
// A nil and an empty launcher list are equal.
func (e Entry) Equal(other Entry) bool {
	if len(e.Launchers) != len(other.Launchers) {
		return false
	}
	for i := range e.Launchers {
		if e.Launchers[i] != other.Launchers[i] {
			return false
		}
	}
	switch {
	case e.ExternalCatalogID == nil && other.ExternalCatalogID == nil:
		return true
	case e.ExternalCatalogID == nil || other.ExternalCatalogID == nil:
		return false
	default:
		return *e.ExternalCatalogID == *other.ExternalCatalogID
	}
}

// Clone returns a deep copy with a non-nil launcher list
func (e Entry) Clone() Entry {
	return NewEntry(e.ExternalCatalogID, e.Launchers...)
}

func (e Entry) String() string {
	var b strings.Builder
	b.WriteString("{launchers: [")
	for i, l := range e.Launchers {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(l.Name)
		b.WriteString(":")
		b.WriteString(l.ExternalID)
	}
	b.WriteString("], external_catalog_id: ")
	if e.ExternalCatalogID == nil {
		b.WriteString("none")
	} else {
		b.WriteString(*e.ExternalCatalogID)
	}
	b.WriteString("}")
	return b.String()
}

// Dump renders every entry on its own line in insertion order
func (c Catalog) Dump() string {
	var b strings.Builder
	for i, e := range c.Entries {
		b.WriteString(strconv.Itoa(i))
		b.WriteString(" ")
		b.WriteString(e.String())
		b.WriteString("\n")
	}
	return b.String()
}

// Clone returns a fully independent copy
func (c Catalog) Clone() Catalog {
	out := Catalog{Entries: make([]Entry, len(c.Entries))}
	for i, e := range c.Entries {
		out.Entries[i] = e.Clone()
	}
	return out
}

package launchers

import (
	"context"
	"sync"

	"github.com/0xADE/nas-game/internal/logging"
	"github.com/sirupsen/logrus"
)

// Sources selects what a Scan looks at. Empty fields disable that source.
type Sources struct {
	SteamRoot   string
	DesktopDirs []string
}

// Scanner runs the launcher scans concurrently and merges their results
type Scanner struct {
	log *logrus.Entry
}

func NewScanner(log logrus.FieldLogger) *Scanner {
	return &Scanner{log: logging.Component(log, "launchers")}
}

// Scan returns every discovered game, Steam first, with duplicates of the
// same launcher association dropped.
func (s *Scanner) Scan(ctx context.Context, src Sources) ([]Discovered, error) {
	steamChan := make(chan Discovered, 100)
	desktopChan := make(chan Discovered, 100)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if src.SteamRoot == "" {
			close(steamChan)
			return
		}
		if err := ScanSteam(src.SteamRoot, steamChan); err != nil {
			s.log.WithError(err).WithField("root", src.SteamRoot).Warn("steam scan incomplete")
		}
	}()
	go func() {
		defer wg.Done()
		if len(src.DesktopDirs) == 0 {
			close(desktopChan)
			return
		}
		if err := ScanDesktop(src.DesktopDirs, desktopChan); err != nil {
			s.log.WithError(err).Warn("desktop scan incomplete")
		}
	}()

	var steam, desk []Discovered
	for steamChan != nil || desktopChan != nil {
		select {
		case <-ctx.Done():
			go drain(steamChan)
			go drain(desktopChan)
			wg.Wait()
			return nil, ctx.Err()
		case d, ok := <-steamChan:
			if !ok {
				steamChan = nil
				continue
			}
			steam = append(steam, d)
		case d, ok := <-desktopChan:
			if !ok {
				desktopChan = nil
				continue
			}
			desk = append(desk, d)
		}
	}
	wg.Wait()

	out := dedupe(append(steam, desk...))
	s.log.WithFields(logrus.Fields{
		"steam":   len(steam),
		"desktop": len(desk),
		"unique":  len(out),
	}).Info("launcher scan finished")
	return out, nil
}

func drain(ch <-chan Discovered) {
	if ch == nil {
		return
	}
	for range ch {
	}
}

func dedupe(found []Discovered) []Discovered {
	out := make([]Discovered, 0, len(found))
	for _, d := range found {
		dup := false
		for _, kept := range out {
			if kept.Entry.Equal(d.Entry) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, d)
		}
	}
	return out
}

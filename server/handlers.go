package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/0xADE/nas-game/internal/apperr"
	"github.com/0xADE/nas-game/internal/catalog"
	"github.com/0xADE/nas-game/internal/fetchindex"
	"github.com/sirupsen/logrus"
)

const (
	maxBodyBytes    = 8 << 20
	msgShuttingDown = "server is shutting down"
)

// DownloadRequest is the /download_images body
type DownloadRequest struct {
	Games []string `json:"games"`
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.WithError(err).Warn("failed to write json response")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

func (s *Server) handleAlive(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "Is Alive")
}

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeText(w, http.StatusBadRequest, "failed to read body")
		return
	}
	writeText(w, http.StatusOK, string(body))
}

func (s *Server) handleAddDummy(w http.ResponseWriter, r *http.Request) {
	_, snap := s.store.AddPlaceholderSnapshot()
	writeText(w, http.StatusOK, snap.Dump())
}

func (s *Server) handleAddGames(w http.ResponseWriter, r *http.Request) {
	var entries []catalog.Entry
	if err := decodeJSON(r, &entries); err != nil {
		writeText(w, http.StatusBadRequest, "invalid game list: "+err.Error())
		return
	}
	added := s.store.Merge(entries)
	s.log.WithFields(logrus.Fields{
		"received": len(entries),
		"added":    added,
	}).Info("games merged into library")
	writeText(w, http.StatusOK, fmt.Sprintf("%d games have been added", added))
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleSaveLibrary(w http.ResponseWriter, r *http.Request) {
	path := s.layout.LibraryPath()
	snap := s.store.Snapshot()
	if err := catalog.Save(path, snap); err != nil {
		s.log.WithError(err).WithField("path", path).Error("failed to save library")
		switch apperr.KindOf(err) {
		case apperr.FailedToSerialize:
			writeText(w, http.StatusInternalServerError, "Failed to serialize")
		default:
			writeText(w, http.StatusInternalServerError, "Failed to write to file")
		}
		return
	}
	s.log.WithFields(logrus.Fields{"path": path, "entries": len(snap.Entries)}).Info("library saved")
	writeText(w, http.StatusOK, "library has been saved")
}

func (s *Server) handleDownloadImages(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeText(w, http.StatusBadRequest, "invalid download request: "+err.Error())
		return
	}
	if s.fetcher == nil {
		writeText(w, http.StatusServiceUnavailable, "image fetching is not configured")
		return
	}

	names := make([]string, 0, len(req.Games))
	for _, g := range req.Games {
		if g = strings.TrimSpace(g); g != "" {
			names = append(names, g)
		}
	}
	staging := s.layout.StagingDir()
	started := s.goJob("download_images", func(ctx context.Context) {
		res := s.fetcher.FetchMissing(ctx, names, staging)
		for name, err := range res.Failed {
			s.log.WithError(err).WithField("name", name).Warn("image download failed")
		}
	})
	if !started {
		writeText(w, http.StatusServiceUnavailable, msgShuttingDown)
		return
	}
	writeText(w, http.StatusOK, "Images have been downloaded")
}

func (s *Server) handleOptimizeImages(w http.ResponseWriter, r *http.Request) {
	if s.optimizer == nil {
		writeText(w, http.StatusServiceUnavailable, "image optimization is not configured")
		return
	}
	in, out := s.layout.StagingDir(), s.layout.OutputDir()
	started := s.goJob("optimize_images", func(ctx context.Context) {
		if _, err := s.optimizer.TranscodeAll(ctx, in, out); err != nil {
			s.log.WithError(err).Error("image optimization failed")
		}
	})
	if !started {
		writeText(w, http.StatusServiceUnavailable, msgShuttingDown)
		return
	}
	writeText(w, http.StatusOK, "Images are being optimized")
}

func (s *Server) handleImageStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		s.writeJSON(w, http.StatusOK, map[string]fetchindex.Record{})
		return
	}
	records, err := s.status.All()
	if err != nil {
		s.log.WithError(err).Error("failed to read fetch index")
		writeText(w, http.StatusInternalServerError, "Failed to read fetch index")
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

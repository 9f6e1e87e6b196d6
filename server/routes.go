package server

import (
	"net/http"
)

// Route binds one method and path to a handler
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Routes returns the API route table
func (s *Server) Routes() []Route {
	return []Route{
		{http.MethodGet, "/", s.handleAlive},
		{http.MethodPost, "/echo", s.handleEcho},
		{http.MethodGet, "/add_dummy", s.handleAddDummy},
		{http.MethodPost, "/games", s.handleAddGames},
		{http.MethodGet, "/games", s.handleListGames},
		{http.MethodPost, "/save_library", s.handleSaveLibrary},
		{http.MethodPost, "/download_images", s.handleDownloadImages},
		{http.MethodPost, "/optimize_images_server", s.handleOptimizeImages},
		{http.MethodGet, "/images/status", s.handleImageStatus},
	}
}

// Handler builds the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, r := range s.Routes() {
		path := r.Path
		if path == "/" {
			path = "/{$}"
		}
		mux.Handle(r.Method+" "+path, r.Handler)
	}
	return s.withRequestID(s.withLogging(s.withRecover(mux)))
}

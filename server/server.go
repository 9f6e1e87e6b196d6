package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/0xADE/nas-game/internal/assets"
	"github.com/0xADE/nas-game/internal/catalog"
	"github.com/0xADE/nas-game/internal/config"
	"github.com/0xADE/nas-game/internal/fetchindex"
	"github.com/0xADE/nas-game/internal/logging"
	"github.com/0xADE/nas-game/internal/transcode"
	"github.com/sirupsen/logrus"
)

// Fetcher downloads missing cover art into a staging directory
type Fetcher interface {
	FetchMissing(ctx context.Context, names []string, stagingDir string) assets.Result
}

// Optimizer transcodes a directory of images
type Optimizer interface {
	TranscodeAll(ctx context.Context, inDir, outDir string) (transcode.Report, error)
}

// FetchStatus exposes the recorded outcome of past fetches
type FetchStatus interface {
	All() (map[string]fetchindex.Record, error)
}

// Options holds everything a Server shares between requests
type Options struct {
	Layout    config.Layout
	Store     *catalog.Store
	Fetcher   Fetcher
	Optimizer Optimizer
	Status    FetchStatus
	Logger    logrus.FieldLogger
}

// Server serves the catalog HTTP API
type Server struct {
	addr      string
	layout    config.Layout
	store     *catalog.Store
	fetcher   Fetcher
	optimizer Optimizer
	status    FetchStatus
	log       *logrus.Entry

	httpServer *http.Server
	mu         sync.RWMutex
	listener   net.Listener
	running    bool

	// jobsMu orders jobs.Add against the cancel in Stop
	jobsMu     sync.Mutex
	jobsCtx    context.Context
	cancelJobs context.CancelFunc
	jobs       sync.WaitGroup
}

// NewServer creates a server that will listen on addr
func NewServer(addr string, opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("server requires a catalog store")
	}
	jobsCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:       addr,
		layout:     opts.Layout,
		store:      opts.Store,
		fetcher:    opts.Fetcher,
		optimizer:  opts.Optimizer,
		status:     opts.Status,
		log:        logging.Component(opts.Logger, "server"),
		jobsCtx:    jobsCtx,
		cancelJobs: cancel,
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Start listens and serves until ctx is done or Stop is called
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	s.log.WithField("address", listener.Addr().String()).Info("server listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Addr returns the bound address once Start is listening
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// IsRunning returns whether the server is accepting connections
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Stop shuts the listener down, cancels background jobs and waits for them
func (s *Server) Stop() error {
	s.mu.Lock()
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()

	var err error
	if wasRunning {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.httpServer.Shutdown(shutdownCtx)
	}
	s.jobsMu.Lock()
	s.cancelJobs()
	s.jobsMu.Unlock()
	s.jobs.Wait()
	return err
}

// WaitJobs blocks until every background job started so far has finished.
// Only call it once no request can start another job, as tests do.
func (s *Server) WaitJobs() {
	s.jobs.Wait()
}

// goJob runs fn detached from the request on the server's job context.
// It reports false without running fn once Stop has begun.
func (s *Server) goJob(name string, fn func(ctx context.Context)) bool {
	s.jobsMu.Lock()
	if s.jobsCtx.Err() != nil {
		s.jobsMu.Unlock()
		return false
	}
	s.jobs.Add(1)
	s.jobsMu.Unlock()

	go func() {
		defer s.jobs.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.WithField("job", name).WithField("panic", r).Error("background job panicked")
			}
		}()
		start := time.Now()
		fn(s.jobsCtx)
		s.log.WithField("job", name).WithField("duration", time.Since(start).String()).Debug("background job finished")
	}()
	return true
}

package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/0xADE/nas-game/internal/apperr"
	"github.com/0xADE/nas-game/internal/fetchindex"
	"github.com/0xADE/nas-game/internal/fileutil"
	"github.com/0xADE/nas-game/internal/logging"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultConcurrency = 5
	DefaultTimeout     = 30 * time.Second

	maxImageBytes = 32 << 20
)

// CoverSource resolves a game name to a downloadable cover URL
type CoverSource interface {
	CoverURL(ctx context.Context, name string) (string, error)
}

// Recorder receives the outcome of every name handled by a fetch
type Recorder interface {
	Record(name string, status fetchindex.Status, cause error) error
}

// Result summarizes one FetchMissing call
type Result struct {
	Fetched []string
	Skipped []string
	Failed  map[string]error
}

// Fetcher downloads missing covers with a bounded number of tasks in flight
type Fetcher struct {
	source      CoverSource
	httpClient  *http.Client
	concurrency int64
	timeout     time.Duration
	recorder    Recorder
	log         *logrus.Entry
}

// Option configures a Fetcher
type Option func(*Fetcher)

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// WithConcurrency caps the tasks in flight; values below 1 are ignored
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = int64(n)
		}
	}
}

// WithTimeout bounds each task, search and download together
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(f *Fetcher) {
		f.recorder = r
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(f *Fetcher) {
		f.log = logging.Component(log, "assets")
	}
}

// NewFetcher creates a Fetcher resolving covers through source
func NewFetcher(source CoverSource, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:      source,
		httpClient:  &http.Client{},
		concurrency: DefaultConcurrency,
		timeout:     DefaultTimeout,
		log:         logging.Component(nil, "assets"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchMissing downloads a cover for every name that has no image in
// stagingDir yet. Tasks start in input order; a failing task never cancels
// its siblings. Cancelling ctx stops dispatch of the remaining names.
func (f *Fetcher) FetchMissing(ctx context.Context, names []string, stagingDir string) Result {
	res := Result{Failed: make(map[string]error)}
	// mu guards res; running tasks write to it while dispatch continues
	var mu sync.Mutex
	fail := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		res.Failed[name] = err
	}

	sem := semaphore.NewWeighted(f.concurrency)
	var wg conc.WaitGroup
	seen := make(map[string]struct{}, len(names))

	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		if err := ValidateName(name); err != nil {
			fail(name, err)
			f.record(name, fetchindex.StatusFailed, err)
			continue
		}
		if ImageExists(stagingDir, name) {
			mu.Lock()
			res.Skipped = append(res.Skipped, name)
			mu.Unlock()
			f.record(name, fetchindex.StatusSkipped, nil)
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			fail(name, err)
			f.record(name, fetchindex.StatusFailed, err)
			continue
		}

		wg.Go(func() {
			defer sem.Release(1)

			var err error
			var pc panics.Catcher
			pc.Try(func() { err = f.fetchOne(ctx, name, stagingDir) })
			if r := pc.Recovered(); r != nil {
				err = r.AsError()
			}

			if err != nil {
				fail(name, err)
				f.log.WithError(err).WithField("name", name).Warn("cover fetch failed")
				f.record(name, fetchindex.StatusFailed, err)
				return
			}
			mu.Lock()
			res.Fetched = append(res.Fetched, name)
			mu.Unlock()
			f.record(name, fetchindex.StatusFetched, nil)
		})
	}
	wg.Wait()

	sort.Strings(res.Fetched)
	f.log.WithFields(logrus.Fields{
		"fetched": len(res.Fetched),
		"skipped": len(res.Skipped),
		"failed":  len(res.Failed),
	}).Info("cover fetch finished")
	return res
}

func (f *Fetcher) fetchOne(ctx context.Context, name, stagingDir string) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	coverURL, err := f.source.CoverURL(ctx, name)
	if err != nil {
		return fmt.Errorf("resolve cover for %q: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", coverURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %d", coverURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return fmt.Errorf("read %s: %w", coverURL, err)
	}
	if len(body) > maxImageBytes {
		return fmt.Errorf("download %s: image larger than %s", coverURL, humanize.Bytes(maxImageBytes))
	}

	ext := extFromURL(coverURL)
	if ext == "" {
		ext = strings.TrimPrefix(mimetype.Detect(body).Extension(), ".")
	}
	if !supportedExt(ext) {
		return fmt.Errorf("download %s: unsupported image type %q", coverURL, ext)
	}

	target := filepath.Join(stagingDir, name+"."+ext)
	if err := fileutil.WriteFileAtomic(target, body, 0o644); err != nil {
		return apperr.New(apperr.FailedToWrite, "store cover", target, err)
	}

	f.log.WithFields(logrus.Fields{
		"name": name,
		"file": filepath.Base(target),
		"size": humanize.Bytes(uint64(len(body))),
	}).Debug("cover stored")
	return nil
}

func (f *Fetcher) record(name string, status fetchindex.Status, cause error) {
	if f.recorder == nil {
		return
	}
	if err := f.recorder.Record(name, status, cause); err != nil {
		f.log.WithError(err).WithField("name", name).Warn("failed to record fetch outcome")
	}
}

func extFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if !supportedExt(ext) {
		return ""
	}
	return ext
}

package transcode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/0xADE/nas-game/internal/apperr"
	"github.com/0xADE/nas-game/internal/logging"
	"github.com/sirupsen/logrus"
)

const DefaultWorkers = 4

// ErrPoolClosed is returned for work submitted after Close
var ErrPoolClosed = errors.New("transcode pool closed")

// batchExtensions are the inputs picked up by a directory batch
var batchExtensions = map[string]bool{"png": true, "jpg": true, "webp": true}

type job struct {
	input  string
	outDir string
	size   *Size
	done   chan error
}

// Pool runs transcodes on a fixed set of worker goroutines
type Pool struct {
	jobs chan job
	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
	log  *logrus.Entry

	transcode func(input, outDir string, size *Size) error
}

// NewPool starts workers goroutines; values below 1 select DefaultWorkers
func NewPool(workers int, log logrus.FieldLogger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	p := &Pool{
		jobs:      make(chan job),
		quit:      make(chan struct{}),
		log:       logging.Component(log, "transcode"),
		transcode: Transcode,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case j := <-p.jobs:
			j.done <- p.run(j)
		}
	}
}

func (p *Pool) run(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperr.New(apperr.FailedToEncode, "transcode", j.input, errors.New("panic during transcode"))
			p.log.WithField("panic", r).WithField("file", j.input).Error("transcode panicked")
		}
	}()
	return p.transcode(j.input, j.outDir, j.size)
}

// Submit queues one transcode and returns a channel that receives its result
func (p *Pool) Submit(ctx context.Context, input, outDir string, size *Size) <-chan error {
	done := make(chan error, 1)
	j := job{input: input, outDir: outDir, size: size, done: done}
	select {
	case p.jobs <- j:
	case <-p.quit:
		done <- ErrPoolClosed
	case <-ctx.Done():
		done <- ctx.Err()
	}
	return done
}

// Do runs one transcode on the pool and waits for it
func (p *Pool) Do(ctx context.Context, input, outDir string, size *Size) error {
	select {
	case err := <-p.Submit(ctx, input, outDir, size):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Report summarizes a directory batch
type Report struct {
	Converted []string
	Ignored   []string
	Failed    map[string]error
}

// TranscodeAll converts every png, jpg and webp file in inDir to a
// DefaultSize WebP in outDir. Per-file failures are logged and skipped.
func (p *Pool) TranscodeAll(ctx context.Context, inDir, outDir string) (Report, error) {
	rep := Report{Failed: make(map[string]error)}

	entries, err := os.ReadDir(inDir)
	if err != nil {
		return rep, apperr.New(apperr.FailedToReadFile, "transcode batch", inDir, err)
	}

	size := DefaultSize
	pending := make(map[string]<-chan error)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(e.Name()), "."))
		if !batchExtensions[ext] {
			rep.Ignored = append(rep.Ignored, e.Name())
			continue
		}
		pending[e.Name()] = p.Submit(ctx, filepath.Join(inDir, e.Name()), outDir, &size)
	}

	for name, done := range pending {
		if err := <-done; err != nil {
			rep.Failed[name] = err
			p.log.WithError(err).WithField("file", name).Warn("skipping image")
			continue
		}
		rep.Converted = append(rep.Converted, name)
	}
	sort.Strings(rep.Converted)

	p.log.WithFields(logrus.Fields{
		"converted": len(rep.Converted),
		"failed":    len(rep.Failed),
		"ignored":   len(rep.Ignored),
	}).Info("image batch finished")
	return rep, nil
}

// Close stops the workers after the jobs they hold finish
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.quit)
		p.wg.Wait()
	})
}

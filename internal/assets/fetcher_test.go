package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xADE/nas-game/internal/apperr"
	"github.com/0xADE/nas-game/internal/fetchindex"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeSource struct {
	baseURL  string
	delay    time.Duration
	fail     map[string]error
	inFlight atomic.Int64
	peak     atomic.Int64

	mu     sync.Mutex
	called []string
}

func (s *fakeSource) CoverURL(ctx context.Context, name string) (string, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}

	s.mu.Lock()
	s.called = append(s.called, name)
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err, ok := s.fail[name]; ok {
		return "", err
	}
	return s.baseURL + "/covers/" + name, nil
}

func (s *fakeSource) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.called...)
}

type memRecorder struct {
	mu   sync.Mutex
	recs map[string]fetchindex.Status
}

func (r *memRecorder) Record(name string, status fetchindex.Status, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recs == nil {
		r.recs = make(map[string]fetchindex.Status)
	}
	r.recs[name] = status
	return nil
}

func pngBytes() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 6))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("ImageExists", func() {
	It("should find any supported extension", func() {
		dir := GinkgoT().TempDir()
		Expect(ImageExists(dir, "celeste")).To(BeFalse())
		Expect(os.WriteFile(filepath.Join(dir, "celeste.jpeg"), []byte("x"), 0o644)).To(Succeed())
		Expect(ImageExists(dir, "celeste")).To(BeTrue())
	})

	It("should ignore other extensions and directories", func() {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "celeste.gif"), []byte("x"), 0o644)).To(Succeed())
		Expect(os.Mkdir(filepath.Join(dir, "celeste.png"), 0o755)).To(Succeed())
		Expect(ImageExists(dir, "celeste")).To(BeFalse())
	})
})

var _ = Describe("ValidateName", func() {
	DescribeTable("rejected names",
		func(name string) {
			Expect(errors.Is(ValidateName(name), apperr.InvalidPath)).To(BeTrue())
		},
		Entry("empty", ""),
		Entry("blank", "   "),
		Entry("slash", "a/b"),
		Entry("backslash", `a\b`),
		Entry("parent", ".."),
		Entry("dot", "."),
	)

	It("should accept ordinary titles", func() {
		Expect(ValidateName("Hollow Knight: Silksong")).To(Succeed())
	})
})

var _ = Describe("Fetcher", func() {
	var (
		staging string
		srv     *httptest.Server
		source  *fakeSource
		cover   []byte
	)

	BeforeEach(func() {
		staging = GinkgoT().TempDir()
		cover = pngBytes()

		mux := http.NewServeMux()
		mux.HandleFunc("/covers/{name}", func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.PathValue("name"), "broken") {
				http.Error(w, "gone", http.StatusGone)
				return
			}
			_, _ = w.Write(cover)
		})
		mux.HandleFunc("/grid/abc.png", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(cover)
		})
		srv = httptest.NewServer(mux)
		DeferCleanup(srv.Close)

		source = &fakeSource{baseURL: srv.URL}
	})

	It("should never exceed the concurrency ceiling", func() {
		source.delay = 50 * time.Millisecond
		names := make([]string, 12)
		for i := range names {
			names[i] = fmt.Sprintf("game-%02d", i)
		}

		res := NewFetcher(source).FetchMissing(context.Background(), names, staging)

		Expect(res.Failed).To(BeEmpty())
		Expect(res.Fetched).To(HaveLen(12))
		Expect(source.peak.Load()).To(BeNumerically("<=", DefaultConcurrency))
		Expect(source.peak.Load()).To(BeNumerically(">", 1))
	})

	It("should dispatch in input order", func() {
		names := []string{"c", "a", "b"}
		NewFetcher(source, WithConcurrency(1)).FetchMissing(context.Background(), names, staging)
		Expect(source.calls()).To(Equal(names))
	})

	It("should skip names that already have an image", func() {
		Expect(os.WriteFile(filepath.Join(staging, "celeste.webp"), []byte("x"), 0o644)).To(Succeed())
		rec := &memRecorder{}

		res := NewFetcher(source, WithRecorder(rec)).
			FetchMissing(context.Background(), []string{"celeste", "hades"}, staging)

		Expect(res.Skipped).To(Equal([]string{"celeste"}))
		Expect(res.Fetched).To(Equal([]string{"hades"}))
		Expect(source.calls()).To(Equal([]string{"hades"}))
		Expect(rec.recs).To(HaveKeyWithValue("celeste", fetchindex.StatusSkipped))
		Expect(rec.recs).To(HaveKeyWithValue("hades", fetchindex.StatusFetched))
	})

	It("should sniff the extension when the url has none", func() {
		res := NewFetcher(source).FetchMissing(context.Background(), []string{"hades"}, staging)
		Expect(res.Fetched).To(ConsistOf("hades"))

		data, err := os.ReadFile(filepath.Join(staging, "hades.png"))
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(cover))
	})

	It("should keep the extension from the url", func() {
		res := NewFetcher(&staticSource{url: srv.URL + "/grid/abc.png"}).
			FetchMissing(context.Background(), []string{"celeste"}, staging)
		Expect(res.Failed).To(BeEmpty())
		Expect(filepath.Join(staging, "celeste.png")).To(BeAnExistingFile())
	})

	It("should isolate failures", func() {
		source.fail = map[string]error{"unknown": errors.New("no results")}
		rec := &memRecorder{}

		res := NewFetcher(source, WithRecorder(rec)).
			FetchMissing(context.Background(), []string{"unknown", "broken", "hades", "../etc"}, staging)

		Expect(res.Fetched).To(Equal([]string{"hades"}))
		Expect(res.Failed).To(HaveKey("unknown"))
		Expect(res.Failed).To(HaveKey("broken"))
		Expect(errors.Is(res.Failed["../etc"], apperr.InvalidPath)).To(BeTrue())
		Expect(source.calls()).NotTo(ContainElement("../etc"))
		Expect(rec.recs).To(HaveKeyWithValue("broken", fetchindex.StatusFailed))
		Expect(filepath.Join(staging, "broken.png")).NotTo(BeAnExistingFile())
	})

	It("should collect failures from dispatch and running tasks together", func() {
		var names, broken, invalid []string
		for i := 0; i < 40; i++ {
			b := fmt.Sprintf("broken-%02d", i)
			v := fmt.Sprintf("bad/%d", i)
			broken = append(broken, b)
			invalid = append(invalid, v)
			names = append(names, b, v)
		}

		res := NewFetcher(source, WithConcurrency(5)).FetchMissing(context.Background(), names, staging)

		Expect(res.Fetched).To(BeEmpty())
		Expect(res.Failed).To(HaveLen(80))
		for _, name := range broken {
			Expect(res.Failed).To(HaveKey(name))
		}
		for _, name := range invalid {
			Expect(errors.Is(res.Failed[name], apperr.InvalidPath)).To(BeTrue(), name)
		}
	})

	It("should fail tasks that exceed the timeout", func() {
		source.delay = time.Second
		res := NewFetcher(source, WithTimeout(20*time.Millisecond)).
			FetchMissing(context.Background(), []string{"slow"}, staging)
		Expect(errors.Is(res.Failed["slow"], context.DeadlineExceeded)).To(BeTrue())
	})

	It("should recover a panicking source", func() {
		res := NewFetcher(panicSource{}).FetchMissing(context.Background(), []string{"boom", "boom2"}, staging)
		Expect(res.Failed).To(HaveLen(2))
	})
})

type staticSource struct{ url string }

func (s *staticSource) CoverURL(context.Context, string) (string, error) { return s.url, nil }

type panicSource struct{}

func (panicSource) CoverURL(context.Context, string) (string, error) { panic("source exploded") }

var _ = Describe("IsImageFile", func() {
	It("should match the cached extensions case-insensitively", func() {
		Expect(IsImageFile("celeste.PNG")).To(BeTrue())
		Expect(IsImageFile("celeste.jpeg")).To(BeTrue())
		Expect(IsImageFile("notes.txt")).To(BeFalse())
		Expect(IsImageFile("noext")).To(BeFalse())
	})
})

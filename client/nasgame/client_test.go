package nasgame

import (
	"context"
	"errors"
	"net/http/httptest"

	"github.com/0xADE/nas-game/internal/catalog"
	"github.com/0xADE/nas-game/internal/config"
	"github.com/0xADE/nas-game/internal/logging"
	"github.com/0xADE/nas-game/server"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Client", func() {
	var (
		c     *Client
		store *catalog.Store
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		layout := config.NewLayout(GinkgoT().TempDir())
		Expect(layout.Prepare()).To(Succeed())
		store = catalog.NewStore(catalog.Catalog{})

		srv, err := server.NewServer("127.0.0.1:0", server.Options{
			Layout: layout,
			Store:  store,
			Logger: logging.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
		api := httptest.NewServer(srv.Handler())
		DeferCleanup(api.Close)

		c, err = NewClient(api.URL + "/")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should trim the trailing slash", func() {
		Expect(c.BaseURL()).NotTo(HaveSuffix("/"))
	})

	It("should ping and echo", func() {
		Expect(c.Ping(ctx)).To(Equal("Is Alive"))
		Expect(c.Echo(ctx, "hi")).To(Equal("hi"))
	})

	It("should add games and read them back", func() {
		entry := catalog.NewEntry(nil, catalog.LauncherAssociation{Name: "Steam", ExternalID: "504230"})
		Expect(c.AddGames(ctx, []catalog.Entry{entry, entry})).To(Equal("1 games have been added"))
		Expect(c.AddDummy(ctx)).To(ContainSubstring("Steam:504230"))

		cat, err := c.Games(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(cat.Entries).To(HaveLen(2))
		Expect(store.Len()).To(Equal(2))
	})

	It("should save the library", func() {
		Expect(c.SaveLibrary(ctx)).To(Equal("library has been saved"))
	})

	It("should surface non-200 answers as StatusError", func() {
		_, err := c.DownloadImages(ctx, []string{"celeste"})
		var se *StatusError
		Expect(errors.As(err, &se)).To(BeTrue())
		Expect(se.Code).To(Equal(503))
	})

	It("should read an empty image status", func() {
		st, err := c.ImageStatus(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(st).To(BeEmpty())
	})
})

var _ = Describe("resolveBaseURL", func() {
	It("should prefer the explicit value", func() {
		Expect(resolveBaseURL("nas.local:8080")).To(Equal("http://nas.local:8080"))
	})

	It("should read the environment", func() {
		GinkgoT().Setenv(ServerURLEnv, "http://10.0.0.2:53317/")
		Expect(resolveBaseURL("")).To(Equal("http://10.0.0.2:53317"))
	})

	It("should reject a url without host", func() {
		_, err := resolveBaseURL("http://")
		Expect(err).To(HaveOccurred())
	})
})

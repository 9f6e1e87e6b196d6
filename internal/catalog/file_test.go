package catalog

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/0xADE/nas-game/internal/apperr"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Load and Save", func() {
	var (
		dir  string
		path string
	)

	ginkgo.BeforeEach(func() {
		dir = ginkgo.GinkgoT().TempDir()
		path = filepath.Join(dir, "game_library.json")
	})

	ginkgo.It("should round trip a snapshot", func() {
		store := NewStore(Catalog{})
		store.Merge([]Entry{
			NewEntry(strPtr("5254"), LauncherAssociation{Name: "Steam", ExternalID: "504230"}),
			NewEntry(nil, LauncherAssociation{Name: "GOG", ExternalID: "1"}, LauncherAssociation{Name: "Epic Games", ExternalID: "x"}),
		})
		store.AddPlaceholder()

		Expect(Save(path, store.Snapshot())).To(Succeed())
		loaded, err := Load(path)
		Expect(err).NotTo(HaveOccurred())

		want := store.Snapshot()
		Expect(loaded.Entries).To(HaveLen(len(want.Entries)))
		for i := range want.Entries {
			Expect(loaded.Entries[i].Equal(want.Entries[i])).To(BeTrue())
		}
	})

	ginkgo.It("should use the collection document shape", func() {
		Expect(Save(path, Catalog{Entries: []Entry{NewEntry(nil)}})).To(Succeed())
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(MatchJSON(`{"collection":[{"launchers":[],"external_catalog_id":null}]}`))
	})

	ginkgo.It("should save an empty catalog as an empty array", func() {
		Expect(Save(path, Catalog{})).To(Succeed())
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(MatchJSON(`{"collection":[]}`))
	})

	ginkgo.It("should report a missing file as FailedToReadFile", func() {
		_, err := Load(path)
		Expect(errors.Is(err, apperr.FailedToReadFile)).To(BeTrue())
	})

	ginkgo.It("should report garbage as FailedToParse", func() {
		Expect(os.WriteFile(path, []byte("{not json"), 0o644)).To(Succeed())
		_, err := Load(path)
		Expect(errors.Is(err, apperr.FailedToParse)).To(BeTrue())
	})

	ginkgo.It("should fall back to an empty catalog", func() {
		c, err := LoadOrEmpty(path)
		Expect(err).To(HaveOccurred())
		Expect(c.Entries).To(BeEmpty())
	})

	ginkgo.It("should report an unwritable target as FailedToWrite", func() {
		err := Save(filepath.Join(dir, "missing", "lib.json"), Catalog{})
		Expect(errors.Is(err, apperr.FailedToWrite)).To(BeTrue())
	})

	ginkgo.It("should leave the previous file intact when the write fails", func() {
		Expect(Save(path, Catalog{Entries: []Entry{NewEntry(nil)}})).To(Succeed())
		Expect(os.Chmod(dir, 0o500)).To(Succeed())
		ginkgo.DeferCleanup(os.Chmod, dir, os.FileMode(0o755))

		if os.Geteuid() == 0 {
			ginkgo.Skip("root ignores directory permissions")
		}
		Expect(Save(path, Catalog{})).NotTo(Succeed())
		loaded, err := Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Entries).To(HaveLen(1))
	})
})

package catalog

import (
	"sync"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func strPtr(s string) *string { return &s }

var _ = ginkgo.Describe("Store", func() {
	var (
		store   *Store
		celeste Entry
		hollow  Entry
	)

	ginkgo.BeforeEach(func() {
		store = NewStore(Catalog{})
		celeste = NewEntry(strPtr("2762"), LauncherAssociation{Name: "Steam", ExternalID: "504230"})
		hollow = NewEntry(nil,
			LauncherAssociation{Name: "Steam", ExternalID: "367520"},
			LauncherAssociation{Name: "GOG", ExternalID: "1308320804"})
	})

	ginkgo.Describe("Merge", func() {
		ginkgo.It("should add an entry once and ignore it afterwards", func() {
			Expect(store.Merge([]Entry{celeste})).To(Equal(1))
			Expect(store.Merge([]Entry{celeste})).To(Equal(0))
			Expect(store.Len()).To(Equal(1))
		})

		ginkgo.It("should count only non-duplicates", func() {
			store.Merge([]Entry{celeste})
			added := store.Merge([]Entry{celeste, hollow, hollow, NewEntry(nil)})
			Expect(added).To(Equal(2))
			Expect(store.Len()).To(Equal(3))
		})

		ginkgo.It("should keep insertion order", func() {
			store.Merge([]Entry{hollow, celeste})
			snap := store.Snapshot()
			Expect(snap.Entries[0].Equal(hollow)).To(BeTrue())
			Expect(snap.Entries[1].Equal(celeste)).To(BeTrue())
		})

		ginkgo.It("should treat the same catalog id with other launchers as distinct", func() {
			other := NewEntry(strPtr("2762"), LauncherAssociation{Name: "Epic Games", ExternalID: "Salt"})
			Expect(store.Merge([]Entry{celeste, other})).To(Equal(2))
		})

		ginkgo.It("should treat launcher order as significant", func() {
			reversed := NewEntry(nil, hollow.Launchers[1], hollow.Launchers[0])
			Expect(store.Merge([]Entry{hollow, reversed})).To(Equal(2))
		})

		ginkgo.It("should equate nil and empty launcher lists", func() {
			Expect(store.Merge([]Entry{{Launchers: nil}, {Launchers: []LauncherAssociation{}}})).To(Equal(1))
		})

		ginkgo.It("should stay duplicate-free under concurrent merges", func() {
			var wg sync.WaitGroup
			total := make(chan int, 20)
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					total <- store.Merge([]Entry{celeste, hollow})
				}()
			}
			wg.Wait()
			close(total)

			sum := 0
			for n := range total {
				sum += n
			}
			Expect(sum).To(Equal(2))
			Expect(store.Len()).To(Equal(2))
		})
	})

	ginkgo.Describe("AddPlaceholder", func() {
		ginkgo.It("should append distinct placeholder entries each call", func() {
			store.AddPlaceholder()
			store.AddPlaceholder()
			snap := store.Snapshot()
			Expect(snap.Entries).To(HaveLen(2))
			for _, e := range snap.Entries {
				Expect(e.Launchers).To(BeEmpty())
				Expect(e.ExternalCatalogID).To(BeNil())
			}
		})

		ginkgo.It("should return the catalog including the new placeholder", func() {
			store.Merge([]Entry{celeste})
			_, snap := store.AddPlaceholderSnapshot()
			Expect(snap.Entries).To(HaveLen(2))
		})
	})

	ginkgo.Describe("Snapshot", func() {
		ginkgo.It("should be independent of later mutation", func() {
			store.Merge([]Entry{celeste})
			snap := store.Snapshot()
			snap.Entries[0].Launchers[0].ExternalID = "changed"
			*snap.Entries[0].ExternalCatalogID = "changed"

			again := store.Snapshot()
			Expect(again.Entries[0].Launchers[0].ExternalID).To(Equal("504230"))
			Expect(*again.Entries[0].ExternalCatalogID).To(Equal("2762"))
		})
	})

	ginkgo.Describe("Replace", func() {
		ginkgo.It("should swap the whole collection", func() {
			store.Merge([]Entry{celeste})
			store.Replace(Catalog{Entries: []Entry{hollow}})
			snap := store.Snapshot()
			Expect(snap.Entries).To(HaveLen(1))
			Expect(snap.Entries[0].Equal(hollow)).To(BeTrue())
		})
	})
})

var _ = ginkgo.Describe("Entry", func() {
	ginkgo.It("should render a readable dump", func() {
		c := Catalog{Entries: []Entry{
			NewEntry(strPtr("42"), LauncherAssociation{Name: "Steam", ExternalID: "1"}),
			NewEntry(nil),
		}}
		Expect(c.Dump()).To(Equal(
			"0 {launchers: [Steam:1], external_catalog_id: 42}\n" +
				"1 {launchers: [], external_catalog_id: none}\n"))
	})
})

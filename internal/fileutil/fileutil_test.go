package fileutil

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("WriteFileAtomic", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("should replace existing content without leaving temp files", func() {
		path := filepath.Join(dir, "library.json")
		Expect(WriteFileAtomic(path, []byte("first"), 0o644)).To(Succeed())
		Expect(WriteFileAtomic(path, []byte("second"), 0o644)).To(Succeed())

		got, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(got)).To(Equal("second"))

		entries, err := os.ReadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
	})

	It("should fail when the parent directory is missing", func() {
		path := filepath.Join(dir, "missing", "library.json")
		Expect(WriteFileAtomic(path, []byte("x"), 0o644)).NotTo(Succeed())
		Expect(path).NotTo(BeAnExistingFile())
	})
})

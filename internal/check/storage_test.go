package check

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		It("writes the file and returns its name", func() {
			savedPath, err := storage.Save("check.jpg", []byte("image-bytes"))
			Expect(err).NotTo(HaveOccurred())
			Expect(savedPath).To(Equal("check.jpg"))
			Expect(filepath.Join(tmpDir, "check.jpg")).To(BeAnExistingFile())
		})
	})

	Describe("Get", func() {
		When("the file exists", func() {
			BeforeEach(func() {
				_, err := storage.Save("check.jpg", []byte("image-bytes"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("returns the stored bytes", func() {
				data, err := storage.Get("check.jpg")
				Expect(err).NotTo(HaveOccurred())
				Expect(data).To(Equal([]byte("image-bytes")))
			})
		})

		When("the file does not exist", func() {
			It("returns an error", func() {
				_, err := storage.Get("missing.jpg")
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Delete", func() {
		BeforeEach(func() {
			_, err := storage.Save("check.jpg", []byte("image-bytes"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("removes the file", func() {
			Expect(storage.Delete("check.jpg")).To(Succeed())
			Expect(filepath.Join(tmpDir, "check.jpg")).NotTo(BeAnExistingFile())
		})

		It("errors when deleting twice", func() {
			Expect(storage.Delete("check.jpg")).To(Succeed())
			Expect(storage.Delete("check.jpg")).NotTo(Succeed())
		})
	})
})

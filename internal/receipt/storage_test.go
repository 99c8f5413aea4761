package receipt

import (
	"os"
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
		storage, err = NewLocalStorage(filepath.Join(tmpDir, "receipts"))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		var (
			filename  string
			data      []byte
			savedName string
			err       error
		)

		BeforeEach(func() {
			filename = "id_receipt.jpg"
			data = []byte("test file content")
		})

		JustBeforeEach(func() {
			savedName, err = storage.Save(filename, data)
		})

		When("saving succeeds", func() {
			It("should return the stored name", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(savedName).To(Equal("id_receipt.jpg"))
			})

			It("should write the file into the base directory", func() {
				content, readErr := os.ReadFile(filepath.Join(tmpDir, "receipts", "id_receipt.jpg"))
				Expect(readErr).NotTo(HaveOccurred())
				Expect(content).To(Equal(data))
			})
		})

		When("the name tries to leave the directory", func() {
			BeforeEach(func() {
				filename = "../escape.jpg"
			})

			It("should refuse it", func() {
				Expect(err).To(MatchError(ErrInvalidInput))
				_, statErr := os.Stat(filepath.Join(tmpDir, "escape.jpg"))
				Expect(os.IsNotExist(statErr)).To(BeTrue())
			})
		})
	})

	Describe("Get", func() {
		BeforeEach(func() {
			_, err := storage.Save("stored.png", []byte("png bytes"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should read a stored file", func() {
			data, err := storage.Get("stored.png")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("png bytes"))
		})

		It("should return ErrNotFound for a missing file", func() {
			_, err := storage.Get("missing.png")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("should refuse paths", func() {
			_, err := storage.Get("a/stored.png")
			Expect(err).To(MatchError(ErrInvalidInput))
		})
	})

	Describe("Delete", func() {
		BeforeEach(func() {
			_, err := storage.Save("stored.png", []byte("png bytes"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should remove the file", func() {
			Expect(storage.Delete("stored.png")).To(Succeed())
			_, err := storage.Get("stored.png")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("should fail for a missing file", func() {
			Expect(storage.Delete("missing.png")).NotTo(Succeed())
		})
	})
})

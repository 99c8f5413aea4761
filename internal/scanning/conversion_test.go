package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		img.Set(x, 1, color.Black)
	}
	return img
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, img, nil)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("toPNG", func() {
	var (
		input       []byte
		contentType string
		output      []byte
		err         error
	)

	JustBeforeEach(func() {
		output, err = toPNG(input, contentType)
	})

	When("the input is already a PNG", func() {
		BeforeEach(func() {
			input = encodePNG(testImage())
			contentType = "image/png"
		})

		It("should return it unchanged", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(output).To(Equal(input))
		})
	})

	When("a PNG is sent with a wrong content type", func() {
		BeforeEach(func() {
			input = encodePNG(testImage())
			contentType = "image/jpeg"
		})

		It("should trust the magic bytes", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(output).To(Equal(input))
		})
	})

	When("the input is a JPEG", func() {
		BeforeEach(func() {
			input = encodeJPEG(testImage())
			contentType = ""
		})

		It("should convert it to PNG", func() {
			Expect(err).NotTo(HaveOccurred())
			img, format, decodeErr := image.Decode(bytes.NewReader(output))
			Expect(decodeErr).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
			Expect(img.Bounds()).To(Equal(image.Rect(0, 0, 8, 4)))
		})
	})

	When("the input is not an image", func() {
		BeforeEach(func() {
			input = []byte("Total 100.00")
			contentType = "text/plain"
		})

		It("should return ErrUnsupportedFormat", func() {
			Expect(err).To(MatchError(ErrUnsupportedFormat))
		})
	})

	When("the input is empty", func() {
		BeforeEach(func() {
			input = nil
			contentType = "image/png"
		})

		It("should return ErrUnsupportedFormat", func() {
			Expect(err).To(MatchError(ErrUnsupportedFormat))
		})
	})
})

var _ = Describe("detectFormat", func() {
	It("should recognise HEIC by its ftyp brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
		Expect(detectFormat(data, "application/octet-stream")).To(Equal(formatHEIC))
	})

	It("should recognise HEIC by content type", func() {
		Expect(detectFormat([]byte("not really"), "image/HEIF")).To(Equal(formatHEIC))
	})

	It("should recognise PDF by its header", func() {
		Expect(detectFormat([]byte("%PDF-1.7\n..."), "")).To(Equal(formatPDF))
	})

	It("should recognise PDF by content type", func() {
		Expect(detectFormat([]byte("garbage"), "application/pdf")).To(Equal(formatPDF))
	})

	It("should leave JPEG to the standard decoders", func() {
		Expect(detectFormat(encodeJPEG(testImage()), "image/jpeg")).To(Equal(formatOther))
	})
})

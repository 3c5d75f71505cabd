package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// fragmentScanPrompt is the shared prompt used by all vision providers for
// reading check images
const fragmentScanPrompt = `You are performing OCR on a photographed store check (receipt). Read every visible text span in the image.

For EACH recognized line of text, report the text exactly as printed and its bounding box in pixel coordinates.

Return ONLY valid JSON: an array in this exact format:
[
  {"text": "Coffee", "box": {"top": 100, "bottom": 120, "left": 10, "right": 90}},
  {"text": "4.00", "box": {"top": 101, "bottom": 121, "left": 200, "right": 240}}
]

Important:
- Report item names and their prices as separate entries when they are printed apart
- Coordinates are integers, measured from the top-left corner of the image
- Do not merge separate columns into one entry
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// pdfToImage renders the first page of a PDF as a PNG image. Checks that
// arrive by email are usually single-page PDFs.
func pdfToImage(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// imageToPNG converts any supported image format to PNG
func imageToPNG(imageData []byte, mimeType string) ([]byte, error) {
	var img image.Image
	var err error

	// Phone photos are often HEIC/HEIF, which the standard image package
	// doesn't decode
	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			if strings.Contains(err.Error(), "unknown format") || strings.Contains(err.Error(), "unsupported") {
				return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, HEIC, HEIF, PDF. Error: %w", err)
			}
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// isHEICFormat checks for the HEIC/HEIF ftyp box signature
func isHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	if string(data[4:8]) == "ftyp" {
		brand := string(data[8:12])
		if brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1" {
			return true
		}
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return mimeType == "image/heic" || mimeType == "image/heif" ||
		strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// prepareImage normalizes the MIME type and converts PDFs and non-PNG images
// to PNG so every recognizer backend can consume the data the same way
func prepareImage(imageData []byte, contentType string) ([]byte, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = "image/jpeg" // default
	}

	if mimeType == "application/pdf" {
		pngData, err := pdfToImage(imageData)
		if err != nil {
			return nil, fmt.Errorf("converting PDF to image: %w", err)
		}
		return pngData, nil
	}

	if mimeType != "image/png" || isHEICFormat(imageData) {
		pngData, err := imageToPNG(imageData, mimeType)
		if err != nil {
			return nil, fmt.Errorf("converting image to PNG: %w", err)
		}
		return pngData, nil
	}

	return imageData, nil
}

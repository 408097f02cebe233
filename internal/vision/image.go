package vision

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/jpeg"
	"net/http"
	"os"
	"strings"

	"github.com/disintegration/imaging"
)

// imageMaxBytes is the largest re-encoded image that will be sent.
const imageMaxBytes = 5 * 1024 * 1024

// jpegQualities is the grid of quality levels tried when re-encoding.
var jpegQualities = []int{85, 75, 65, 55, 45, 35}

// Image is an encoded image ready to be attached to a chat request.
type Image struct {
	Path     string
	Data     []byte
	MIMEType string
}

// LoadImage reads the image at path. When maxSide > 0 the image is
// decoded, auto-oriented, fit inside maxSide x maxSide and re-encoded as
// JPEG; otherwise the bytes are sent as they are on disk.
func LoadImage(path string, maxSide int) (*Image, error) {
	if maxSide > 0 {
		data, err := sanitizeImage(path, maxSide)
		if err != nil {
			return nil, fmt.Errorf("prepare image %s: %w", path, err)
		}
		return &Image{Path: path, Data: data, MIMEType: "image/jpeg"}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return &Image{Path: path, Data: data, MIMEType: detectImageType(data)}, nil
}

// DataURI encodes the image as a base64 data URI.
func (i *Image) DataURI() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// detectImageType sniffs the content type, defaulting to image/jpeg for
// anything that does not look like an image.
func detectImageType(data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/jpeg"
}

// sanitizeImage resizes and compresses an image for vision input:
//  1. Decode (JPEG/PNG/GIF/BMP/TIFF)
//  2. Auto-orient via EXIF
//  3. Fit inside maxSide
//  4. Encode as JPEG, lowering quality until under imageMaxBytes
func sanitizeImage(path string, maxSide int) ([]byte, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxSide || h > maxSide {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}

	for _, quality := range jpegQualities {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg (q=%d): %w", quality, err)
		}
		if buf.Len() <= imageMaxBytes {
			return buf.Bytes(), nil
		}
	}
	return nil, fmt.Errorf("image too large even at lowest quality (dimensions: %dx%d)", w, h)
}

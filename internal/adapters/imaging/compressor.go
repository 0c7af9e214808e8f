package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
)

const (
	DefaultMaxDimension = 1920
	DefaultJPEGQuality  = 80
)

// Compressor уменьшает изображения до MaxDimension по большей стороне
// и перекодирует их. JPEG сохраняется с заданным качеством, PNG остается PNG.
type Compressor struct {
	MaxDimension uint
	JPEGQuality  int
}

func NewCompressor(maxDimension uint, quality int) *Compressor {
	if maxDimension == 0 {
		maxDimension = DefaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Compressor{MaxDimension: maxDimension, JPEGQuality: quality}
}

// Compress реализует ImageCompressorPort
func (c *Compressor) Compress(data []byte, contentType string) ([]byte, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", contentType, err)
	}

	bounds := img.Bounds()
	if uint(bounds.Dx()) > c.MaxDimension || uint(bounds.Dy()) > c.MaxDimension {
		img = resize.Thumbnail(c.MaxDimension, c.MaxDimension, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("encode png: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.JPEGQuality}); err != nil {
			return nil, "", fmt.Errorf("encode jpeg: %w", err)
		}
		return buf.Bytes(), "image/jpeg", nil
	}
}

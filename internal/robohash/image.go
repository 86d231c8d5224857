package robohash

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxImageBytes caps how much of a response body is read.
const MaxImageBytes = 10 << 20

// Image is a decoded avatar together with the bytes it came from.
type Image struct {
	Data    []byte
	Format  string
	Width   int
	Height  int
	Decoded image.Image
}

// Decode validates data as an image in any registered format.
func Decode(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty body", ErrInvalidImage)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	b := img.Bounds()
	return Image{
		Data:    data,
		Format:  format,
		Width:   b.Dx(),
		Height:  b.Dy(),
		Decoded: img,
	}, nil
}

// Extension is the file extension matching the image format.
func (i Image) Extension() string {
	switch i.Format {
	case "jpeg":
		return "jpg"
	case "":
		return "png"
	default:
		return i.Format
	}
}

// Empty reports whether the image carries no data.
func (i Image) Empty() bool {
	return len(i.Data) == 0
}

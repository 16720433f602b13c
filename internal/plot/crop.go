package plot

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// cropMargin is the padding kept around the content when cropping.
const cropMargin = 4

// CropPNG trims uniform background around a PNG image, keeping margin
// pixels on each side. The background is the color of the top-left pixel.
func CropPNG(data []byte, margin int) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode png: %w", err)
	}

	box := ContentBounds(img)
	if box.Empty() {
		return data, nil
	}
	box = box.Inset(-margin).Intersect(img.Bounds())
	if box == img.Bounds() {
		return data, nil
	}

	sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return data, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, sub.SubImage(box)); err != nil {
		return nil, fmt.Errorf("failed to encode cropped png: %w", err)
	}
	return buf.Bytes(), nil
}

// ContentBounds returns the smallest rectangle containing every pixel that
// differs from the top-left pixel.
func ContentBounds(img image.Image) image.Rectangle {
	b := img.Bounds()
	if b.Empty() {
		return image.Rectangle{}
	}
	br, bg, bb, ba := img.At(b.Min.X, b.Min.Y).RGBA()

	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if r == br && g == bg && bl == bb && a == ba {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if maxX < minX || maxY < minY {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

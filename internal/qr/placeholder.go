package qr

import (
	"bytes"
	"crypto/sha256"
	"image"
	"image/color"
	"image/png"
)

const placeholderGrid = 16

// Placeholder draws a deterministic checker pattern derived from the payload
// hash. It looks like a barcode but carries no data.
func Placeholder(payload string, size int) []byte {
	if size < placeholderGrid+4 {
		size = placeholderGrid + 4
	}

	sum := sha256.Sum256([]byte(payload))
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}

	cell := size / (placeholderGrid + 4)
	offset := (size - cell*placeholderGrid) / 2
	for row := 0; row < placeholderGrid; row++ {
		for col := 0; col < placeholderGrid; col++ {
			bit := row*placeholderGrid + col
			if sum[(bit/8)%len(sum)]>>(bit%8)&1 == 0 {
				continue
			}
			for y := 0; y < cell; y++ {
				for x := 0; x < cell; x++ {
					img.SetGray(offset+col*cell+x, offset+row*cell+y, color.Gray{Y: 0})
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

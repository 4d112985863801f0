package qr

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
)

var ErrUnreadable = errors.New("qr image unreadable")

// Decoder reads QR codes back out of PNG, JPEG or GIF images.
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) Decode(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_CHARACTER_SET: "UTF-8",
		gozxing.DecodeHintType_TRY_HARDER:    true,
	}

	reader := zxingqr.NewQRCodeReader()
	result, err := reader.Decode(bmp, hints)
	if err != nil {
		// second pass for clean generated codes the detector misses
		hints[gozxing.DecodeHintType_PURE_BARCODE] = true
		result, err = reader.Decode(bmp, hints)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
	}

	return result.GetText(), nil
}

func (d *Decoder) DecodeDataURL(dataURL string) (string, error) {
	header, encoded, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return "", fmt.Errorf("%w: not a base64 image data URL", ErrUnreadable)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	return d.Decode(data)
}

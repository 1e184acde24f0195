package qr

import (
	"fmt"
	"image"
	"strconv"

	"github.com/makiuchi-d/gozxing"
	zxqrcode "github.com/makiuchi-d/gozxing/qrcode"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/ports"
)

// Codec renders millisecond timestamps as QR codes and reads them back from
// canvas regions. Encoding uses the lowest error-correction level; the
// payload is short and the overlay is never occluded.
type Codec struct {
	reader gozxing.Reader
}

func NewCodec() *Codec {
	return &Codec{reader: zxqrcode.NewQRCodeReader()}
}

// Encode renders value as a square barcode image with side length size.
// Deterministic for a given value and size.
func (c *Codec) Encode(value string, size int) (image.Image, error) {
	if size <= 0 {
		return nil, fmt.Errorf("qr: size must be positive, got %d", size)
	}
	code, err := qrcode.New(value, qrcode.Low)
	if err != nil {
		return nil, fmt.Errorf("qr: encode %q: %w", value, err)
	}
	return code.Image(size), nil
}

// Decode locates exactly one barcode in region and returns its payload. The
// payload must parse as a number; anything else fails with ports.ErrDecode.
func (c *Codec) Decode(region image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(region)
	if err != nil {
		return "", fmt.Errorf("%w: bitmap: %v", ports.ErrDecode, err)
	}
	result, err := c.reader.Decode(bmp, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ports.ErrDecode, err)
	}
	text := result.GetText()
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		return "", fmt.Errorf("%w: payload %q is not numeric", ports.ErrDecode, text)
	}
	return text, nil
}

var _ ports.TimestampCodec = (*Codec)(nil)

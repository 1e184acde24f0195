package ports

import (
	"errors"
	"image"
)

// ErrDecode indicates no single valid barcode with a numeric payload was
// found in the inspected region.
var ErrDecode = errors.New("codec: decode failed")

// TimestampCodec renders a decimal timestamp string as a square 2D barcode
// and reads it back from a pixel region. Encode must be deterministic for a
// given value and size. Decode should be handed only the sub-region where
// the code was placed; its cost scales with region area.
type TimestampCodec interface {
	Encode(value string, size int) (image.Image, error)
	Decode(region image.Image) (string, error)
}

package export

import (
	"encoding/json"
	"fmt"

	"github.com/skip2/go-qrcode"

	"github.com/joyeues/wordflow-animation-lab/internal/system"
)

// DefaultQRSize is the side of the generated QR image in pixels.
const DefaultQRSize = 512

// QRPayload returns the compact JSON encoded into QR codes.
func QRPayload(data AnimationData) ([]byte, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("qr payload: %w", err)
	}
	return b, nil
}

// QRPNG encodes the animation data as a QR code PNG. Large timelines may not
// fit; go-qrcode reports that as an error.
func QRPNG(data AnimationData, size int) ([]byte, error) {
	payload, err := QRPayload(data)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = DefaultQRSize
	}

	png, err := qrcode.Encode(string(payload), qrcode.Low, size)
	if err != nil {
		return nil, fmt.Errorf("qr encode (%d bytes): %w", len(payload), err)
	}
	return png, nil
}

// WriteQR saves the QR code of data to path.
func WriteQR(path string, data AnimationData, size int) error {
	payload, err := QRPayload(data)
	if err != nil {
		return err
	}
	if size <= 0 {
		size = DefaultQRSize
	}
	if err := system.EnsureDir(path); err != nil {
		return err
	}

	if err := qrcode.WriteFile(string(payload), qrcode.Low, size, path); err != nil {
		return fmt.Errorf("qr write %s: %w", path, err)
	}
	return nil
}

package qr

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"

	"github.com/pairgate/pairgate/ports"
)

// ErrEmptyPayload is returned when the QR payload is empty or whitespace.
var ErrEmptyPayload = errors.New("qr payload cannot be empty")

const defaultSize = 256

// Generator renders raw QR payloads into PNG data URLs a browser displays
// inline.
type Generator struct {
	size int
}

// NewGenerator returns a renderer producing size x size pixel images; size
// defaults to 256 when non-positive.
func NewGenerator(size int) *Generator {
	if size <= 0 {
		size = defaultSize
	}
	return &Generator{size: size}
}

// Render encodes the payload into a PNG and wraps it as a base64 data URL.
func (g *Generator) Render(payload string) (string, error) {
	if strings.TrimSpace(payload) == "" {
		return "", ErrEmptyPayload
	}
	png, err := skipqrcode.Encode(payload, skipqrcode.Medium, g.size)
	if err != nil {
		return "", fmt.Errorf("encoding qr image: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

var _ ports.QRRenderer = (*Generator)(nil)

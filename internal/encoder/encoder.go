// Package encoder renders QR symbols as self-contained PNG data URLs.
package encoder

import (
	"encoding/base64"
	"fmt"
	"image/color"

	"github.com/qr-codes-api/internal/domain"
	qrcode "github.com/skip2/go-qrcode"
)

// Symbol geometry and palette. These match the generated images the rest of
// the system stores, so identical content always produces identical payloads.
const (
	imageSize     = 400
	dataURLPrefix = "data:image/png;base64,"
)

var (
	foreground = color.RGBA{R: 0x4F, G: 0x46, B: 0xE5, A: 0xFF} // indigo
	background = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

// Encode renders content into a 400x400 two-colour PNG and returns it as a
// data URL. Content must be non-empty; content beyond the symbol capacity
// fails with domain.ErrEncodingFailed.
func Encode(content string) (string, error) {
	if content == "" {
		return "", fmt.Errorf("content must not be empty: %w", domain.ErrBadRequest)
	}
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("build symbol: %v: %w", err, domain.ErrEncodingFailed)
	}
	q.ForegroundColor = foreground
	q.BackgroundColor = background
	png, err := q.PNG(imageSize)
	if err != nil {
		return "", fmt.Errorf("render symbol: %v: %w", err, domain.ErrEncodingFailed)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}

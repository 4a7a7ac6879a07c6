// Package qrcode renders QR codes and the check-in link they carry.
package qrcode

import (
	"errors"
	"net/url"
	"strings"

	qr "github.com/skip2/go-qrcode"
)

// Image edge lengths in pixels.
const (
	DefaultSize = 320
	MinSize     = 64
	MaxSize     = 1024
)

// MaxPayloadSize bounds the bytes a single code may carry.
const MaxPayloadSize = 1024

// CheckInPath is the route the day QR link points at.
const CheckInPath = "/checkin"

// ErrPayload is returned for an empty or oversized payload.
var ErrPayload = errors.New("qr payload must be 1..1024 bytes")

// PNG encodes payload as a square PNG of size pixels.
func PNG(payload string, size int) ([]byte, error) {
	if payload == "" || len(payload) > MaxPayloadSize {
		return nil, ErrPayload
	}
	return qr.Encode(payload, qr.Medium, ClampSize(size))
}

// ClampSize keeps size within [MinSize, MaxSize], using DefaultSize for zero.
func ClampSize(size int) int {
	switch {
	case size == 0:
		return DefaultSize
	case size < MinSize:
		return MinSize
	case size > MaxSize:
		return MaxSize
	}
	return size
}

// CheckInURL builds the link a phone opens after scanning the day QR.
func CheckInURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + CheckInPath + "?token=" + url.QueryEscape(token)
}

package util

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// SniffMimeHTTP recognises the formats phones actually send.
func SniffMimeHTTP(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 {
		return "image/jpeg"
	}
	if len(b) >= 8 &&
		b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 &&
		b[4] == 0x0D && b[5] == 0x0A && b[6] == 0x1A && b[7] == 0x0A {
		return "image/png"
	}
	if len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WEBP" {
		return "image/webp"
	}
	return "application/octet-stream"
}

func MakeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// DecodeBase64MaybeDataURL decodes an image payload sent as base64, padded or
// not, standard or URL alphabet, optionally line-wrapped or behind a data: URI.
// The second result is the lower-cased MIME type from the URI, if any.
func DecodeBase64MaybeDataURL(s string) ([]byte, string, error) {
	payload, hint := splitDataURL(strings.TrimSpace(s))
	payload = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
			return -1
		}
		return r
	}, payload)
	if payload == "" {
		return nil, "", errors.New("empty base64 payload")
	}
	var firstErr error
	for _, enc := range base64Encodings {
		b, err := enc.DecodeString(payload)
		if err == nil {
			return b, hint, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, "", fmt.Errorf("decode base64: %w", firstErr)
}

// splitDataURL returns the payload and MIME of "data:<mime>[;params],<payload>".
// Anything else comes back unchanged with an empty MIME.
func splitDataURL(s string) (string, string) {
	if len(s) < 5 || !strings.EqualFold(s[:5], "data:") {
		return s, ""
	}
	idx := strings.IndexByte(s, ',')
	if idx < 0 {
		return s, ""
	}
	meta := s[len("data:"):idx]
	if semi := strings.IndexByte(meta, ';'); semi >= 0 {
		meta = meta[:semi]
	}
	return s[idx+1:], strings.ToLower(strings.TrimSpace(meta))
}

// PickMIME: explicit value, then data: URI hint, then content sniffing.
func PickMIME(explicit, hint string, data []byte) string {
	if exp := strings.TrimSpace(explicit); exp != "" {
		return exp
	}
	if h := strings.TrimSpace(hint); h != "" {
		return h
	}
	if m := SniffMimeHTTP(data); m != "application/octet-stream" {
		return m
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return "image/jpeg"
}

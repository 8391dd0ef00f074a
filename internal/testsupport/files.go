package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// PNG returns an encoded PNG of the requested dimensions.
func PNG(t testing.TB, width, height int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.NRGBA{R: uint8(x), G: 0x42, B: 0x99, A: 0xff})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// StyleFile returns a style package body with an embedded metadata object
// surrounded by binary noise.
func StyleFile(metadataJSON string) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x01, '}', 0xfe, '{', 0x02})
	buf.WriteString("header ")
	buf.WriteString(metadataJSON)
	buf.Write([]byte{0x00, 0xff, 0x10})
	return buf.Bytes()
}

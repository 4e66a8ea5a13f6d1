package sniffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHead  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	jpegHead = []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10}
	webpHead = []byte("RIFF\x00\x00\x00\x00WEBPVP8 ")
)

func TestDetect(t *testing.T) {
	cases := []struct {
		name string
		head []byte
		want Format
		mime string
	}{
		{"png", pngHead, FormatPNG, "image/png"},
		{"jpeg", jpegHead, FormatJPEG, "image/jpeg"},
		{"webp", webpHead, FormatWEBP, "image/webp"},
		{"gif", []byte("GIF89a......"), FormatGIF, "image/gif"},
		{"avif", []byte("\x00\x00\x00\x1cftypavif\x00\x00"), FormatAVIF, "image/avif"},
		{"svg", []byte("  <svg xmlns='http://www.w3.org/2000/svg'/>"), FormatSVG, "image/svg+xml"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Detect(tc.head)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Format)
			assert.Equal(t, tc.mime, res.MIME)
		})
	}

	_, err := Detect([]byte("plain text"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
	_, err = Detect(nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("image/png"))
	assert.True(t, IsImage("IMAGE/JPEG"))
	assert.False(t, IsImage("text/plain"))
	assert.False(t, IsImage(""))
	assert.False(t, IsImage("application/pdf"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "image/png", Normalize("image/png; charset=binary"))
	assert.Equal(t, "image/jpeg", Normalize("Image/JPEG"))
	assert.Equal(t, "", Normalize(""))
}

func TestResolve(t *testing.T) {
	mt, res := Resolve("image/jpeg", pngHead)
	assert.Equal(t, "image/jpeg", mt, "declared type wins")
	assert.Equal(t, FormatPNG, res.Format)

	mt, _ = Resolve("", pngHead)
	assert.Equal(t, "image/png", mt)

	mt, _ = Resolve("application/octet-stream", webpHead)
	assert.Equal(t, "image/webp", mt)

	mt, _ = Resolve("", []byte("hello"))
	assert.Equal(t, "", mt)
}

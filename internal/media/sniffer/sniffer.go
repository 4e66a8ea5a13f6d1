package sniffer

import (
	"bytes"
	"errors"
	"mime"
	"strings"
)

type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatWEBP Format = "webp"
	FormatAVIF Format = "avif"
	FormatSVG  Format = "svg"
)

// HeadSize is how many leading bytes Detect needs.
const HeadSize = 512

var ErrUnknownFormat = errors.New("unknown image format")

type Result struct {
	Format Format
	MIME   string
}

// Detect classifies an image by its magic bytes.
func Detect(head []byte) (Result, error) {
	switch {
	case len(head) == 0:
		return Result{}, ErrUnknownFormat
	case isJPEG(head):
		return Result{Format: FormatJPEG, MIME: "image/jpeg"}, nil
	case isPNG(head):
		return Result{Format: FormatPNG, MIME: "image/png"}, nil
	case isGIF(head):
		return Result{Format: FormatGIF, MIME: "image/gif"}, nil
	case isWEBP(head):
		return Result{Format: FormatWEBP, MIME: "image/webp"}, nil
	case isAVIF(head):
		return Result{Format: FormatAVIF, MIME: "image/avif"}, nil
	case isSVG(head):
		return Result{Format: FormatSVG, MIME: "image/svg+xml"}, nil
	}
	return Result{}, ErrUnknownFormat
}

// IsImage is the one acceptance rule for uploads: the media type must be in
// the image/ family.
func IsImage(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(mediaType), "image/")
}

// Normalize strips parameters and lowercases a Content-Type value.
func Normalize(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		if idx := strings.Index(contentType, ";"); idx >= 0 {
			contentType = contentType[:idx]
		}
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

// Resolve picks the media type to trust for an upload. A declared type wins.
// Without one, the sniffed type is used. Octet-stream is what browsers send
// when they do not know, so it counts as undeclared.
func Resolve(declared string, head []byte) (string, Result) {
	result, _ := Detect(head)
	declared = Normalize(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared, result
	}
	return result.MIME, result
}

func isJPEG(head []byte) bool {
	return len(head) > 3 &&
		head[0] == 0xff &&
		head[1] == 0xd8 &&
		head[2] == 0xff
}

func isPNG(head []byte) bool {
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isGIF(head []byte) bool {
	return len(head) >= 6 && (bytes.Equal(head[:6], []byte("GIF87a")) || bytes.Equal(head[:6], []byte("GIF89a")))
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[:4], []byte("RIFF")) &&
		bytes.Equal(head[8:12], []byte("WEBP"))
}

func isAVIF(head []byte) bool {
	if len(head) < 12 {
		return false
	}
	return string(head[4:8]) == "ftyp" && bytes.Contains(head[8:], []byte("avif"))
}

func isSVG(head []byte) bool {
	trimmed := strings.TrimSpace(string(head))
	return strings.HasPrefix(trimmed, "<svg") || strings.HasPrefix(trimmed, "<?xml")
}

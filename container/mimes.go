package container

import (
	"strings"

	"github.com/h2non/filetype/matchers"

	"github.com/pixfold/image-processor/task"
)

var (
	MimeAVIF = TypeAvif.MIME.Value
	MimeWEBP = matchers.TypeWebp.MIME.Value
	MimeGIF  = matchers.TypeGif.MIME.Value
	MimePNG  = matchers.TypePng.MIME.Value
	MimeJPEG = matchers.TypeJpeg.MIME.Value
	MimeTIFF = matchers.TypeTiff.MIME.Value
	MimeBMP  = matchers.TypeBmp.MIME.Value
)

// IsImage reports whether the MIME type denotes an image.
func IsImage(mime string) bool {
	return strings.HasPrefix(mime, "image/")
}

// MimeForFormat maps a target format to the content type of its encoding.
func MimeForFormat(f task.Format) string {
	switch f {
	case task.FormatJPEG:
		return MimeJPEG
	case task.FormatPNG:
		return MimePNG
	case task.FormatGIF:
		return MimeGIF
	case task.FormatTIFF:
		return MimeTIFF
	case task.FormatBMP:
		return MimeBMP
	default:
		return ""
	}
}

package exif

import (
	"bytes"
	"context"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	"go.uber.org/zap"

	"github.com/pixfold/image-processor/container"
	"github.com/pixfold/image-processor/internal/instance"
)

type Instance struct {
	maxSize int
}

// New returns an extractor that refuses inputs larger than maxSize bytes.
// A maxSize of zero disables the bound.
func New(maxSize int) instance.Metadata {
	return &Instance{maxSize: maxSize}
}

// Extract parses embedded tags from data. Unlike every other error path in
// the processor, failures here are swallowed into an empty record: a corrupt
// or tagless image is "no data", not an error.
func (e *Instance) Extract(ctx context.Context, data []byte, contentType string) (record map[string]string) {
	defer func() {
		if pnk := recover(); pnk != nil {
			zap.S().Debugw("metadata extraction panicked",
				"panic", pnk,
			)

			record = nil
		}
	}()

	if e.maxSize > 0 && len(data) > e.maxSize {
		return nil
	}

	if !container.IsImage(contentType) {
		return nil
	}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	record = map[string]string{}

	_ = x.Walk(walker(func(name exif.FieldName, tag *tiff.Tag) error {
		record[string(name)] = strings.Trim(tag.String(), `"`)

		return nil
	}))

	if len(record) == 0 {
		return nil
	}

	return record
}

type walker func(name exif.FieldName, tag *tiff.Tag) error

func (w walker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	return w(name, tag)
}

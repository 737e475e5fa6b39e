package exif

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/pixfold/image-processor/internal/testutil"
)

func TestGarbageYieldsNoRecord(t *testing.T) {
	t.Parallel()

	e := New(0)

	record := e.Extract(context.Background(), []byte("definitely not an image"), "image/jpeg")
	testutil.IsNil(t, record, "garbage input")
}

func TestTaglessImageYieldsNoRecord(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}

	e := New(0)

	// pngs carry no embedded tags; this is "no data", not an error
	record := e.Extract(context.Background(), buf.Bytes(), "image/png")
	testutil.IsNil(t, record, "tagless image")
}

func TestNonImageContentTypeSkipped(t *testing.T) {
	t.Parallel()

	e := New(0)

	record := e.Extract(context.Background(), []byte{0xff, 0xd8, 0xff}, "application/pdf")
	testutil.IsNil(t, record, "non-image content type")
}

func TestSizeBound(t *testing.T) {
	t.Parallel()

	e := New(16)

	record := e.Extract(context.Background(), make([]byte, 32), "image/jpeg")
	testutil.IsNil(t, record, "oversize input refused")
}

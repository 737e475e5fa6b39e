package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"

	img "github.com/disintegration/imaging"

	"github.com/pixfold/image-processor/internal/codec"
	"github.com/pixfold/image-processor/internal/testutil"
	"github.com/pixfold/image-processor/internal/watermark"
	"github.com/pixfold/image-processor/pkg/errors"
	"github.com/pixfold/image-processor/task"
)

// fixture builds a w x h PNG filled with fill, with the top-left quadrant
// marked so flips and rotations are observable.
func fixture(t *testing.T, w, h int, fill, mark color.NRGBA) []byte {
	t.Helper()

	im := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := fill
			if x < w/2 && y < h/2 {
				c = mark
			}
			im.SetNRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := img.Encode(&buf, im, img.PNG); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}

	return buf.Bytes()
}

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
)

func run(t *testing.T, src []byte, program codec.Program) *codec.Output {
	t.Helper()

	out, err := New().Run(context.Background(), bytes.NewReader(src), program)
	testutil.IsNil(t, err, "codec run")

	return out
}

func decodeOutput(t *testing.T, out *codec.Output) image.Image {
	t.Helper()

	im, err := img.Decode(bytes.NewReader(out.Data))
	testutil.IsNil(t, err, "decode output")

	return im
}

func pngProgram(steps ...codec.Step) codec.Program {
	return codec.Program{
		Steps:  steps,
		Encode: codec.EncodeOptions{Format: task.FormatPNG, PNGCompression: 6},
	}
}

func TestCrop(t *testing.T) {
	t.Parallel()

	src := fixture(t, 100, 80, red, green)

	out := run(t, src, pngProgram(codec.Step{
		Kind: codec.StepCrop,
		Crop: &task.Rect{X: 10, Y: 10, Width: 50, Height: 40},
	}))

	testutil.Assert(t, 50, out.Width, "cropped width")
	testutil.Assert(t, 40, out.Height, "cropped height")
}

func TestResizeFits(t *testing.T) {
	t.Parallel()

	src := fixture(t, 100, 50, red, green)

	cases := []struct {
		name  string
		fit   task.FitMode
		wantW int
		wantH int
	}{
		// inside preserves aspect within the box
		{"inside", task.FitInside, 40, 20},
		// cover fills the box exactly, cropping the excess
		{"cover", task.FitCover, 40, 40},
		// stretch ignores aspect
		{"stretch", task.FitStretch, 40, 40},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			out := run(t, src, pngProgram(codec.Step{
				Kind:   codec.StepResize,
				Resize: &codec.ResizeStep{Width: 40, Height: 40, Fit: c.fit},
			}))

			testutil.Assert(t, c.wantW, out.Width, "width")
			testutil.Assert(t, c.wantH, out.Height, "height")
		})
	}
}

func TestResizeSingleDimensionPreservesAspect(t *testing.T) {
	t.Parallel()

	src := fixture(t, 100, 50, red, green)

	out := run(t, src, pngProgram(codec.Step{
		Kind:   codec.StepResize,
		Resize: &codec.ResizeStep{Width: 10, Fit: task.FitInside},
	}))

	testutil.Assert(t, 10, out.Width, "requested width")
	testutil.Assert(t, 5, out.Height, "height follows aspect")

	out = run(t, src, pngProgram(codec.Step{
		Kind:   codec.StepResize,
		Resize: &codec.ResizeStep{Height: 25, Fit: task.FitInside},
	}))

	testutil.Assert(t, 50, out.Width, "width follows aspect")
	testutil.Assert(t, 25, out.Height, "requested height")
}

func TestFlipMirrorsVertically(t *testing.T) {
	t.Parallel()

	src := fixture(t, 8, 8, red, green)

	out := run(t, src, pngProgram(codec.Step{Kind: codec.StepFlip}))
	im := decodeOutput(t, out)

	// the marked quadrant moves from top-left to bottom-left
	testutil.Assert(t, green, color.NRGBAModel.Convert(im.At(0, 7)), "bottom-left after flip")
	testutil.Assert(t, red, color.NRGBAModel.Convert(im.At(0, 0)), "top-left after flip")
}

func TestFlopMirrorsHorizontally(t *testing.T) {
	t.Parallel()

	src := fixture(t, 8, 8, red, green)

	out := run(t, src, pngProgram(codec.Step{Kind: codec.StepFlop}))
	im := decodeOutput(t, out)

	// the marked quadrant moves from top-left to top-right
	testutil.Assert(t, green, color.NRGBAModel.Convert(im.At(7, 0)), "top-right after flop")
	testutil.Assert(t, red, color.NRGBAModel.Convert(im.At(0, 0)), "top-left after flop")
}

func TestRotateRightAngleSwapsDimensions(t *testing.T) {
	t.Parallel()

	src := fixture(t, 100, 50, red, green)

	out := run(t, src, pngProgram(codec.Step{Kind: codec.StepRotate, Rotate: 90}))

	testutil.Assert(t, 50, out.Width, "width after 90 degrees")
	testutil.Assert(t, 100, out.Height, "height after 90 degrees")
}

func TestRotateArbitraryAngleExpandsCanvas(t *testing.T) {
	t.Parallel()

	src := fixture(t, 100, 100, red, green)

	out := run(t, src, pngProgram(codec.Step{
		Kind:   codec.StepRotate,
		Rotate: 45,
		Fill:   color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}))

	if out.Width <= 100 || out.Height <= 100 {
		t.Fatalf("expected an expanded canvas, got %dx%d", out.Width, out.Height)
	}

	// the corners are background fill, not source pixels
	im := decodeOutput(t, out)
	testutil.Assert(t,
		color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		color.NRGBAModel.Convert(im.At(0, 0)),
		"corner filled with background",
	)
}

func TestFlattenReplacesTransparency(t *testing.T) {
	t.Parallel()

	im := image.NewNRGBA(image.Rect(0, 0, 4, 4))

	var buf bytes.Buffer
	if err := img.Encode(&buf, im, img.PNG); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}

	out := run(t, buf.Bytes(), pngProgram(codec.Step{
		Kind: codec.StepFlatten,
		Fill: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}))

	flattened := decodeOutput(t, out)
	testutil.Assert(t,
		color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		color.NRGBAModel.Convert(flattened.At(2, 2)),
		"transparent pixel flattened to white",
	)
}

func TestCompositePlacesOverlay(t *testing.T) {
	t.Parallel()

	base := fixture(t, 100, 100, red, red)
	overlay := fixture(t, 10, 10, green, green)

	out := run(t, base, pngProgram(codec.Step{
		Kind: codec.StepComposite,
		Composite: &codec.CompositeStep{
			Overlay: overlay,
			Plan: func(baseW, baseH, overlayW, overlayH int) (watermark.Plan, error) {
				return watermark.Compose(baseW, baseH, overlayW, overlayH, watermark.Spec{
					Mode:         task.WatermarkSingle,
					Position:     task.GravitySouthEast,
					Opacity:      1,
					ScalePercent: 10,
				})
			},
		},
	}))

	im := decodeOutput(t, out)

	testutil.Assert(t, green, color.NRGBAModel.Convert(im.At(99, 99)), "overlay at southeast corner")
	testutil.Assert(t, red, color.NRGBAModel.Convert(im.At(0, 0)), "base untouched elsewhere")
}

func TestCompositeReceivesPostTransformDimensions(t *testing.T) {
	t.Parallel()

	base := fixture(t, 100, 100, red, red)
	overlay := fixture(t, 10, 10, green, green)

	var gotW, gotH int

	_ = run(t, base, pngProgram(
		codec.Step{Kind: codec.StepResize, Resize: &codec.ResizeStep{Width: 40, Height: 40, Fit: task.FitStretch}},
		codec.Step{
			Kind: codec.StepComposite,
			Composite: &codec.CompositeStep{
				Overlay: overlay,
				Plan: func(baseW, baseH, overlayW, overlayH int) (watermark.Plan, error) {
					gotW, gotH = baseW, baseH

					return watermark.Compose(baseW, baseH, overlayW, overlayH, watermark.Spec{
						Opacity:      1,
						ScalePercent: 20,
					})
				},
			},
		},
	))

	testutil.Assert(t, 40, gotW, "plan sees resized width")
	testutil.Assert(t, 40, gotH, "plan sees resized height")
}

func TestEncodeFormats(t *testing.T) {
	t.Parallel()

	src := fixture(t, 16, 16, red, green)

	cases := []struct {
		format task.Format
		encode codec.EncodeOptions
	}{
		{task.FormatJPEG, codec.EncodeOptions{Format: task.FormatJPEG, Quality: 80}},
		{task.FormatPNG, codec.EncodeOptions{Format: task.FormatPNG, PNGCompression: 9}},
		{task.FormatGIF, codec.EncodeOptions{Format: task.FormatGIF, GIFColors: 64, GIFDither: true}},
		{task.FormatTIFF, codec.EncodeOptions{Format: task.FormatTIFF, TIFFDeflate: true}},
		{task.FormatBMP, codec.EncodeOptions{Format: task.FormatBMP}},
	}

	for _, c := range cases {
		c := c
		t.Run(string(c.format), func(t *testing.T) {
			t.Parallel()

			out := run(t, src, codec.Program{Encode: c.encode})

			testutil.Assert(t, 16, out.Width, "width")
			testutil.Assert(t, 16, out.Height, "height")

			// the payload must round-trip through a decoder
			im := decodeOutput(t, out)
			testutil.Assert(t, 16, im.Bounds().Dx(), "decoded width")
		})
	}
}

func TestGarbageInputIsCodecError(t *testing.T) {
	t.Parallel()

	_, err := New().Run(context.Background(), bytes.NewReader([]byte("not an image")), pngProgram())

	testutil.Assert(t, errors.KindCodec, errors.GetKind(err), "undecodable input")
}

func TestCancelledContextAborts(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := fixture(t, 8, 8, red, green)

	_, err := New().Run(ctx, bytes.NewReader(src), pngProgram(codec.Step{Kind: codec.StepFlip}))

	// the raw context error passes through for the scheduler to classify
	testutil.Assert(t, context.Canceled, err, "context error unchanged")
}

func TestDeterministicOutput(t *testing.T) {
	t.Parallel()

	src := fixture(t, 32, 32, red, green)

	program := pngProgram(
		codec.Step{Kind: codec.StepResize, Resize: &codec.ResizeStep{Width: 16, Height: 16, Fit: task.FitCover}},
		codec.Step{Kind: codec.StepFlop},
	)

	first := run(t, src, program)
	second := run(t, src, program)

	testutil.Assert(t, first.Data, second.Data, "byte-identical output")
}

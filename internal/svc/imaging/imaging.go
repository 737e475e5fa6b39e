package imaging

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"image/gif"
	"image/png"
	"io"

	img "github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // register webp decoding

	"github.com/pixfold/image-processor/internal/codec"
	"github.com/pixfold/image-processor/internal/instance"
	"github.com/pixfold/image-processor/pkg/errors"
	"github.com/pixfold/image-processor/task"
)

type Instance struct{}

func New() instance.Codec {
	return &Instance{}
}

// Run decodes src, applies the program's steps in the order given and encodes
// the result. The context is checked between steps; a fired context aborts the
// run and its error is passed through unchanged so the scheduler can classify
// it.
func (e *Instance) Run(ctx context.Context, src io.Reader, program codec.Program) (*codec.Output, error) {
	var opts []img.DecodeOption
	if len(program.Steps) > 0 && program.Steps[0].Kind == codec.StepOrient {
		// bakes the rotation into the pixels; the orientation tag itself is
		// dropped on re-encode, so downstream viewers never double-rotate
		opts = append(opts, img.AutoOrientation(true))
	}

	base, err := img.Decode(src, opts...)
	if err != nil {
		return nil, errors.Wrap(errors.KindCodec, err, "decode failed")
	}

	for _, step := range program.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		base, err = e.apply(base, step)
		if err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return e.encode(base, program.Encode)
}

func (e *Instance) apply(base image.Image, step codec.Step) (image.Image, error) {
	switch step.Kind {
	case codec.StepOrient:
		// applied at decode time
		return base, nil
	case codec.StepCrop:
		r := step.Crop

		return img.Crop(base, image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)), nil
	case codec.StepResize:
		return e.resize(base, step.Resize), nil
	case codec.StepFlip:
		return img.FlipV(base), nil
	case codec.StepFlop:
		return img.FlipH(base), nil
	case codec.StepRotate:
		if step.Rotate == 0 {
			return base, nil
		}

		// non-right angles expand the canvas, filled with the background
		return img.Rotate(base, step.Rotate, step.Fill), nil
	case codec.StepFlatten:
		bounds := base.Bounds()
		bg := img.New(bounds.Dx(), bounds.Dy(), step.Fill)

		return img.Overlay(bg, base, image.Pt(0, 0), 1.0), nil
	case codec.StepComposite:
		return e.composite(base, step.Composite)
	default:
		return nil, errors.New(errors.KindCodec, "unknown step %s", step.Kind)
	}
}

func (e *Instance) resize(base image.Image, r *codec.ResizeStep) image.Image {
	if r.Width == 0 || r.Height == 0 {
		// one dimension given; the other follows from the aspect ratio
		return img.Resize(base, r.Width, r.Height, img.Lanczos)
	}

	switch r.Fit {
	case task.FitCover:
		return img.Fill(base, r.Width, r.Height, img.Center, img.Lanczos)
	case task.FitStretch:
		return img.Resize(base, r.Width, r.Height, img.Lanczos)
	default:
		return img.Fit(base, r.Width, r.Height, img.Lanczos)
	}
}

func (e *Instance) composite(base image.Image, step *codec.CompositeStep) (image.Image, error) {
	overlay, err := img.Decode(bytes.NewReader(step.Overlay))
	if err != nil {
		return nil, errors.Wrap(errors.KindCodec, err, "overlay decode failed")
	}

	baseBounds := base.Bounds()
	ovBounds := overlay.Bounds()

	plan, err := step.Plan(baseBounds.Dx(), baseBounds.Dy(), ovBounds.Dx(), ovBounds.Dy())
	if err != nil {
		return nil, err
	}

	if plan.Width != ovBounds.Dx() || plan.Height != ovBounds.Dy() {
		overlay = img.Resize(overlay, plan.Width, plan.Height, img.Lanczos)
	}

	opacity := plan.Opacity
	if opacity >= 1 {
		opacity = 1
	}

	out := img.Clone(base)
	for _, p := range plan.Placements {
		out = img.Overlay(out, overlay, image.Pt(p.X, p.Y), opacity)
	}

	return out, nil
}

func (e *Instance) encode(base image.Image, opts codec.EncodeOptions) (*codec.Output, error) {
	// none of these encoders write embedded metadata, so stripping is implicit
	buf := &bytes.Buffer{}

	var err error

	switch opts.Format {
	case task.FormatJPEG:
		err = img.Encode(buf, base, img.JPEG, img.JPEGQuality(opts.Quality))
	case task.FormatPNG:
		err = img.Encode(buf, base, img.PNG, img.PNGCompressionLevel(pngLevel(opts.PNGCompression)))
	case task.FormatGIF:
		err = encodeGIF(buf, base, opts)
	case task.FormatTIFF:
		compression := tiff.Uncompressed
		if opts.TIFFDeflate {
			compression = tiff.Deflate
		}

		err = tiff.Encode(buf, base, &tiff.Options{Compression: compression})
	case task.FormatBMP:
		err = bmp.Encode(buf, base)
	default:
		return nil, errors.New(errors.KindCodec, "no encoder for format %q", opts.Format)
	}

	if err != nil {
		return nil, errors.Wrap(errors.KindCodec, err, "encode failed")
	}

	bounds := base.Bounds()

	return &codec.Output{
		Data:   buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

func encodeGIF(w io.Writer, base image.Image, opts codec.EncodeOptions) error {
	colors := opts.GIFColors
	if colors < 2 || colors > 256 {
		colors = 256
	}

	o := &gif.Options{NumColors: colors}
	if opts.GIFDither {
		o.Drawer = draw.FloydSteinberg
	}

	return gif.Encode(w, base, o)
}

func pngLevel(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

package pipeline

import (
	"github.com/pixfold/image-processor/container"
	"github.com/pixfold/image-processor/internal/codec"
	"github.com/pixfold/image-processor/pkg/errors"
	"github.com/pixfold/image-processor/task"
)

// validation is total: every spec field is checked here, before any codec
// call, so a rejected request never leaves partial output behind.

func validateContentType(contentType string) error {
	if container.IsImage(contentType) || contentType == "application/octet-stream" {
		return nil
	}

	return errors.New(errors.KindValidation, "content type %q does not denote an image", contentType)
}

func validateTransform(spec *task.TransformSpec, overlay []byte) error {
	if spec == nil {
		return nil
	}

	if c := spec.Crop; c != nil {
		if c.Width <= 0 || c.Height <= 0 {
			return errors.New(errors.KindValidation, "crop rectangle must have positive dimensions (%dx%d)", c.Width, c.Height)
		}

		if c.X < 0 || c.Y < 0 {
			return errors.New(errors.KindValidation, "crop origin must not be negative (%d,%d)", c.X, c.Y)
		}
	}

	if r := spec.Resize; r != nil {
		if r.MaxDimension != 0 && (r.Width != 0 || r.Height != 0) {
			return errors.New(errors.KindValidation, "resize.max_dimension conflicts with resize.width/height")
		}

		if r.MaxDimension < 0 || r.Width < 0 || r.Height < 0 {
			return errors.New(errors.KindValidation, "resize dimensions must not be negative")
		}

		if r.MaxDimension == 0 && r.Width == 0 && r.Height == 0 {
			return errors.New(errors.KindValidation, "resize requires max_dimension or width/height")
		}

		switch r.Fit {
		case "", task.FitInside, task.FitCover, task.FitStretch:
		default:
			return errors.New(errors.KindValidation, "unknown resize fit %q", r.Fit)
		}
	}

	if spec.Rotate != nil {
		if a := *spec.Rotate; a < -360 || a > 360 {
			return errors.New(errors.KindValidation, "rotation angle %v outside [-360, 360]", a)
		}
	}

	if spec.Flatten != nil {
		if _, err := codec.ParseColor(*spec.Flatten); err != nil {
			return errors.Wrap(errors.KindValidation, err, "invalid flatten color")
		}
	}

	if spec.Watermark != nil && len(overlay) == 0 {
		return errors.New(errors.KindValidation, "watermark requested without overlay image")
	}

	return validateWatermark(spec.Watermark)
}

func validateWatermark(spec *task.WatermarkSpec) error {
	if spec == nil {
		return nil
	}

	switch spec.Mode {
	case "", task.WatermarkSingle, task.WatermarkTile:
	default:
		return errors.New(errors.KindValidation, "unknown watermark mode %q", spec.Mode)
	}

	switch spec.Position {
	case "", task.GravityNorthWest, task.GravityNorth, task.GravityNorthEast,
		task.GravityWest, task.GravityCenter, task.GravityEast,
		task.GravitySouthWest, task.GravitySouth, task.GravitySouthEast:
	default:
		return errors.New(errors.KindValidation, "unknown watermark position %q", spec.Position)
	}

	if spec.Opacity != nil {
		if o := *spec.Opacity; o < 0 || o > 1 {
			return errors.New(errors.KindValidation, "watermark opacity %v outside [0, 1]", o)
		}
	}

	if spec.ScalePercent != nil {
		if p := *spec.ScalePercent; p < 1 || p > 100 {
			return errors.New(errors.KindValidation, "watermark scale_percent %d outside [1, 100]", p)
		}
	}

	if spec.Spacing != nil && *spec.Spacing < 0 {
		return errors.New(errors.KindValidation, "watermark spacing must not be negative")
	}

	return nil
}

func validateOutput(spec *task.OutputSpec) error {
	if spec == nil {
		return nil
	}

	switch spec.Format {
	case task.FormatJPEG, task.FormatPNG, task.FormatGIF, task.FormatTIFF, task.FormatBMP:
	default:
		// an unknown target is an error, never a silent fallback
		return errors.New(errors.KindValidation, "unsupported output format %q", spec.Format)
	}

	if err := validateOutputUnion(spec); err != nil {
		return err
	}

	if j := spec.JPEG; j != nil && (j.Quality < 1 || j.Quality > 100) {
		return errors.New(errors.KindValidation, "jpeg quality %d outside [1, 100]", j.Quality)
	}

	if p := spec.PNG; p != nil && p.CompressionLevel != nil {
		if l := *p.CompressionLevel; l < 0 || l > 9 {
			return errors.New(errors.KindValidation, "png compression_level %d outside [0, 9]", l)
		}
	}

	if g := spec.GIF; g != nil && g.Colors != 0 && (g.Colors < 2 || g.Colors > 256) {
		return errors.New(errors.KindValidation, "gif colors %d outside [2, 256]", g.Colors)
	}

	return nil
}

// validateOutputUnion rejects options set for a format other than the target,
// keeping OutputSpec an honest tagged union.
func validateOutputUnion(spec *task.OutputSpec) error {
	variants := []struct {
		format task.Format
		set    bool
	}{
		{task.FormatJPEG, spec.JPEG != nil},
		{task.FormatPNG, spec.PNG != nil},
		{task.FormatGIF, spec.GIF != nil},
		{task.FormatTIFF, spec.TIFF != nil},
		{task.FormatBMP, spec.BMP != nil},
	}

	for _, v := range variants {
		if v.set && v.format != spec.Format {
			return errors.New(errors.KindValidation, "%s options set but output format is %q", v.format, spec.Format)
		}
	}

	return nil
}

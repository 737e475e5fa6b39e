package pipeline

import (
	"image/color"

	"github.com/pixfold/image-processor/internal/codec"
	"github.com/pixfold/image-processor/internal/configure"
	"github.com/pixfold/image-processor/internal/watermark"
	"github.com/pixfold/image-processor/task"
)

// built-in fallbacks for defaults the configuration leaves unset
const (
	fallbackFormat    = task.FormatJPEG
	fallbackQuality   = 80
	fallbackPNGLevel  = 6
	fallbackGIFColors = 256
	fallbackResizeFit = task.FitInside
	fallbackScalePct  = 20
	fallbackOpacity   = 1.0
)

// resolved is a TransformSpec with every unset field replaced by its
// configured default. Resolution happens per field, never per object: a
// partially specified spec mixes caller values and defaults field by field.
type resolved struct {
	autoOrient bool
	crop       *task.Rect
	resize     *codec.ResizeStep
	flip       bool
	flop       bool
	rotate     *float64
	flatten    *color.NRGBA
	strip      bool
	background color.NRGBA
	watermark  *watermark.Spec
	encode     codec.EncodeOptions
}

func resolve(defaults configure.DefaultsConfig, spec *task.TransformSpec, out *task.OutputSpec, overlay []byte) resolved {
	if spec == nil {
		spec = &task.TransformSpec{}
	}

	r := resolved{
		autoOrient: defaults.AutoOrient,
		strip:      defaults.Strip,
	}

	if spec.AutoOrient != nil {
		r.autoOrient = *spec.AutoOrient
	}

	if spec.Strip != nil {
		r.strip = *spec.Strip
	}

	r.crop = spec.Crop
	r.rotate = spec.Rotate
	r.flip = spec.Flip != nil && *spec.Flip
	r.flop = spec.Flop != nil && *spec.Flop

	// validation already proved these colors parse
	r.background, _ = codec.ParseColor(defaults.Background)
	if spec.Flatten != nil {
		c, _ := codec.ParseColor(*spec.Flatten)
		r.flatten = &c
		r.background = c
	}

	if rs := spec.Resize; rs != nil {
		fit := rs.Fit
		if fit == "" {
			fit = task.FitMode(defaults.ResizeFit)
		}
		if fit == "" {
			fit = fallbackResizeFit
		}

		step := &codec.ResizeStep{Width: rs.Width, Height: rs.Height, Fit: fit}
		if rs.MaxDimension != 0 {
			step.Width = rs.MaxDimension
			step.Height = rs.MaxDimension
			step.Fit = task.FitInside
		}

		r.resize = step
	}

	// the compositor runs whenever an overlay is supplied, with or without an
	// explicit watermark spec
	if len(overlay) > 0 {
		r.watermark = resolveWatermark(defaults, spec.Watermark)
	}

	r.encode = resolveEncode(defaults, out)
	r.encode.Strip = r.strip

	return r
}

func resolveWatermark(defaults configure.DefaultsConfig, spec *task.WatermarkSpec) *watermark.Spec {
	if spec == nil {
		spec = &task.WatermarkSpec{}
	}

	w := &watermark.Spec{
		Mode:         spec.Mode,
		Position:     spec.Position,
		Opacity:      defaults.Watermark.Opacity,
		ScalePercent: defaults.Watermark.ScalePercent,
		Spacing:      defaults.Watermark.Spacing,
	}

	if w.Mode == "" {
		w.Mode = task.WatermarkSingle
	}

	if w.Position == "" {
		w.Position = task.Gravity(defaults.Watermark.Position)
	}
	if w.Position == "" {
		w.Position = task.GravitySouthEast
	}

	if spec.Opacity != nil {
		w.Opacity = *spec.Opacity
	}
	if w.Opacity == 0 && spec.Opacity == nil {
		w.Opacity = fallbackOpacity
	}

	if spec.ScalePercent != nil {
		w.ScalePercent = *spec.ScalePercent
	}
	if w.ScalePercent == 0 {
		w.ScalePercent = fallbackScalePct
	}

	if spec.Spacing != nil {
		w.Spacing = *spec.Spacing
	}

	return w
}

func resolveEncode(defaults configure.DefaultsConfig, out *task.OutputSpec) codec.EncodeOptions {
	opts := codec.EncodeOptions{
		Format:         task.Format(defaults.Format),
		Quality:        defaults.Quality,
		PNGCompression: defaults.PNGCompression,
		GIFColors:      defaults.GIFColors,
	}

	if opts.Format == "" {
		opts.Format = fallbackFormat
	}
	if opts.Quality == 0 {
		opts.Quality = fallbackQuality
	}
	if opts.PNGCompression == 0 {
		opts.PNGCompression = fallbackPNGLevel
	}
	if opts.GIFColors == 0 {
		opts.GIFColors = fallbackGIFColors
	}

	if out == nil {
		return opts
	}

	opts.Format = out.Format

	if j := out.JPEG; j != nil && j.Quality != 0 {
		opts.Quality = j.Quality
	}

	if p := out.PNG; p != nil && p.CompressionLevel != nil {
		opts.PNGCompression = *p.CompressionLevel
	}

	if g := out.GIF; g != nil {
		if g.Colors != 0 {
			opts.GIFColors = g.Colors
		}
		opts.GIFDither = g.Dither
	}

	if t := out.TIFF; t != nil {
		opts.TIFFDeflate = t.Deflate
	}

	return opts
}

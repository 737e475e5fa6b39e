// Package watermark computes overlay scaling and placement geometry. It is
// pure geometry: pixel work stays in the codec engine.
package watermark

import (
	"math"

	"github.com/pixfold/image-processor/pkg/errors"
	"github.com/pixfold/image-processor/task"
)

// Spec is a fully resolved watermark request. The pipeline resolves defaults
// before handing it over.
type Spec struct {
	Mode         task.WatermarkMode
	Position     task.Gravity
	Opacity      float64
	ScalePercent int
	Spacing      int
}

// Placement is the top-left corner of one overlay copy on the base image.
type Placement struct {
	X int
	Y int
}

// Plan is the complete compositing instruction for one base image: the
// overlay target size, the alpha to apply, and every placement.
type Plan struct {
	Width      int
	Height     int
	Opacity    float64
	Placements []Placement
}

// Compose computes the plan for a base of baseW x baseH and an overlay with
// native dimensions overlayW x overlayH.
//
// The overlay is scaled proportionally so its larger dimension equals
// ScalePercent% of min(baseW, baseH), and is never upscaled past its native
// resolution. Dimensions are always relative to the post-transform base, so
// an oversize overlay is clamped by the same formula.
func Compose(baseW, baseH, overlayW, overlayH int, spec Spec) (Plan, error) {
	if baseW <= 0 || baseH <= 0 {
		return Plan{}, errors.New(errors.KindCodec, "composite base has no pixels (%dx%d)", baseW, baseH)
	}

	if overlayW <= 0 || overlayH <= 0 {
		return Plan{}, errors.New(errors.KindValidation, "watermark overlay has no pixels (%dx%d)", overlayW, overlayH)
	}

	w, h := scaleOverlay(baseW, baseH, overlayW, overlayH, spec.ScalePercent)

	plan := Plan{
		Width:   w,
		Height:  h,
		Opacity: spec.Opacity,
	}

	switch spec.Mode {
	case task.WatermarkTile:
		// gravity is ignored; a regular grid covers the whole base
		stride := w + spec.Spacing
		cols := int(math.Ceil(float64(baseW) / float64(stride)))
		strideY := h + spec.Spacing
		rows := int(math.Ceil(float64(baseH) / float64(strideY)))

		for row := 0; row < rows; row++ {
			for col := 0; col < cols; col++ {
				plan.Placements = append(plan.Placements, Placement{
					X: col * stride,
					Y: row * strideY,
				})
			}
		}
	default:
		plan.Placements = []Placement{anchor(baseW, baseH, w, h, spec.Position)}
	}

	return plan, nil
}

// scaleOverlay sizes the overlay so its larger dimension equals pct% of the
// base's smaller dimension, preserving aspect and refusing to upscale.
func scaleOverlay(baseW, baseH, overlayW, overlayH, pct int) (int, int) {
	ref := baseW
	if baseH < ref {
		ref = baseH
	}

	target := float64(ref) * float64(pct) / 100

	larger := overlayW
	if overlayH > larger {
		larger = overlayH
	}

	if target >= float64(larger) {
		// never upscale past native resolution
		return overlayW, overlayH
	}

	ratio := target / float64(larger)

	w := int(math.Round(float64(overlayW) * ratio))
	h := int(math.Round(float64(overlayH) * ratio))

	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	return w, h
}

func anchor(baseW, baseH, w, h int, g task.Gravity) Placement {
	midX := (baseW - w) / 2
	midY := (baseH - h) / 2
	right := baseW - w
	bottom := baseH - h

	switch g {
	case task.GravityNorthWest:
		return Placement{0, 0}
	case task.GravityNorth:
		return Placement{midX, 0}
	case task.GravityNorthEast:
		return Placement{right, 0}
	case task.GravityWest:
		return Placement{0, midY}
	case task.GravityCenter:
		return Placement{midX, midY}
	case task.GravityEast:
		return Placement{right, midY}
	case task.GravitySouthWest:
		return Placement{0, bottom}
	case task.GravitySouth:
		return Placement{midX, bottom}
	default: // southeast is the default anchor
		return Placement{right, bottom}
	}
}

// Package codec defines the declarative instruction sequence handed to the
// codec engine. The pipeline builds a Program; the engine executes it in the
// order given and never reorders steps.
package codec

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/pixfold/image-processor/internal/watermark"
	"github.com/pixfold/image-processor/task"
)

type StepKind int32

const (
	_ StepKind = iota
	StepOrient
	StepCrop
	StepResize
	StepFlip
	StepFlop
	StepRotate
	StepFlatten
	StepComposite
)

func (s StepKind) String() string {
	switch s {
	case StepOrient:
		return "ORIENT"
	case StepCrop:
		return "CROP"
	case StepResize:
		return "RESIZE"
	case StepFlip:
		return "FLIP"
	case StepFlop:
		return "FLOP"
	case StepRotate:
		return "ROTATE"
	case StepFlatten:
		return "FLATTEN"
	case StepComposite:
		return "COMPOSITE"
	default:
		return fmt.Sprintf("UNKNOWN STEP %d", s)
	}
}

// Step carries the payload for exactly one Kind.
type Step struct {
	Kind StepKind

	Crop      *task.Rect
	Resize    *ResizeStep
	Rotate    float64
	Fill      color.NRGBA // rotate canvas fill and flatten background
	Composite *CompositeStep
}

type ResizeStep struct {
	Width  int
	Height int
	Fit    task.FitMode
}

// CompositeStep holds the overlay bytes plus the placement plan supplied by
// the compositor. Plan is called with the post-transform base dimensions and
// the overlay's native dimensions, which is why compositing forces buffered
// execution.
type CompositeStep struct {
	Overlay []byte
	Plan    func(baseW, baseH, overlayW, overlayH int) (watermark.Plan, error)
}

// EncodeOptions are fully resolved encode parameters for the target format.
type EncodeOptions struct {
	Format         task.Format
	Quality        int // jpeg, 1-100
	PNGCompression int // 0-9
	GIFColors      int // 2-256
	GIFDither      bool
	TIFFDeflate    bool
	Strip          bool
}

// Program is one complete instruction sequence: transform steps in execution
// order followed by the encode.
type Program struct {
	Steps  []Step
	Encode EncodeOptions
}

// Buffered reports whether the program requires the base image to be fully
// materialized before execution. Compositing needs the final post-transform
// dimensions, so any composite step forces buffering.
func (p Program) Buffered() bool {
	for _, s := range p.Steps {
		if s.Kind == StepComposite {
			return true
		}
	}

	return false
}

// Output is the engine's encoded result.
type Output struct {
	Data   []byte
	Width  int
	Height int
}

// ParseColor accepts #RGB, #RRGGBB, #RRGGBBAA hex or a small set of named
// colors.
func ParseColor(s string) (color.NRGBA, error) {
	switch strings.ToLower(s) {
	case "white":
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}, nil
	case "black":
		return color.NRGBA{A: 255}, nil
	case "transparent", "":
		return color.NRGBA{}, nil
	}

	hex := strings.TrimPrefix(s, "#")

	var r, g, b, a uint8
	a = 255

	switch len(hex) {
	case 3:
		n, err := parseHex(hex)
		if err != nil {
			return color.NRGBA{}, err
		}
		r = uint8((n >> 8 & 0xf) * 0x11)
		g = uint8((n >> 4 & 0xf) * 0x11)
		b = uint8((n & 0xf) * 0x11)
	case 6:
		n, err := parseHex(hex)
		if err != nil {
			return color.NRGBA{}, err
		}
		r, g, b = uint8(n>>16), uint8(n>>8), uint8(n)
	case 8:
		n, err := parseHex(hex)
		if err != nil {
			return color.NRGBA{}, err
		}
		r, g, b, a = uint8(n>>24), uint8(n>>16), uint8(n>>8), uint8(n)
	default:
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}

	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}

func parseHex(s string) (uint32, error) {
	var n uint32
	for _, c := range s {
		n <<= 4
		switch {
		case c >= '0' && c <= '9':
			n |= uint32(c - '0')
		case c >= 'a' && c <= 'f':
			n |= uint32(c-'a') + 10
		case c >= 'A' && c <= 'F':
			n |= uint32(c-'A') + 10
		default:
			return 0, fmt.Errorf("invalid hex color %q", s)
		}
	}

	return n, nil
}

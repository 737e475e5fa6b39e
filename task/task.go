package task

// Format identifies a target encoding.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatTIFF Format = "tiff"
	FormatBMP  Format = "bmp"
)

// FitMode controls how a resize maps the source onto the requested box.
type FitMode string

const (
	FitInside  FitMode = "inside"  // preserve aspect, fit within box
	FitCover   FitMode = "cover"   // preserve aspect, fill box, center-crop
	FitStretch FitMode = "stretch" // ignore aspect
)

// Rect is a crop rectangle in the orientation-corrected coordinate space.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ResizeSpec describes a resize. MaxDimension is mutually exclusive with
// Width/Height.
type ResizeSpec struct {
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	MaxDimension int     `json:"max_dimension,omitempty"`
	Fit          FitMode `json:"fit,omitempty"`
}

// TransformSpec describes the requested operations. Nil fields are unset and
// fall back to configured defaults field by field. Values are never mutated
// after construction.
type TransformSpec struct {
	AutoOrient *bool          `json:"auto_orient,omitempty"`
	Crop       *Rect          `json:"crop,omitempty"`
	Resize     *ResizeSpec    `json:"resize,omitempty"`
	Flip       *bool          `json:"flip,omitempty"`
	Flop       *bool          `json:"flop,omitempty"`
	Rotate     *float64       `json:"rotate,omitempty"`
	Flatten    *string        `json:"flatten,omitempty"`
	Strip      *bool          `json:"strip,omitempty"`
	Watermark  *WatermarkSpec `json:"watermark,omitempty"`
}

// OutputSpec is a tagged union keyed by Format: exactly the option struct
// matching Format may be set.
type OutputSpec struct {
	Format Format `json:"format"`

	JPEG *JPEGOptions `json:"jpeg,omitempty"`
	PNG  *PNGOptions  `json:"png,omitempty"`
	GIF  *GIFOptions  `json:"gif,omitempty"`
	TIFF *TIFFOptions `json:"tiff,omitempty"`
	BMP  *BMPOptions  `json:"bmp,omitempty"`
}

type JPEGOptions struct {
	Quality int `json:"quality,omitempty"` // 1-100
}

type PNGOptions struct {
	CompressionLevel *int `json:"compression_level,omitempty"` // 0-9
}

type GIFOptions struct {
	Colors int  `json:"colors,omitempty"` // 2-256
	Dither bool `json:"dither,omitempty"`
}

type TIFFOptions struct {
	Deflate bool `json:"deflate,omitempty"`
}

type BMPOptions struct{}

// WatermarkMode selects single placement or a covering tile grid.
type WatermarkMode string

const (
	WatermarkSingle WatermarkMode = "single"
	WatermarkTile   WatermarkMode = "tile"
)

// Gravity is one of the nine anchor points for single-mode placement.
type Gravity string

const (
	GravityNorthWest Gravity = "northwest"
	GravityNorth     Gravity = "north"
	GravityNorthEast Gravity = "northeast"
	GravityWest      Gravity = "west"
	GravityCenter    Gravity = "center"
	GravityEast      Gravity = "east"
	GravitySouthWest Gravity = "southwest"
	GravitySouth     Gravity = "south"
	GravitySouthEast Gravity = "southeast"
)

// WatermarkSpec describes overlay compositing. It requires overlay bytes to be
// supplied alongside the request.
type WatermarkSpec struct {
	Mode         WatermarkMode `json:"mode,omitempty"`
	Position     Gravity       `json:"position,omitempty"`
	Opacity      *float64      `json:"opacity,omitempty"`       // [0,1]; >=1 means no alpha adjustment
	ScalePercent *int          `json:"scale_percent,omitempty"` // 1-100, relative to the post-transform base
	Spacing      *int          `json:"spacing,omitempty"`       // tile mode, >= 0
}

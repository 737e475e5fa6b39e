package watermark

import (
	"testing"

	"github.com/pixfold/image-processor/internal/testutil"
	"github.com/pixfold/image-processor/pkg/errors"
	"github.com/pixfold/image-processor/task"
)

func TestScaleToPercentOfSmallerDimension(t *testing.T) {
	t.Parallel()

	// overlay larger dimension becomes 20% of min(1000, 1000) = 200
	plan, err := Compose(1000, 1000, 400, 300, Spec{
		Mode:         task.WatermarkSingle,
		Position:     task.GravitySouthEast,
		Opacity:      1,
		ScalePercent: 20,
	})
	testutil.IsNil(t, err, "compose")

	testutil.Assert(t, 200, plan.Width, "scaled width")
	testutil.Assert(t, 150, plan.Height, "scaled height")
}

func TestScaleUsesSmallerBaseDimension(t *testing.T) {
	t.Parallel()

	// min(2000, 400) = 400, so 50% is a 200px larger dimension
	plan, err := Compose(2000, 400, 600, 600, Spec{
		Mode:         task.WatermarkSingle,
		Opacity:      1,
		ScalePercent: 50,
	})
	testutil.IsNil(t, err, "compose")

	testutil.Assert(t, 200, plan.Width, "scaled width")
	testutil.Assert(t, 200, plan.Height, "scaled height")
}

func TestNeverUpscales(t *testing.T) {
	t.Parallel()

	// target would be 200px but the overlay is only 50px
	plan, err := Compose(1000, 1000, 50, 40, Spec{
		Mode:         task.WatermarkSingle,
		Opacity:      1,
		ScalePercent: 20,
	})
	testutil.IsNil(t, err, "compose")

	testutil.Assert(t, 50, plan.Width, "native width kept")
	testutil.Assert(t, 40, plan.Height, "native height kept")
}

func TestOversizeOverlayClamped(t *testing.T) {
	t.Parallel()

	plan, err := Compose(1000, 1000, 5000, 5000, Spec{
		Mode:         task.WatermarkSingle,
		Opacity:      1,
		ScalePercent: 20,
	})
	testutil.IsNil(t, err, "compose")

	testutil.Assert(t, 200, plan.Width, "clamped width")
	testutil.Assert(t, 200, plan.Height, "clamped height")
}

func TestOnePixelOverlay(t *testing.T) {
	t.Parallel()

	plan, err := Compose(1000, 1000, 1, 1, Spec{
		Mode:         task.WatermarkSingle,
		Opacity:      0.5,
		ScalePercent: 20,
	})
	testutil.IsNil(t, err, "compose")

	testutil.Assert(t, 1, plan.Width, "width")
	testutil.Assert(t, 1, plan.Height, "height")
	testutil.Assert(t, 0.5, plan.Opacity, "opacity carried")
	testutil.Assert(t, 1, len(plan.Placements), "single placement")
}

func TestGravityAnchors(t *testing.T) {
	t.Parallel()

	// 100x100 base, overlay resolves to 20x20
	cases := []struct {
		gravity task.Gravity
		want    Placement
	}{
		{task.GravityNorthWest, Placement{0, 0}},
		{task.GravityNorth, Placement{40, 0}},
		{task.GravityNorthEast, Placement{80, 0}},
		{task.GravityWest, Placement{0, 40}},
		{task.GravityCenter, Placement{40, 40}},
		{task.GravityEast, Placement{80, 40}},
		{task.GravitySouthWest, Placement{0, 80}},
		{task.GravitySouth, Placement{40, 80}},
		{task.GravitySouthEast, Placement{80, 80}},
	}

	for _, c := range cases {
		c := c
		t.Run(string(c.gravity), func(t *testing.T) {
			t.Parallel()

			plan, err := Compose(100, 100, 20, 20, Spec{
				Mode:         task.WatermarkSingle,
				Position:     c.gravity,
				Opacity:      1,
				ScalePercent: 20,
			})
			testutil.IsNil(t, err, "compose")

			testutil.Assert(t, []Placement{c.want}, plan.Placements, "anchor")
		})
	}
}

func TestTileGrid(t *testing.T) {
	t.Parallel()

	// stride 60: ceil(200/60) = 4 columns and rows
	plan, err := Compose(200, 200, 50, 50, Spec{
		Mode:         task.WatermarkTile,
		Position:     task.GravityNorthWest, // ignored in tile mode
		Opacity:      1,
		ScalePercent: 100,
		Spacing:      10,
	})
	testutil.IsNil(t, err, "compose")

	testutil.Assert(t, 16, len(plan.Placements), "4x4 grid")
	testutil.Assert(t, Placement{0, 0}, plan.Placements[0], "first tile")
	testutil.Assert(t, Placement{180, 180}, plan.Placements[15], "last tile partially off-canvas")
}

func TestTileGridZeroSpacing(t *testing.T) {
	t.Parallel()

	plan, err := Compose(100, 100, 25, 25, Spec{
		Mode:         task.WatermarkTile,
		Opacity:      1,
		ScalePercent: 100,
	})
	testutil.IsNil(t, err, "compose")

	testutil.Assert(t, 16, len(plan.Placements), "edge-to-edge 4x4 grid")
}

func TestEmptyOverlayRejected(t *testing.T) {
	t.Parallel()

	_, err := Compose(100, 100, 0, 0, Spec{Opacity: 1, ScalePercent: 20})
	testutil.Assert(t, errors.KindValidation, errors.GetKind(err), "zero-pixel overlay")

	_, err = Compose(0, 0, 10, 10, Spec{Opacity: 1, ScalePercent: 20})
	testutil.Assert(t, errors.KindCodec, errors.GetKind(err), "zero-pixel base")
}

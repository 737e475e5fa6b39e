// Package pipeline validates and orders transformation requests and issues
// declarative programs to the codec engine.
package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"io"

	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"

	"github.com/pixfold/image-processor/container"
	"github.com/pixfold/image-processor/internal/codec"
	"github.com/pixfold/image-processor/internal/configure"
	"github.com/pixfold/image-processor/internal/instance"
	"github.com/pixfold/image-processor/internal/watermark"
	"github.com/pixfold/image-processor/pkg/errors"
	"github.com/pixfold/image-processor/task"
)

type Options struct {
	Codec         instance.Codec
	Defaults      configure.DefaultsConfig
	MaxInputBytes int
	Prometheus    instance.Prometheus
}

type Pipeline struct {
	opts Options
}

func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts}
}

// Build runs one transformation: validate, resolve defaults, hand the program
// to the codec engine and package the output. Validation is complete before
// the first codec call.
//
// Without a watermark the source is piped into the engine as a continuous
// stream. With one, the base image is materialized first: the compositor
// needs the final post-transform dimensions before it can size and place the
// overlay.
func (p *Pipeline) Build(ctx context.Context, src io.Reader, contentType string, spec *task.TransformSpec, out *task.OutputSpec, overlay []byte) (*task.Result, error) {
	if err := validateContentType(contentType); err != nil {
		return nil, err
	}

	if err := validateTransform(spec, overlay); err != nil {
		return nil, err
	}

	if err := validateOutput(out); err != nil {
		return nil, err
	}

	r := resolve(p.opts.Defaults, spec, out, overlay)
	program := buildProgram(r, overlay)

	br := bufio.NewReader(src)

	// the declared type is a hint; the bytes decide
	if head, err := br.Peek(262); err == nil || len(head) > 0 {
		if t := container.Match(head); t.MIME.Value != "" && !container.IsImage(t.MIME.Value) {
			return nil, errors.New(errors.KindValidation, "input sniffed as %q, not an image", t.MIME.Value)
		}
	}

	var reader io.Reader = br
	var bounded *boundedReader

	if program.Buffered() {
		data, err := p.materialize(br)
		if err != nil {
			return nil, err
		}

		if p.opts.Prometheus != nil {
			p.opts.Prometheus.TotalBytesIn(len(data))
		}

		reader = bytes.NewReader(data)
	} else if p.opts.MaxInputBytes > 0 {
		bounded = &boundedReader{r: br, max: p.opts.MaxInputBytes}
		reader = bounded
	}

	var finish func()
	if p.opts.Prometheus != nil {
		finish = p.opts.Prometheus.Transform()
	}

	output, err := p.opts.Codec.Run(ctx, reader, program)

	if finish != nil {
		finish()
	}

	// a crossed bound outranks whatever the engine made of the cut stream
	if bounded != nil && bounded.exceeded {
		return nil, errors.New(errors.KindValidation, "input exceeds maximum size of %d bytes", p.opts.MaxInputBytes)
	}

	if err != nil {
		return nil, err
	}

	zap.S().Debugw("pipeline produced output",
		"format", program.Encode.Format,
		"width", output.Width,
		"height", output.Height,
		"size", len(output.Data),
	)

	if p.opts.Prometheus != nil {
		p.opts.Prometheus.TotalBytesOut(len(output.Data))
	}

	h := sha3.New512()
	_, _ = h.Write(output.Data)

	return &task.Result{
		Data:        output.Data,
		ContentType: container.MimeForFormat(program.Encode.Format),
		Width:       output.Width,
		Height:      output.Height,
		Size:        len(output.Data),
		SHA3:        hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// boundedReader enforces the input bound on the streamed path: the moment
// more than max bytes have been served, the stream fails.
type boundedReader struct {
	r        io.Reader
	max      int
	n        int
	exceeded bool
}

func (b *boundedReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.n += n

	if b.n > b.max {
		b.exceeded = true

		return n, errors.New(errors.KindValidation, "input exceeds maximum size of %d bytes", b.max)
	}

	return n, err
}

// materialize reads the whole source into memory, enforcing the configured
// input bound.
func (p *Pipeline) materialize(src io.Reader) ([]byte, error) {
	if p.opts.MaxInputBytes > 0 {
		src = io.LimitReader(src, int64(p.opts.MaxInputBytes)+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.Wrap(errors.KindCodec, err, "failed to read input")
	}

	if p.opts.MaxInputBytes > 0 && len(data) > p.opts.MaxInputBytes {
		return nil, errors.New(errors.KindValidation, "input exceeds maximum size of %d bytes", p.opts.MaxInputBytes)
	}

	return data, nil
}

// buildProgram emits the operation sequence in the fixed order
// orient, crop, resize, flip, flop, rotate, flatten, composite, restricted to
// the requested steps. The order is a correctness contract: crop runs in the
// orientation-corrected coordinate space, and the composite runs after all
// geometry so the overlay is never itself scaled or cropped.
func buildProgram(r resolved, overlay []byte) codec.Program {
	var steps []codec.Step

	if r.autoOrient {
		steps = append(steps, codec.Step{Kind: codec.StepOrient})
	}

	if r.crop != nil {
		steps = append(steps, codec.Step{Kind: codec.StepCrop, Crop: r.crop})
	}

	if r.resize != nil {
		steps = append(steps, codec.Step{Kind: codec.StepResize, Resize: r.resize})
	}

	if r.flip {
		steps = append(steps, codec.Step{Kind: codec.StepFlip})
	}

	if r.flop {
		steps = append(steps, codec.Step{Kind: codec.StepFlop})
	}

	if r.rotate != nil && *r.rotate != 0 {
		steps = append(steps, codec.Step{Kind: codec.StepRotate, Rotate: *r.rotate, Fill: r.background})
	}

	if r.flatten != nil {
		steps = append(steps, codec.Step{Kind: codec.StepFlatten, Fill: *r.flatten})
	}

	if r.watermark != nil {
		spec := *r.watermark
		steps = append(steps, codec.Step{
			Kind: codec.StepComposite,
			Composite: &codec.CompositeStep{
				Overlay: overlay,
				Plan: func(baseW, baseH, overlayW, overlayH int) (watermark.Plan, error) {
					return watermark.Compose(baseW, baseH, overlayW, overlayH, spec)
				},
			},
		})
	}

	return codec.Program{
		Steps:  steps,
		Encode: r.encode,
	}
}

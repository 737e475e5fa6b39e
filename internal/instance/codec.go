package instance

import (
	"context"
	"io"

	"github.com/pixfold/image-processor/internal/codec"
)

// Codec executes a declarative program against a byte source. Without a
// composite step the source may be consumed as a continuous stream; with one
// the engine materializes the base image first.
type Codec interface {
	Run(ctx context.Context, src io.Reader, program codec.Program) (*codec.Output, error)
}

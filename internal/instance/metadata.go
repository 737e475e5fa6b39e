package instance

import "context"

// Metadata parses embedded tags from a size-bounded byte source. Extraction
// failures are swallowed into an empty record; this is the one error path in
// the processor that stays silent.
type Metadata interface {
	Extract(ctx context.Context, data []byte, contentType string) map[string]string
}

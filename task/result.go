package task

import (
	"fmt"
	"time"
)

type State int32

const (
	_ State = iota
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	case StateCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("UNKNOWN STATE %d", s)
	}
}

// Result is the outcome of one admitted unit of image work.
type Result struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	State      State     `json:"state"`

	// Transformation output. Data is nil for pure metadata lookups.
	Data        []byte `json:"-"`
	ContentType string `json:"content_type,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Size        int    `json:"size,omitempty"`
	SHA3        string `json:"sha3,omitempty"`

	// Metadata lookup output. Empty when extraction found nothing; extraction
	// failures are reported as empty, not as errors.
	Metadata map[string]string `json:"metadata,omitempty"`
}

package instance

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Prometheus interface {
	Register(r prometheus.Registerer)

	StartJob() func(success bool)

	JobQueued() func()

	RejectedOverloaded()
	RejectedUnavailable()
	JobTimedOut()
	JobCancelled()

	Transform() func()
	ExtractMetadata() func()

	TotalBytesIn(int)
	TotalBytesOut(int)
}

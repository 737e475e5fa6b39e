package global

import "github.com/pixfold/image-processor/internal/instance"

type Instances struct {
	Codec      instance.Codec
	Metadata   instance.Metadata
	Prometheus instance.Prometheus
}

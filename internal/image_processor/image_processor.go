// Package image_processor ties the admission queue, the transformation
// pipeline and the metadata extractor into one bounded-concurrency service.
package image_processor

import (
	"context"
	"io"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pixfold/image-processor/internal/global"
	"github.com/pixfold/image-processor/internal/pipeline"
	"github.com/pixfold/image-processor/internal/queue"
	"github.com/pixfold/image-processor/pkg/errors"
	"github.com/pixfold/image-processor/task"
)

type Service struct {
	gCtx      global.Context
	scheduler *queue.Scheduler
	pipeline  *pipeline.Pipeline
}

func New(gCtx global.Context) *Service {
	worker := gCtx.Config().Worker

	concurrency := worker.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	zap.S().Infof("Starting job scheduler with %d slots", concurrency)

	return &Service{
		gCtx: gCtx,
		scheduler: queue.New(queue.Options{
			Concurrency:    concurrency,
			QueueSize:      worker.QueueSize,
			JobTimeout:     worker.JobTimeout(),
			RequestTimeout: worker.RequestTimeout(),
			Prometheus:     gCtx.Inst().Prometheus,
		}),
		pipeline: pipeline.New(pipeline.Options{
			Codec:         gCtx.Inst().Codec,
			Defaults:      gCtx.Config().Defaults,
			MaxInputBytes: worker.MaxInputBytes,
			Prometheus:    gCtx.Inst().Prometheus,
		}),
	}
}

// Request is one transformation job. Input and Overlay are exclusively owned
// by this request for its lifetime.
type Request struct {
	Input       io.Reader
	ContentType string
	Transform   *task.TransformSpec
	Output      *task.OutputSpec
	Overlay     []byte
}

// Transform admits the request at the given priority and blocks until it
// resolves. The caller's ctx is the abort signal: client disconnects cancel
// the job cooperatively.
func (s *Service) Transform(ctx context.Context, priority int, req Request) (*task.Result, error) {
	id := uuid.New().String()
	startedAt := time.Now()

	zap.S().Debugw("new job",
		"job_id", id,
		"priority", priority,
	)

	result, err := s.scheduler.Submit(ctx, priority, func(ctx context.Context) (*task.Result, error) {
		return s.pipeline.Build(ctx, req.Input, req.ContentType, req.Transform, req.Output, req.Overlay)
	})
	if err != nil {
		zap.S().Debugw("job did not complete",
			"job_id", id,
			"kind", errors.GetKind(err),
			"error", err,
		)

		return nil, err
	}

	result.ID = id
	result.StartedAt = startedAt
	result.FinishedAt = time.Now()
	result.State = task.StateCompleted

	return result, nil
}

// Metadata admits a metadata lookup through the same queue. Extraction
// failures surface as an empty record, never as an error.
func (s *Service) Metadata(ctx context.Context, priority int, input io.Reader, contentType string) (*task.Result, error) {
	id := uuid.New().String()
	startedAt := time.Now()

	maxSize := s.gCtx.Config().Defaults.MetadataMaxSize
	if maxSize <= 0 {
		maxSize = 8 << 20
	}

	result, err := s.scheduler.Submit(ctx, priority, func(ctx context.Context) (*task.Result, error) {
		// one byte past the bound, so the extractor can tell an oversize
		// input from one that merely fills it
		data, err := io.ReadAll(io.LimitReader(input, int64(maxSize)+1))
		if err != nil {
			return nil, errors.Wrap(errors.KindCodec, err, "failed to read input")
		}

		var finish func()
		if prom := s.gCtx.Inst().Prometheus; prom != nil {
			finish = prom.ExtractMetadata()
		}

		record := s.gCtx.Inst().Metadata.Extract(ctx, data, contentType)

		if finish != nil {
			finish()
		}

		return &task.Result{Metadata: record}, nil
	})
	if err != nil {
		return nil, err
	}

	result.ID = id
	result.StartedAt = startedAt
	result.FinishedAt = time.Now()
	result.State = task.StateCompleted

	return result, nil
}

// Accepting reports whether new admissions are possible.
func (s *Service) Accepting() bool {
	return s.scheduler.Accepting()
}

// Shutdown stops admissions and drains: it waits for the queue to go idle or
// for the configured drain timeout, whichever first.
func (s *Service) Shutdown() error {
	ctx := context.Background()

	if d := s.gCtx.Config().Worker.DrainTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	zap.S().Info("draining job queue")

	return s.scheduler.Shutdown(ctx)
}

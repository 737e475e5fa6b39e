package health

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/pixfold/image-processor/internal/global"
)

// New serves the health endpoint: 200 while the scheduler accepts new jobs,
// 503 once the drain has started.
func New(gCtx global.Context, accepting func() bool) <-chan struct{} {
	done := make(chan struct{})

	srv := fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			defer func() {
				if err := recover(); err != nil {
					zap.S().Errorw("panic in health",
						"panic", err,
					)
				}
			}()

			if accepting != nil && !accepting() {
				ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			}
		},
	}

	go func() {
		defer close(done)
		zap.S().Infow("Health enabled",
			"bind", gCtx.Config().Health.Bind,
		)

		if err := srv.ListenAndServe(gCtx.Config().Health.Bind); err != nil {
			zap.S().Fatalw("failed to bind health",
				"error", err,
			)
		}
	}()

	go func() {
		<-gCtx.Done()

		_ = srv.Shutdown()
	}()

	return done
}

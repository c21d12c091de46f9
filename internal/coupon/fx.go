package coupon

import (
	"context"
	"time"

	"github.com/tably/tably/internal/coupon/domain"
	"github.com/tably/tably/internal/coupon/repository"
	"github.com/tably/tably/internal/coupon/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("coupon.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Invoke(startExpirySweep),
)

// startExpirySweep moves stale wallet rows to expired on an interval so
// wallet reads never show an available coupon past its window for long.
func startExpirySweep(lc fx.Lifecycle, svc domain.Service, log *zap.Logger) {
	log = log.Named("coupon.sweep")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(time.Hour)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if _, err := svc.ExpireStale(ctx); err != nil {
							log.Warn("expiry sweep failed", zap.Error(err))
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

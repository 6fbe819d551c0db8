package grpc

import (
	"context"
	"time"

	"github.com/Miraines/MoonyAndStarry/shop-service/internal/infra/health"
	"go.uber.org/zap"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name probes ask grpc.health.v1.Health about; "" covers
// the whole server.
const ServiceName = "shop.auth"

// HealthWatcher keeps the standard gRPC health service in step with the
// reachability of the user store and the session store.
type HealthWatcher struct {
	checker  *health.Checker
	srv      *grpchealth.Server
	interval time.Duration
	log      *zap.Logger
}

func NewHealthWatcher(checker *health.Checker, interval time.Duration, log *zap.Logger) *HealthWatcher {
	return &HealthWatcher{
		checker:  checker,
		srv:      grpchealth.NewServer(),
		interval: interval,
		log:      log,
	}
}

func (w *HealthWatcher) Server() healthpb.HealthServer { return w.srv }

func (w *HealthWatcher) update(ctx context.Context) {
	rep := w.checker.Check(ctx)
	st := healthpb.HealthCheckResponse_SERVING
	if !rep.Healthy {
		st = healthpb.HealthCheckResponse_NOT_SERVING
		w.log.Warn("dependency unhealthy", zap.Any("deps", rep.Deps))
	}
	w.srv.SetServingStatus("", st)
	w.srv.SetServingStatus(ServiceName, st)
}

// Run probes until ctx is done, then marks everything NOT_SERVING so
// watchers see the shutdown.
func (w *HealthWatcher) Run(ctx context.Context) error {
	w.update(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.srv.Shutdown()
			return nil
		case <-ticker.C:
			w.update(ctx)
		}
	}
}

package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/Miraines/MoonyAndStarry/shop-service/internal/infra/config"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func NewHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

// ServeHTTP serves on lis until ctx is done, then drains in-flight requests
// for up to stopTimeout.
func ServeHTTP(ctx context.Context, cfg *config.Config, srv *http.Server, lis net.Listener, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			zap.String("addr", lis.Addr().String()),
			zap.Bool("tls", cfg.TLSEnabled()),
		)
		var err error
		if cfg.TLSEnabled() {
			err = srv.ServeTLS(lis, cfg.HTTPSCertFile, cfg.HTTPSKeyFile)
		} else {
			err = srv.Serve(lis)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "serve HTTP")
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown HTTP")
	}
	logger.Info("HTTP server stopped")
	return nil
}

func StartHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler, logger *zap.Logger) error {
	lis, err := net.Listen("tcp", cfg.HTTPAddress)
	if err != nil {
		return errors.Wrapf(err, "listen %s", cfg.HTTPAddress)
	}
	return ServeHTTP(ctx, cfg, NewHTTPServer(cfg, handler), lis, logger)
}

package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/benruijl/walledin/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

// serveHTTP runs srv until ctx ends and then shuts it down.
func serveHTTP(ctx context.Context, srv *http.Server, logger telemetry.Logger) error {
	errs := make(chan error, 1)
	go func() {
		logger.Printf("http listening on %s", srv.Addr)
		errs <- srv.ListenAndServe()
	}()
	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errs
		return nil
	}
}

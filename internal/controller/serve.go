package controller

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Serve runs the operator API on cfg.HTTPAddr until ctx ends.
func (c *Controller) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              c.cfg.HTTPAddr,
		Handler:           c.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		c.logger.Info().Str("addr", c.cfg.HTTPAddr).Msg("controller.Controller.Serve listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

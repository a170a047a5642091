// Package httpx fronts the router with a selectable listener transport.
// "nethttp" is the default; "fasthttp" trades net/http server features for
// throughput and is adapted back onto the same http.Handler tree.
package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fillsession/pkg/logger"
)

// Options selects the transport and listener parameters.
type Options struct {
	Transport string
	Addr      string
	CertFile  string
	KeyFile   string
}

// Serve runs the server until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, opts Options, handler http.Handler) error {
	switch opts.Transport {
	case "", "nethttp":
		return serveNetHTTP(ctx, opts, handler)
	case "fasthttp":
		return serveFastHTTP(ctx, opts, handler)
	default:
		return errors.New("unknown transport: " + opts.Transport)
	}
}

func serveNetHTTP(ctx context.Context, opts Options, handler http.Handler) error {
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("server_listening", "transport", "nethttp", "addr", opts.Addr, "tls", opts.CertFile != "")
		if opts.CertFile != "" && opts.KeyFile != "" {
			errc <- srv.ListenAndServeTLS(opts.CertFile, opts.KeyFile)
		} else {
			errc <- srv.ListenAndServe()
		}
	}()
	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			logger.Warn("server_shutdown_error", "error", err)
			return err
		}
		logger.Info("server_stopped", "transport", "nethttp")
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

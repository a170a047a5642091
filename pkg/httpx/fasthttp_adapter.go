package httpx

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"fillsession/pkg/logger"
)

// serveFastHTTP mounts the http.Handler tree behind a fasthttp server. TLS
// is supported through the same cert/key pair as the nethttp front.
func serveFastHTTP(ctx context.Context, opts Options, handler http.Handler) error {
	srv := &fasthttp.Server{
		Handler: fasthttpadaptor.NewFastHTTPHandler(handler),
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("server_listening", "transport", "fasthttp", "addr", opts.Addr, "tls", opts.CertFile != "")
		if opts.CertFile != "" && opts.KeyFile != "" {
			errc <- srv.ListenAndServeTLS(opts.Addr, opts.CertFile, opts.KeyFile)
		} else {
			errc <- srv.ListenAndServe(opts.Addr)
		}
	}()
	select {
	case <-ctx.Done():
		if err := srv.Shutdown(); err != nil {
			logger.Warn("server_shutdown_error", "error", err)
			return err
		}
		logger.Info("server_stopped", "transport", "fasthttp")
		return nil
	case err := <-errc:
		return err
	}
}

package metricsserver

import (
	"net"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/chatexport/internal/common/configtypes"
)

// MetricsHandler is implemented by the service metrics collector
type MetricsHandler interface {
	ServeHTTP(ctx *fasthttp.RequestCtx)
}

// Start creates the metrics server and serves it on its own listener.
// Returns nil when metrics are disabled.
func Start(cfg configtypes.MetricsConfig, handler MetricsHandler, logger *zap.Logger) (*fasthttp.Server, error) {
	if !cfg.Enabled {
		logger.Info("Metrics collection disabled")
		return nil, nil
	}

	ln, err := net.Listen("tcp4", cfg.Listen)
	if err != nil {
		return nil, err
	}
	return Serve(ln, cfg.Path, handler, logger), nil
}

// Serve runs the metrics server on an existing listener.
func Serve(ln net.Listener, path string, handler MetricsHandler, logger *zap.Logger) *fasthttp.Server {
	server := newServer(path, handler)

	go func() {
		logger.Info("Metrics server listening",
			zap.String("listen", ln.Addr().String()),
			zap.String("path", path))

		if err := server.Serve(ln); err != nil {
			logger.Error("Metrics server stopped",
				zap.String("listen", ln.Addr().String()),
				zap.Error(err))
		}
	}()

	return server
}

func newServer(path string, handler MetricsHandler) *fasthttp.Server {
	return &fasthttp.Server{
		Handler:            createMetricsHandler(path, handler),
		Name:               "ChatExport-Metrics",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxRequestBodySize: 1 * 1024,
		TCPKeepalive:       true,
		TCPKeepalivePeriod: 30 * time.Second,
		MaxConnsPerIP:      100,
		MaxRequestsPerConn: 1000,
		Concurrency:        100,
	}
}

func createMetricsHandler(path string, handler MetricsHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == path {
			handler.ServeHTTP(ctx)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetBodyString("Not Found")
	}
}

package service

import (
	"github.com/valyala/fasthttp"

	"github.com/edgecomet/chatexport/internal/common/config"
)

const serverName = "chat-export"

// NewServer builds the API server around handler
func NewServer(cfg *config.Config, handler *Handler) *fasthttp.Server {
	timeout := cfg.CalculateServerTimeout()
	return &fasthttp.Server{
		Handler:            handler.ServeHTTP,
		Name:               serverName,
		ReadTimeout:        timeout,
		WriteTimeout:       timeout,
		MaxRequestBodySize: cfg.Server.MaxRequestBodySize,
	}
}

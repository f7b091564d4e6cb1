package gateway

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-professor-gateway/internal/tokenstore"
	"github.com/noah-isme/sma-professor-gateway/internal/transport"
	"github.com/noah-isme/sma-professor-gateway/pkg/config"
	"github.com/noah-isme/sma-professor-gateway/pkg/logger"
	"github.com/noah-isme/sma-professor-gateway/pkg/middleware/requestid"
)

// NewFromConfig wires the HTTP transport (request id propagation and
// upstream logging) and returns a gateway for cfg.Backend.
func NewFromConfig(cfg *config.Config, tokens tokenstore.Store, observer transport.Observer, log *zap.Logger) *ProfessorGateway {
	client := &http.Client{
		Timeout:   cfg.Backend.Timeout,
		Transport: requestid.RoundTripper(logger.RoundTripper(log, http.DefaultTransport)),
	}
	t := transport.NewHTTPTransport(client, cfg.Backend.Timeout, observer)
	return NewProfessorGateway(t, tokens, Config{
		BaseURL:           cfg.Backend.BaseURL,
		DeleteConcurrency: cfg.Backend.DeleteConcurrency,
	}, log)
}

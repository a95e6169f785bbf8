// README: HTTP gateway; holds the ingress dependencies and builds the gin engine.
package http

import (
	"go.uber.org/zap"

	"dishbee/internal/chat"
	"dishbee/internal/http/handlers"
	"dishbee/internal/infra"
	"dishbee/internal/ingress"
	"dishbee/internal/metrics"
	"dishbee/internal/types"
)

type ServerDeps struct {
	Orchestrator handlers.Orchestrator
	Decoder      *ingress.Decoder
	// OCR is nil when no engine key is configured; photo intake then answers 503.
	OCR      handlers.PhotoParser
	Orders   handlers.OrderCounter
	Gateway  chat.Gateway
	Metrics  *metrics.Metrics
	Reporter infra.Reporter
	Logger   *zap.Logger
	Clock    types.Clock

	BotToken      string
	WebhookSecret string
	// Sentry installs the sentry gin middleware.
	Sentry bool
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Reporter == nil {
		deps.Reporter = infra.NopReporter()
	}
	if deps.Clock == nil {
		deps.Clock = types.SystemClock{}
	}
	return &Server{deps: deps}
}

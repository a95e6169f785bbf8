// README: HTTP router registration.
package http

import (
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"dishbee/internal/http/handlers"
	"dishbee/internal/http/middleware"
)

func (s *Server) Routes() http.Handler {
	d := s.deps
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logging(d.Logger), middleware.Recovery(d.Logger, d.Reporter))
	if d.Sentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}

	health := handlers.NewHealthHandler(d.Orders, d.Clock)
	r.GET("/", health.Get)
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	orders := handlers.NewOrderHandler(d.Decoder, d.Orchestrator, d.OCR, d.Clock, d.Logger)
	r.POST("/webhooks/storefront", middleware.Signature(d.WebhookSecret), orders.Storefront)
	r.POST("/webhooks/photo", orders.Photo)

	updates := handlers.NewChatHandler(d.Decoder, d.Orchestrator, d.Gateway, d.Logger)
	r.POST("/:token", middleware.BotToken(d.BotToken), updates.Update)

	return r
}

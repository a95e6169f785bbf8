// README: Storefront and photo-channel order webhooks.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dishbee/internal/http/middleware"
	"dishbee/internal/ingress"
	"dishbee/internal/modules/dispatch"
	"dishbee/internal/modules/ocr"
	"dishbee/internal/types"
)

// PhotoParser runs the OCR pipeline over one screenshot.
type PhotoParser interface {
	Process(ctx context.Context, image []byte) (*ocr.Parsed, error)
}

type OrderHandler struct {
	decoder *ingress.Decoder
	orch    Orchestrator
	ocr     PhotoParser
	clock   types.Clock
	log     *zap.Logger
}

// NewOrderHandler wires both intake webhooks. A nil parser disables photo intake.
func NewOrderHandler(decoder *ingress.Decoder, orch Orchestrator, parser PhotoParser, clock types.Clock, log *zap.Logger) *OrderHandler {
	return &OrderHandler{decoder: decoder, orch: orch, ocr: parser, clock: clock, log: log}
}

// Storefront expects the body to have passed middleware.Signature.
func (h *OrderHandler) Storefront(c *gin.Context) {
	body := middleware.RawBody(c)
	if body == nil {
		writeError(c, http.StatusBadRequest, "empty body")
		return
	}
	draft, err := h.decoder.Storefront(body)
	if err != nil {
		h.log.Warn("storefront order rejected", zap.Error(err))
		writeIngressError(c, err)
		return
	}
	out := h.orch.Apply(context.WithoutCancel(c.Request.Context()), dispatch.OrderArrived{Order: draft})
	writeOutcome(c, http.StatusCreated, draft.ID, out)
}

func (h *OrderHandler) Photo(c *gin.Context) {
	if h.ocr == nil {
		writeError(c, http.StatusServiceUnavailable, "photo intake is not configured")
		return
	}
	vendor := c.PostForm("vendor")
	fh, err := c.FormFile("image")
	if err != nil {
		writeError(c, http.StatusBadRequest, "missing image")
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "unreadable image")
		return
	}
	defer f.Close()
	img, err := io.ReadAll(io.LimitReader(f, maxImage))
	if err != nil || len(img) == 0 {
		writeError(c, http.StatusBadRequest, "unreadable image")
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	parsed, err := h.ocr.Process(ctx, img)
	if err != nil {
		var perr *ocr.ParseError
		if !errors.As(err, &perr) {
			h.log.Error("ocr failed", zap.String("vendor", vendor), zap.Error(err))
			writeIngressError(c, err)
			return
		}
		h.log.Warn("photo not parsed", zap.String("vendor", vendor), zap.String("code", string(perr.Code)), zap.String("reason", perr.Reason))
		if nerr := h.orch.Notify(ctx, ocr.Instruction(perr.Code)); nerr != nil {
			h.log.Warn("ocr instruction not posted", zap.Error(nerr))
		}
		writeIngressError(c, perr)
		return
	}

	draft, err := h.decoder.Photo(vendor, parsed, h.clock.Now())
	if err != nil {
		h.log.Warn("photo order rejected", zap.String("vendor", vendor), zap.Error(err))
		writeIngressError(c, err)
		return
	}
	out := h.orch.Apply(ctx, dispatch.OrderArrived{Order: draft})
	writeOutcome(c, http.StatusCreated, draft.ID, out)
}

const maxImage = 10 << 20

// README: Chat webhook: decodes updates, applies them and acknowledges button presses.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"dishbee/internal/chat"
	"dishbee/internal/ingress"
	"dishbee/internal/modules/dispatch"
)

type ChatHandler struct {
	decoder *ingress.Decoder
	orch    Orchestrator
	gw      chat.Gateway
	log     *zap.Logger
}

func NewChatHandler(decoder *ingress.Decoder, orch Orchestrator, gw chat.Gateway, log *zap.Logger) *ChatHandler {
	return &ChatHandler{decoder: decoder, orch: orch, gw: gw, log: log}
}

// Update always answers 200 once the envelope parses so the platform does not redeliver.
func (h *ChatHandler) Update(c *gin.Context) {
	var u tgbotapi.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		writeError(c, http.StatusBadRequest, "malformed update")
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())

	in, err := h.decoder.Update(u)
	switch {
	case errors.Is(err, ingress.ErrUnsupported):
		h.answer(ctx, in.CallbackID, "")
	case err != nil:
		h.log.Warn("chat update ignored", zap.Int("update_id", u.UpdateID), zap.Error(err))
		h.answer(ctx, in.CallbackID, ingress.Reason(err))
	default:
		out := h.orch.Apply(ctx, in.Event)
		reason := ""
		if out.Result != dispatch.ResultApplied {
			reason = out.Reason
		}
		h.answer(ctx, in.CallbackID, reason)
	}
	writeJSON(c, http.StatusOK, gin.H{"ok": true})
}

func (h *ChatHandler) answer(ctx context.Context, callbackID, text string) {
	if callbackID == "" || h.gw == nil {
		return
	}
	if err := h.gw.Answer(ctx, callbackID, text); err != nil {
		h.log.Warn("callback not answered", zap.String("callback_id", callbackID), zap.Error(err))
	}
}

// README: Base handler utilities (JSON helpers, error mapping, the orchestrator seam).
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dishbee/internal/ingress"
	"dishbee/internal/modules/dispatch"
	"dishbee/internal/modules/ocr"
)

// Orchestrator is the part of dispatch.Orchestrator the handlers drive.
type Orchestrator interface {
	Apply(ctx context.Context, ev dispatch.Event) dispatch.Outcome
	Notify(ctx context.Context, text string) error
}

type errorResponse struct {
	Error string `json:"error"`
}

type orderResponse struct {
	OrderID string `json:"order_id"`
	Result  string `json:"result"`
	Reason  string `json:"reason,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeIngressError(c *gin.Context, err error) {
	var perr *ocr.ParseError
	switch {
	case errors.Is(err, ingress.ErrBadSignature):
		writeError(c, http.StatusUnauthorized, "invalid signature")
	case errors.As(err, &perr):
		writeError(c, http.StatusUnprocessableEntity, string(perr.Code))
	case errors.Is(err, ingress.ErrValidation):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// writeOutcome maps an orchestrator outcome for a new order to a status code.
func writeOutcome(c *gin.Context, created int, id string, out dispatch.Outcome) {
	resp := orderResponse{OrderID: id, Result: string(out.Result), Reason: out.Reason}
	switch out.Result {
	case dispatch.ResultApplied:
		writeJSON(c, created, resp)
	case dispatch.ResultIgnored:
		writeJSON(c, http.StatusOK, resp)
	default:
		writeJSON(c, http.StatusInternalServerError, resp)
	}
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openhours/doorkeeper/internal/domain"
	"github.com/openhours/doorkeeper/internal/ttlock"
)

// Actuator is the slice of the vendor client manual actions need.
type Actuator interface {
	Authenticate(ctx context.Context) (string, error)
	Unlock(ctx context.Context, token string, lockID int64) (ttlock.Result, error)
	Lock(ctx context.Context, token string, lockID int64) (ttlock.Result, error)
}

// ActionHandler performs single-attempt manual lock commands. Retries are
// the scheduler's business; an admin calling this endpoint can repeat it.
type ActionHandler struct {
	actuator Actuator
	lockID   int64
	logger   *slog.Logger
}

func NewActionHandler(actuator Actuator, lockID int64, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{
		actuator: actuator,
		lockID:   lockID,
		logger:   logger.With("component", "action_handler"),
	}
}

type actionResponse struct {
	LockID int64  `json:"lock_id"`
	Action string `json:"action"`
	Result string `json:"result"`
}

func (h *ActionHandler) Unlock(ctx *gin.Context) {
	h.run(ctx, domain.ActionUnlock)
}

func (h *ActionHandler) Lock(ctx *gin.Context) {
	h.run(ctx, domain.ActionLock)
}

func (h *ActionHandler) run(ctx *gin.Context, action domain.Action) {
	reqCtx := ctx.Request.Context()

	token, err := h.actuator.Authenticate(reqCtx)
	if err != nil {
		h.logger.Error("authenticate", "action", action, "error", err)
		ctx.JSON(http.StatusBadGateway, gin.H{"error": errTokenFailed})
		return
	}

	var res ttlock.Result
	if action == domain.ActionLock {
		res, err = h.actuator.Lock(reqCtx, token, h.lockID)
	} else {
		res, err = h.actuator.Unlock(reqCtx, token, h.lockID)
	}
	if err != nil {
		h.logger.Error("vendor call", "action", action, "error", err)
		ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if !res.OK() {
		h.logger.Warn("vendor rejected command",
			"action", action, "errcode", res.ErrCode, "errmsg", res.ErrMsg)
		ctx.JSON(http.StatusBadGateway, gin.H{
			"error":   res.ErrMsg,
			"errcode": res.ErrCode,
		})
		return
	}

	ctx.JSON(http.StatusOK, actionResponse{
		LockID: h.lockID,
		Action: string(action),
		Result: action.Done(),
	})
}

package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"swap-service/internal/services"
)

// UnreadSweeper runs the unread-digest sweep.
type UnreadSweeper interface {
	NotifyUnread(ctx context.Context) (services.SweepSummary, error)
}

// CronHandler exposes scheduled jobs to an external scheduler.
type CronHandler struct {
	sweeper UnreadSweeper
}

// NewCronHandler builds a CronHandler.
func NewCronHandler(sweeper UnreadSweeper) *CronHandler {
	return &CronHandler{sweeper: sweeper}
}

// SendUnread mails the unread digests and returns the run summary.
func (h *CronHandler) SendUnread(c *gin.Context) {
	summary, err := h.sweeper.NotifyUnread(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

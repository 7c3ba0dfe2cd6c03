package server

import (
	"net/http"

	"github.com/dagbolade/blind-auditor/internal/audit"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type AuditHandler struct {
	store audit.Store
}

func NewAuditHandler(store audit.Store) *AuditHandler {
	return &AuditHandler{store: store}
}

// GetAuditLog returns the verdict trail, newest first. The optional session
// query parameter narrows it to one session.
func (h *AuditHandler) GetAuditLog(c echo.Context) error {
	ctx := c.Request().Context()

	var (
		entries []audit.Entry
		err     error
	)
	if id := c.QueryParam("session"); id != "" {
		entries, err = h.store.GetBySession(ctx, id)
	} else {
		entries, err = h.store.GetAll(ctx)
	}
	if err != nil {
		log.Error().Err(err).Str("remote_addr", c.Request().RemoteAddr).Msg("failed to retrieve audit trail")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to retrieve audit trail",
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"total":   len(entries),
		"entries": entries,
	})
}

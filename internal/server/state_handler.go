package server

import (
	"net/http"

	"github.com/dagbolade/blind-auditor/internal/controller"
	"github.com/dagbolade/blind-auditor/internal/rules"
	"github.com/dagbolade/blind-auditor/internal/session"
	"github.com/labstack/echo/v4"
)

// StateHandler serves read-only views of the session and the rule set.
type StateHandler struct {
	controller *controller.Controller
	rules      rules.Manager
}

func NewStateHandler(ctrl *controller.Controller, store rules.Manager) *StateHandler {
	return &StateHandler{
		controller: ctrl,
		rules:      store,
	}
}

type sessionView struct {
	session.Session
	MaxRetries int `json:"max_retries"`
}

func (h *StateHandler) GetSession(c echo.Context) error {
	return c.JSON(http.StatusOK, sessionView{
		Session:    h.controller.Session(),
		MaxRetries: h.controller.MaxRetries(),
	})
}

func (h *StateHandler) GetRules(c echo.Context) error {
	cfg := h.rules.Snapshot()
	return c.JSON(http.StatusOK, map[string]any{
		"total":  len(cfg.Rules),
		"config": cfg,
	})
}

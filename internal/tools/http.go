package tools

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *Handler) HandleToolCall(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := parseRequest(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}

	result, err := h.Call(ctx, req.ToolName, req.Args)
	if errors.Is(err, ErrUnknownTool) {
		return errorResponse(c, http.StatusNotFound, err.Error())
	}
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, ToolCallResponse{
		Success: true,
		Result:  result,
	})
}

func parseRequest(c echo.Context) (*ToolCallRequest, error) {
	var req ToolCallRequest
	if err := c.Bind(&req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}

	if req.ToolName == "" {
		return nil, fmt.Errorf("tool_name is required")
	}

	return &req, nil
}

func errorResponse(c echo.Context, status int, message string) error {
	return c.JSON(status, ToolCallResponse{
		Success: false,
		Error:   message,
	})
}

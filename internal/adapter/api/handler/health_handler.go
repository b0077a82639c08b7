package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type HealthHandler struct {
	storeBackend  string
	typingBackend string
}

func NewHealthHandler(storeBackend, typingBackend string) *HealthHandler {
	return &HealthHandler{
		storeBackend:  storeBackend,
		typingBackend: typingBackend,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "Server is running",
		"store":  h.storeBackend,
		"typing": h.typingBackend,
		"time":   time.Now().Format(time.RFC3339),
	})
}

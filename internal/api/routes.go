package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/satriahrh/ticketgpt/internal/metrics"
	"github.com/satriahrh/ticketgpt/internal/websocket"
)

// InitRoutes initializes all routes
func InitRoutes(e *echo.Echo, h *Handler, hub *websocket.Hub, m *metrics.Metrics) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "ticketgpt",
		})
	})

	// Page
	e.GET("/", h.Index)
	e.POST("/speak", h.SpeakForm)
	e.POST("/chat", h.ChatForm)

	// API v1 routes
	v1 := e.Group("/api/v1")
	v1.POST("/audio", h.SaveAudio)
	v1.POST("/speak", h.Speak)
	v1.POST("/chat", h.Chat)
	v1.GET("/response", h.DownloadResponse)
	v1.GET("/dataset", h.Dataset)
	v1.GET("/history", h.History)
	v1.GET("/speech", h.Speech)

	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	if hub != nil {
		e.GET("/ws", func(c echo.Context) error {
			return websocket.HandleWebSocket(hub, c)
		})
	}
}

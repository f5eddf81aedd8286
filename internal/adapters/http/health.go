package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkeye/chatroom/internal/app/orch"
)

type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Rooms       int    `json:"rooms"`
}

func healthHandler(o *orch.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, healthResponse{
			Status:      "ok",
			Connections: o.Registry.Count(),
			Rooms:       len(o.Rooms.List()),
		})
	}
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/tutorials-api/internal/infra/database"
)

// WelcomeMessage is the fixed payload of GET /.
const WelcomeMessage = "Welcome to Test application."

func welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": WelcomeMessage})
}

// DatabaseStatus reports the connection state for health checks.
type DatabaseStatus interface {
	State() database.State
}

// HealthHandler serves GET /healthz.
type HealthHandler struct {
	db DatabaseStatus
}

// NewHealthHandler builds the health endpoint.
func NewHealthHandler(db DatabaseStatus) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health answers 200 only once the database is connected.
func (h *HealthHandler) Health(c *gin.Context) {
	state := h.db.State()
	status := http.StatusOK
	body := "ok"
	if state != database.StateConnected {
		status = http.StatusServiceUnavailable
		body = "degraded"
	}
	c.JSON(status, gin.H{"status": body, "database": state})
}

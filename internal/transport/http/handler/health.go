package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vaultai/internal/bootstrap"
)

type HealthHandler struct {
	app *bootstrap.ServerApp
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(app *bootstrap.ServerApp) *HealthHandler {
	return &HealthHandler{app: app}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	deps := gin.H{}
	statusCode := http.StatusOK
	for name, status := range map[string]dependencyStatus{
		"redis":    h.checkRedis(ctx),
		"mysql":    h.checkMySQL(ctx),
		"rabbitmq": h.checkRabbitMQ(),
	} {
		deps[name] = status
		if !status.OK {
			statusCode = http.StatusServiceUnavailable
		}
	}

	c.JSON(statusCode, gin.H{
		"status":     "running",
		"message":    "Multimodal RAG Backend is running",
		"app":        h.app.Config.App.Name,
		"env":        h.app.Config.App.Env,
		"uptime_sec": int(time.Since(h.app.StartedAt).Seconds()),
		"endpoints": gin.H{
			"upload":        "/upload",
			"ask":           "/ask",
			"transcribe":    "/transcribe",
			"files":         "/files",
			"session_info":  "/session-info",
			"clear_session": "/clear-session",
			"temp_files":    "/temp/<filename>",
		},
		"dependencies": deps,
	})
}

func (h *HealthHandler) checkRedis(ctx context.Context) dependencyStatus {
	if h.app.Redis == nil {
		return dependencyStatus{OK: true, Message: "disabled"}
	}
	if err := h.app.Redis.Ping(ctx).Err(); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkMySQL(ctx context.Context) dependencyStatus {
	if h.app.MySQL == nil {
		return dependencyStatus{OK: true, Message: "disabled"}
	}
	sqlDB, err := h.app.MySQL.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkRabbitMQ() dependencyStatus {
	if h.app.RabbitMQ == nil {
		return dependencyStatus{OK: true, Message: "disabled"}
	}
	if h.app.RabbitMQ.IsClosed() {
		return dependencyStatus{OK: false, Message: "connection closed"}
	}
	return dependencyStatus{OK: true}
}

package webapi

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"coolwatch-server-go/internal/app/services"
	"coolwatch-server-go/internal/models"
	"coolwatch-server-go/internal/platform/logging"
	"coolwatch-server-go/internal/realtime"
	httptransport "coolwatch-server-go/internal/transport/http"
)

// RealtimeSource is the slice of the websocket hub the system endpoints
// query and control.
type RealtimeSource interface {
	Stats() realtime.Stats
	DisconnectUser(userID uint) int
}

// SystemAPI exposes health, system statistics and operator controls.
type SystemAPI struct {
	hub      RealtimeSource
	notifier *services.NotificationService
	activity *services.ActivityService
	logger   *logging.Logger
	started  time.Time
}

func NewSystemAPI(hub RealtimeSource, notifier *services.NotificationService, activity *services.ActivityService, logger *logging.Logger) *SystemAPI {
	return &SystemAPI{
		hub:      hub,
		notifier: notifier,
		activity: activity,
		logger:   logger,
		started:  time.Now(),
	}
}

// Register wires the system routes. Health stays unauthenticated for load
// balancer probes.
func (a *SystemAPI) Register(engine *gin.Engine, secured, admin *gin.RouterGroup) {
	engine.GET("/health", a.handleHealth)

	secured.GET("/system/stats", a.handleStats)

	admin.POST("/system/notifications", a.handleBroadcast)
	admin.POST("/system/users/:id/disconnect", a.handleDisconnectUser)
}

func (a *SystemAPI) handleHealth(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{
		"status":    "ok",
		"uptime":    time.Since(a.started).String(),
		"timestamp": time.Now(),
	}, "")
}

func (a *SystemAPI) handleStats(c *gin.Context) {
	stats := gin.H{
		"uptime":     time.Since(a.started).String(),
		"goroutines": runtime.NumGoroutine(),
		"realtime":   a.hub.Stats(),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		stats["cpuPercent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats["memory"] = gin.H{
			"total":       vm.Total,
			"used":        vm.Used,
			"usedPercent": vm.UsedPercent,
		}
	}

	respondSuccess(c, http.StatusOK, stats, "")
}

type broadcastRequest struct {
	Message string `json:"message" binding:"required"`
	Type    string `json:"type"`
}

func (a *SystemAPI) handleBroadcast(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "message is required")
		return
	}
	if req.Type == "" {
		req.Type = "info"
	}

	a.notifier.Broadcast(req.Message, req.Type)

	actor := httptransport.CurrentUser(c)
	_, _ = a.activity.Record(c.Request.Context(), services.ActivityEntry{
		UserID:  &actor.ID,
		Action:  "SYSTEM_NOTIFICATION_SENT",
		Type:    models.ActivityUser,
		Details: map[string]interface{}{"message": req.Message, "type": req.Type},
	})
	respondSuccess(c, http.StatusOK, nil, "notification broadcast")
}

func (a *SystemAPI) handleDisconnectUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	dropped := a.hub.DisconnectUser(id)

	actor := httptransport.CurrentUser(c)
	_, _ = a.activity.Record(c.Request.Context(), services.ActivityEntry{
		UserID:   &actor.ID,
		Action:   "USER_DISCONNECTED",
		Type:     models.ActivityUser,
		Severity: models.SeverityWarning,
		Details:  map[string]interface{}{"targetUserId": id, "connections": dropped},
	})
	respondSuccess(c, http.StatusOK, gin.H{"disconnected": dropped}, "")
}

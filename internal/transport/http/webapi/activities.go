package webapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"coolwatch-server-go/internal/platform/storage"
)

// ActivityAPI exposes the audit-log endpoints.
type ActivityAPI struct {
	activities *storage.ActivityRepository
}

func NewActivityAPI(activities *storage.ActivityRepository) *ActivityAPI {
	return &ActivityAPI{activities: activities}
}

// Register wires the activity routes onto the authenticated group.
func (a *ActivityAPI) Register(secured *gin.RouterGroup) {
	secured.GET("/activities", a.handleList)
	secured.GET("/activities/recent", a.handleRecent)
	secured.GET("/activities/statistics", a.handleStatistics)
}

func (a *ActivityAPI) handleList(c *gin.Context) {
	filters := storage.ActivityFilters{
		Search:   c.Query("search"),
		Type:     c.Query("type"),
		Severity: c.Query("severity"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 20),
	}
	if start, err := time.Parse(time.RFC3339, c.Query("start")); err == nil {
		filters.StartDate = &start
	}
	if end, err := time.Parse(time.RFC3339, c.Query("end")); err == nil {
		filters.EndDate = &end
	}

	activities, total, err := a.activities.List(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"activities": activities,
		"total":      total,
		"page":       filters.Page,
		"pageSize":   filters.PageSize,
	}, "")
}

func (a *ActivityAPI) handleRecent(c *gin.Context) {
	activities, err := a.activities.Recent(c.Request.Context(), queryInt(c, "limit", 10))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, activities, "")
}

func (a *ActivityAPI) handleStatistics(c *gin.Context) {
	hours := queryInt(c, "hours", 24)
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	stats, err := a.activities.Statistics(c.Request.Context(), since)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, stats, "")
}

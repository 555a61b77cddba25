package webapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"coolwatch-server-go/internal/app/services"
	"coolwatch-server-go/internal/domain/eventbus"
	"coolwatch-server-go/internal/models"
	"coolwatch-server-go/internal/platform/logging"
	"coolwatch-server-go/internal/platform/storage"
	httptransport "coolwatch-server-go/internal/transport/http"
)

// DeviceAPI exposes device management, statistics and the sensor-data
// endpoints.
type DeviceAPI struct {
	devices  *storage.DeviceRepository
	readings *storage.SensorRepository
	alerts   *storage.AlertRepository
	sensor   *services.SensorService
	activity *services.ActivityService
	bus      *eventbus.Bus
	logger   *logging.Logger
}

// DeviceAPIConfig carries the handler dependencies.
type DeviceAPIConfig struct {
	Devices  *storage.DeviceRepository
	Readings *storage.SensorRepository
	Alerts   *storage.AlertRepository
	Sensor   *services.SensorService
	Activity *services.ActivityService
	Bus      *eventbus.Bus
	Logger   *logging.Logger
}

func NewDeviceAPI(cfg DeviceAPIConfig) *DeviceAPI {
	return &DeviceAPI{
		devices:  cfg.Devices,
		readings: cfg.Readings,
		alerts:   cfg.Alerts,
		sensor:   cfg.Sensor,
		activity: cfg.Activity,
		bus:      cfg.Bus,
		logger:   cfg.Logger,
	}
}

// Register wires the device routes. Reads are open to any authenticated
// user, mutations require admin or technician.
func (a *DeviceAPI) Register(secured, staff *gin.RouterGroup) {
	secured.GET("/devices", a.handleList)
	secured.GET("/devices/statistics", a.handleStatistics)
	secured.GET("/devices/:id", a.handleGet)
	secured.GET("/devices/:id/sensor-data", a.handleSensorData)
	secured.GET("/devices/:id/alerts", a.handleAlerts)

	staff.POST("/devices", a.handleCreate)
	staff.PUT("/devices/:id", a.handleUpdate)
	staff.DELETE("/devices/:id", a.handleDelete)
	staff.POST("/devices/:id/sensor-data", a.handleIngest)
}

func (a *DeviceAPI) handleList(c *gin.Context) {
	filters := storage.DeviceFilters{
		Search:    c.Query("search"),
		Status:    c.Query("status"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "pageSize", 20),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}

	devices, total, err := a.devices.List(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"devices":  devices,
		"total":    total,
		"page":     filters.Page,
		"pageSize": filters.PageSize,
	}, "")
}

func (a *DeviceAPI) handleStatistics(c *gin.Context) {
	stats, err := a.devices.Statistics(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, stats, "")
}

func (a *DeviceAPI) handleGet(c *gin.Context) {
	device, ok := a.loadDevice(c)
	if !ok {
		return
	}
	respondSuccess(c, http.StatusOK, device, "")
}

type createDeviceRequest struct {
	DeviceID            string    `json:"deviceId" binding:"required"`
	DeviceName          string    `json:"deviceName" binding:"required"`
	DeviceType          string    `json:"deviceType" binding:"required"`
	OwnerName           string    `json:"ownerName" binding:"required"`
	PhoneNumber         string    `json:"phoneNumber"`
	InstallationDate    time.Time `json:"installationDate"`
	InstallationAddress string    `json:"installationAddress"`
	WarrantyMonths      int       `json:"warrantyMonths"`
	LocationLat         *float64  `json:"locationLat"`
	LocationLng         *float64  `json:"locationLng"`
}

func (a *DeviceAPI) handleCreate(c *gin.Context) {
	var req createDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid device payload")
		return
	}

	if existing, err := a.devices.FindByDeviceID(c.Request.Context(), req.DeviceID); err != nil {
		respondServiceError(c, err)
		return
	} else if existing != nil {
		respondError(c, http.StatusConflict, "device id already registered")
		return
	}

	installation := req.InstallationDate
	if installation.IsZero() {
		installation = time.Now()
	}
	warranty := req.WarrantyMonths
	if warranty <= 0 {
		warranty = 12
	}

	device := &models.Device{
		DeviceID:            req.DeviceID,
		DeviceName:          req.DeviceName,
		DeviceType:          req.DeviceType,
		Status:              models.DeviceActive,
		OwnerName:           req.OwnerName,
		PhoneNumber:         req.PhoneNumber,
		InstallationDate:    installation,
		InstallationAddress: req.InstallationAddress,
		WarrantyMonths:      warranty,
		LocationLat:         req.LocationLat,
		LocationLng:         req.LocationLng,
	}
	if err := a.devices.Create(c.Request.Context(), device); err != nil {
		respondServiceError(c, err)
		return
	}

	actor := httptransport.CurrentUser(c)
	_, _ = a.activity.Record(c.Request.Context(), services.ActivityEntry{
		UserID:   &actor.ID,
		DeviceID: &device.ID,
		Action:   "DEVICE_CREATED",
		Type:     models.ActivityUser,
		Details:  map[string]interface{}{"deviceId": device.DeviceID, "name": device.DeviceName},
	})
	respondSuccess(c, http.StatusCreated, device, "device created")
}

type updateDeviceRequest struct {
	DeviceName          *string  `json:"deviceName"`
	DeviceType          *string  `json:"deviceType"`
	Status              *string  `json:"status"`
	OwnerName           *string  `json:"ownerName"`
	PhoneNumber         *string  `json:"phoneNumber"`
	InstallationAddress *string  `json:"installationAddress"`
	WarrantyMonths      *int     `json:"warrantyMonths"`
	LocationLat         *float64 `json:"locationLat"`
	LocationLng         *float64 `json:"locationLng"`
}

func (a *DeviceAPI) handleUpdate(c *gin.Context) {
	device, ok := a.loadDevice(c)
	if !ok {
		return
	}

	var req updateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid device payload")
		return
	}

	previousStatus := device.Status
	if req.DeviceName != nil {
		device.DeviceName = *req.DeviceName
	}
	if req.DeviceType != nil {
		device.DeviceType = *req.DeviceType
	}
	if req.Status != nil {
		switch *req.Status {
		case models.DeviceActive, models.DeviceInactive, models.DeviceMaintenance, models.DeviceError:
			device.Status = *req.Status
		default:
			respondError(c, http.StatusBadRequest, "unknown status: "+*req.Status)
			return
		}
	}
	if req.OwnerName != nil {
		device.OwnerName = *req.OwnerName
	}
	if req.PhoneNumber != nil {
		device.PhoneNumber = *req.PhoneNumber
	}
	if req.InstallationAddress != nil {
		device.InstallationAddress = *req.InstallationAddress
	}
	if req.WarrantyMonths != nil && *req.WarrantyMonths > 0 {
		device.WarrantyMonths = *req.WarrantyMonths
	}
	if req.LocationLat != nil {
		device.LocationLat = req.LocationLat
	}
	if req.LocationLng != nil {
		device.LocationLng = req.LocationLng
	}

	if err := a.devices.Update(c.Request.Context(), device); err != nil {
		respondServiceError(c, err)
		return
	}

	if device.Status != previousStatus {
		a.afterManualStatusChange(c, device, previousStatus)
	}
	respondSuccess(c, http.StatusOK, device, "device updated")
}

// afterManualStatusChange announces an operator-driven status transition and,
// when a device is put back into service, resolves its active alerts.
func (a *DeviceAPI) afterManualStatusChange(c *gin.Context, device *models.Device, previous string) {
	ctx := c.Request.Context()

	if device.Status == models.DeviceActive {
		if err := a.alerts.ResolveForDevice(ctx, device.ID); err != nil && a.logger != nil {
			a.logger.ErrorTag("HTTP", "alert resolution failed for device %d: %v", device.ID, err)
		}
	}

	a.bus.Publish(eventbus.EventDeviceStatus, eventbus.DeviceStatusEvent{DeviceID: device.ID, Status: device.Status})

	actor := httptransport.CurrentUser(c)
	_, _ = a.activity.Record(ctx, services.ActivityEntry{
		UserID:   &actor.ID,
		DeviceID: &device.ID,
		Action:   "DEVICE_STATUS_CHANGED",
		Type:     models.ActivityUser,
		Details:  map[string]interface{}{"from": previous, "to": device.Status},
	})
}

func (a *DeviceAPI) handleDelete(c *gin.Context) {
	device, ok := a.loadDevice(c)
	if !ok {
		return
	}

	if err := a.devices.Delete(c.Request.Context(), device.ID); err != nil {
		respondServiceError(c, err)
		return
	}

	actor := httptransport.CurrentUser(c)
	_, _ = a.activity.Record(c.Request.Context(), services.ActivityEntry{
		UserID:   &actor.ID,
		DeviceID: &device.ID,
		Action:   "DEVICE_DELETED",
		Type:     models.ActivityUser,
		Severity: models.SeverityWarning,
		Details:  map[string]interface{}{"deviceId": device.DeviceID},
	})
	respondSuccess(c, http.StatusOK, nil, "device deleted")
}

func (a *DeviceAPI) handleSensorData(c *gin.Context) {
	device, ok := a.loadDevice(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if c.Query("latest") == "true" {
		latest, err := a.readings.LatestByDevice(ctx, device.ID)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		respondSuccess(c, http.StatusOK, latest, "")
		return
	}

	opts := storage.SensorHistoryOptions{Limit: queryInt(c, "limit", 100)}
	if start, err := time.Parse(time.RFC3339, c.Query("start")); err == nil {
		opts.Start = &start
	}
	if end, err := time.Parse(time.RFC3339, c.Query("end")); err == nil {
		opts.End = &end
	}

	history, err := a.readings.HistoryByDevice(ctx, device.ID, opts)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, history, "")
}

func (a *DeviceAPI) handleAlerts(c *gin.Context) {
	device, ok := a.loadDevice(c)
	if !ok {
		return
	}

	onlyActive := c.Query("active") == "true"
	alerts, err := a.alerts.ListByDevice(c.Request.Context(), device.ID, onlyActive)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, alerts, "")
}

type ingestRequest struct {
	TempColdStorage   *float64   `json:"tempColdStorage"`
	TempEnvironment   *float64   `json:"tempEnvironment"`
	TempSolution      *float64   `json:"tempSolution"`
	PressureSuction   *float64   `json:"pressureSuction"`
	PressureDischarge *float64   `json:"pressureDischarge"`
	SuperheatCurrent  *float64   `json:"superheatCurrent"`
	VoltageA          *float64   `json:"voltageA"`
	CurrentA          *float64   `json:"currentA"`
	Timestamp         *time.Time `json:"timestamp"`
}

func (a *DeviceAPI) handleIngest(c *gin.Context) {
	device, ok := a.loadDevice(c)
	if !ok {
		return
	}

	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid sensor payload")
		return
	}

	reading := &models.SensorData{
		TempColdStorage:   req.TempColdStorage,
		TempEnvironment:   req.TempEnvironment,
		TempSolution:      req.TempSolution,
		PressureSuction:   req.PressureSuction,
		PressureDischarge: req.PressureDischarge,
		SuperheatCurrent:  req.SuperheatCurrent,
		VoltageA:          req.VoltageA,
		CurrentA:          req.CurrentA,
	}
	if req.Timestamp != nil {
		reading.Timestamp = *req.Timestamp
	}

	stored, raised, err := a.sensor.Ingest(c.Request.Context(), device.ID, reading)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{
		"reading": stored,
		"alerts":  raised,
	}, "sensor data recorded")
}

func (a *DeviceAPI) loadDevice(c *gin.Context) (*models.Device, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}

	device, err := a.devices.FindByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	if device == nil {
		respondError(c, http.StatusNotFound, "device not found")
		return nil, false
	}
	return device, true
}

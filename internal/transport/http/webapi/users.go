package webapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"coolwatch-server-go/internal/app/services"
	"coolwatch-server-go/internal/domain/auth"
	"coolwatch-server-go/internal/models"
	"coolwatch-server-go/internal/platform/logging"
	"coolwatch-server-go/internal/platform/storage"
	httptransport "coolwatch-server-go/internal/transport/http"
)

// RealtimeControl is the slice of the websocket hub the REST layer needs.
type RealtimeControl interface {
	DisconnectUser(userID uint) int
}

// UserAPI exposes the admin-only user management endpoints.
type UserAPI struct {
	users    *storage.UserRepository
	activity *services.ActivityService
	realtime RealtimeControl
	logger   *logging.Logger
}

func NewUserAPI(users *storage.UserRepository, activity *services.ActivityService, realtime RealtimeControl, logger *logging.Logger) *UserAPI {
	return &UserAPI{users: users, activity: activity, realtime: realtime, logger: logger}
}

// Register wires the user routes onto the admin-only group.
func (a *UserAPI) Register(admin *gin.RouterGroup) {
	admin.GET("/users", a.handleList)
	admin.POST("/users", a.handleCreate)
	admin.GET("/users/:id", a.handleGet)
	admin.PUT("/users/:id", a.handleUpdate)
	admin.DELETE("/users/:id", a.handleDeactivate)
}

func (a *UserAPI) handleList(c *gin.Context) {
	filters := storage.UserFilters{
		Search:   c.Query("search"),
		Role:     c.Query("role"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 20),
	}

	users, total, err := a.users.List(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"users":    users,
		"total":    total,
		"page":     filters.Page,
		"pageSize": filters.PageSize,
	}, "")
}

type createUserRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	Role      string `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

func (a *UserAPI) handleCreate(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid user payload")
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	switch role {
	case models.RoleAdmin, models.RoleTechnician, models.RoleUser:
	default:
		respondError(c, http.StatusBadRequest, "unknown role: "+role)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	user := &models.User{
		Username:  req.Username,
		Email:     req.Email,
		Password:  hash,
		Role:      role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		IsActive:  true,
	}
	if err := a.users.Create(c.Request.Context(), user); err != nil {
		respondError(c, http.StatusConflict, "username or email already in use")
		return
	}

	actor := httptransport.CurrentUser(c)
	_, _ = a.activity.Record(c.Request.Context(), services.ActivityEntry{
		UserID: &actor.ID,
		Action: "USER_CREATED",
		Type:   models.ActivityUser,
		Details: map[string]interface{}{
			"username": user.Username,
			"role":     user.Role,
		},
	})
	respondSuccess(c, http.StatusCreated, user, "user created")
}

func (a *UserAPI) handleGet(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user, err := a.users.FindByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if user == nil {
		respondError(c, http.StatusNotFound, "user not found")
		return
	}
	respondSuccess(c, http.StatusOK, user, "")
}

type updateUserRequest struct {
	Email     *string `json:"email"`
	Role      *string `json:"role"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
	IsActive  *bool   `json:"isActive"`
}

func (a *UserAPI) handleUpdate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user, err := a.users.FindByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if user == nil {
		respondError(c, http.StatusNotFound, "user not found")
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid user payload")
		return
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Role != nil {
		switch *req.Role {
		case models.RoleAdmin, models.RoleTechnician, models.RoleUser:
			user.Role = *req.Role
		default:
			respondError(c, http.StatusBadRequest, "unknown role: "+*req.Role)
			return
		}
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := a.users.Update(c.Request.Context(), user); err != nil {
		respondServiceError(c, err)
		return
	}

	if req.IsActive != nil && !*req.IsActive && a.realtime != nil {
		a.realtime.DisconnectUser(user.ID)
	}
	respondSuccess(c, http.StatusOK, user, "user updated")
}

// handleDeactivate disables the account instead of deleting the row, the
// audit trail keeps referencing it. Live websocket connections are dropped.
func (a *UserAPI) handleDeactivate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	actor := httptransport.CurrentUser(c)
	if actor.ID == id {
		respondError(c, http.StatusBadRequest, "cannot deactivate your own account")
		return
	}

	user, err := a.users.FindByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if user == nil {
		respondError(c, http.StatusNotFound, "user not found")
		return
	}

	if err := a.users.Deactivate(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	if a.realtime != nil {
		a.realtime.DisconnectUser(id)
	}

	_, _ = a.activity.Record(c.Request.Context(), services.ActivityEntry{
		UserID:   &actor.ID,
		Action:   "USER_DEACTIVATED",
		Type:     models.ActivityUser,
		Severity: models.SeverityWarning,
		Details:  map[string]interface{}{"username": user.Username},
	})
	respondSuccess(c, http.StatusOK, nil, "user deactivated")
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

package webapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"coolwatch-server-go/internal/app/services"
	"coolwatch-server-go/internal/platform/logging"
	"coolwatch-server-go/internal/platform/storage"
	httptransport "coolwatch-server-go/internal/transport/http"
)

// AuthAPI exposes login, session and profile endpoints.
type AuthAPI struct {
	auth   *services.AuthService
	users  *storage.UserRepository
	logger *logging.Logger
}

func NewAuthAPI(auth *services.AuthService, users *storage.UserRepository, logger *logging.Logger) *AuthAPI {
	return &AuthAPI{auth: auth, users: users, logger: logger}
}

// Register wires the auth routes. Login and refresh stay public, the rest
// requires a valid session.
func (a *AuthAPI) Register(public, secured *gin.RouterGroup) {
	public.POST("/auth/login", a.handleLogin)
	public.POST("/auth/refresh", a.handleRefresh)

	secured.POST("/auth/logout", a.handleLogout)
	secured.GET("/auth/profile", a.handleProfileGet)
	secured.PUT("/auth/profile", a.handleProfileUpdate)
	secured.POST("/auth/change-password", a.handleChangePassword)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (a *AuthAPI) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "username and password are required")
		return
	}

	result, err := a.auth.Login(c.Request.Context(), req.Username, req.Password, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, result, "login successful")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (a *AuthAPI) handleRefresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "refreshToken is required")
		return
	}

	result, err := a.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, result, "token refreshed")
}

func (a *AuthAPI) handleLogout(c *gin.Context) {
	user := httptransport.CurrentUser(c)

	var req refreshRequest
	_ = c.ShouldBindJSON(&req) // logout without a refresh token just ends the client session

	if err := a.auth.Logout(c.Request.Context(), user.ID, req.RefreshToken); err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, nil, "logged out")
}

func (a *AuthAPI) handleProfileGet(c *gin.Context) {
	respondSuccess(c, http.StatusOK, httptransport.CurrentUser(c), "")
}

type profileUpdateRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
}

func (a *AuthAPI) handleProfileUpdate(c *gin.Context) {
	user := httptransport.CurrentUser(c)

	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid profile payload")
		return
	}

	if req.Email != nil {
		user.Email = *req.Email
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

	if err := a.users.Update(c.Request.Context(), user); err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, user, "profile updated")
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

func (a *AuthAPI) handleChangePassword(c *gin.Context) {
	user := httptransport.CurrentUser(c)

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "currentPassword and newPassword are required")
		return
	}

	if err := a.auth.ChangePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, nil, "password changed")
}

// User HTTP handlers.
//
// Registration is the only user write this service owns; it exists because
// it is a gamification trigger (the REGISTER achievement). The device-token
// update feeds the notification collaborator. Everything else about users
// belongs to the external CRUD side of the system.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RegisterRequest is the JSON payload for creating a user.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required" example:"ada@example.com"`
	DisplayName string `json:"display_name" example:"Ada"`
}

// DeviceTokenRequest is the JSON payload for the device-token update.
type DeviceTokenRequest struct {
	DeviceToken string `json:"device_token" binding:"required"`
}

// RegisterUser godoc
// @ID          registerUser
// @Summary     Register a user
// @Description Creates a user and fires the registration achievement trigger.
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RegisterRequest  true  "Registration payload"
//
// @Success     201  {object} domain.User
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     409  {object} handlers.ErrorResponse "Email already registered"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users [post]
func (h *Handlers) RegisterUser(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := h.userSvc.Register(c.Request.Context(), req.Email, req.DisplayName)
	if err != nil {
		failFromErr(c, err)
		return
	}
	ok(c, http.StatusCreated, u)
}

// UpdateDeviceToken godoc
// @ID          updateDeviceToken
// @Summary     Update the notification device token
// @Tags        Users
// @Accept      json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "User ID"
// @Param       body       body    handlers.DeviceTokenRequest  true  "Device token"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Not the caller's user"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Router      /users/{id}/device-token [put]
func (h *Handlers) UpdateDeviceToken(c *gin.Context) {
	id := c.Param("id")
	if id != userID(c) {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "cannot update another user's device token")
		return
	}
	var req DeviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.DeviceToken) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "device_token required")
		return
	}
	if err := h.userSvc.UpdateDeviceToken(c.Request.Context(), id, req.DeviceToken); err != nil {
		failFromErr(c, err)
		return
	}
	noContent(c)
}

package controllers

import (
	"github.com/gin-gonic/gin"

	"inkpost-api/services"
	"inkpost-api/utils"
)

// UserController serves the caller's own account: profile, avatar and password.
type UserController struct {
	auth *services.AuthService
}

func NewUserController(auth *services.AuthService) *UserController {
	return &UserController{auth: auth}
}

type UpdateProfileRequest struct {
	Name     *string `json:"name" form:"name" binding:"omitempty,min=4,max=50"`
	Username *string `json:"username" form:"username" binding:"omitempty,max=50"`
	Email    *string `json:"email" form:"email" binding:"omitempty,email,max=255"`
}

type ChangePasswordRequest struct {
	CurrentPassword         string `json:"current_password" form:"current_password" binding:"required"`
	NewPassword             string `json:"new_password" form:"new_password" binding:"required,min=4,max=255"`
	NewPasswordConfirmation string `json:"new_password_confirmation" form:"new_password_confirmation" binding:"required"`
}

func (uc *UserController) GetProfile(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}

	profile, err := uc.auth.Profile(c.Request.Context(), s)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "User profile retrieved successfully.", profile)
}

// GetAvatar returns the caller's avatar reference and its resolved URL.
func (uc *UserController) GetAvatar(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}

	profile, err := uc.auth.Profile(c.Request.Context(), s)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "Avatar retrieved successfully.", gin.H{"avatar": profile.Avatar})
}

func (uc *UserController) UpdateProfile(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !bindOptional(c, &req) {
		return
	}

	avatar, closeAvatar, err := formUpload(c, "avatar")
	if err != nil {
		fail(c, err)
		return
	}
	defer closeAvatar()

	user, err := uc.auth.UpdateProfile(c.Request.Context(), s, services.UpdateProfileInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Avatar:   avatar,
	})
	if err != nil {
		fail(c, err)
		return
	}

	view, err := uc.auth.ResolveAvatar(user)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "Profile updated successfully.", gin.H{"user": user, "avatar": view})
}

func (uc *UserController) ChangePassword(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if !bind(c, &req) {
		return
	}

	err := uc.auth.ChangePassword(c.Request.Context(), s, services.ChangePasswordInput{
		CurrentPassword:         req.CurrentPassword,
		NewPassword:             req.NewPassword,
		NewPasswordConfirmation: req.NewPasswordConfirmation,
	})
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "Password changed successfully.", nil)
}

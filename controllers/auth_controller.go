package controllers

import (
	"github.com/gin-gonic/gin"

	"inkpost-api/services"
	"inkpost-api/utils"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

type RegisterRequest struct {
	Name                 string  `json:"name" form:"name" binding:"required,min=4,max=50"`
	Email                string  `json:"email" form:"email" binding:"required,email,max=255"`
	Username             *string `json:"username" form:"username" binding:"omitempty,min=4,max=50"`
	Password             string  `json:"password" form:"password" binding:"required,min=4,max=255"`
	PasswordConfirmation string  `json:"password_confirmation" form:"password_confirmation" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

func (ac *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if !bind(c, &req) {
		return
	}

	avatar, closeAvatar, err := formUpload(c, "avatar")
	if err != nil {
		fail(c, err)
		return
	}
	defer closeAvatar()

	user, err := ac.auth.Register(c.Request.Context(), services.RegisterInput{
		Name:                 req.Name,
		Email:                req.Email,
		Username:             req.Username,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
		Avatar:               avatar,
	})
	if err != nil {
		fail(c, err)
		return
	}

	utils.SendCreated(c, "User registered successfully.", gin.H{"user": user})
}

func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}

	user, token, err := ac.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	utils.SendWithToken(c, "Login successful.", gin.H{"user": user}, token)
}

func (ac *AuthController) Logout(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	if err := ac.auth.Logout(c.Request.Context(), s); err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "User logged out successfully.", nil)
}

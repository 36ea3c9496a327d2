package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"zenda-system/internal/database/models"
	"zenda-system/internal/utils"
)

type AuthHandler struct {
	db       *gorm.DB
	tokenTTL time.Duration
}

func NewAuthHandler(db *gorm.DB, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{db: db, tokenTTL: tokenTTL}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	Firstname string `json:"firstname" binding:"required"`
	Lastname  string `json:"lastname" binding:"required"`
	RoleID    int32  `json:"role_id" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	var existingUser models.User
	if err := h.db.Where("username = ? OR email = ?", req.Username, req.Email).
		First(&existingUser).Error; err == nil {
		c.JSON(http.StatusConflict, errorResponse("Username or email already exists"))
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to hash password"))
		return
	}

	user := models.User{
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(pwHash),
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		RoleID:    req.RoleID,
		IsActive:  true,
	}

	if err := h.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to create user: "+err.Error()))
		return
	}

	c.JSON(http.StatusCreated, successResponse("User registered successfully", user))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	var user models.User
	if err := h.db.Preload("Role").Where("username = ?", req.Username).
		First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, errorResponse("Invalid username or password"))
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusUnauthorized, errorResponse("Account is disabled"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, errorResponse("Invalid username or password"))
		return
	}

	token, exp, err := utils.GenerateToken(user.ID, user.Username, user.Role.RoleName, h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to generate token"))
		return
	}

	now := time.Now()
	h.db.Model(&user).Update("last_login", &now)

	c.JSON(http.StatusOK, successResponse("Login successful", gin.H{
		"token":      token,
		"expires_at": exp,
		"user":       user,
	}))
}

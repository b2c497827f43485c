package api

import (
	"errors"
	"net/http"
	"time"

	"trainmate/api/internal/domain"
	"trainmate/api/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the authentication service dependency.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// --- Request/Response Structs ---

type SignupRequest struct {
	Name            string      `json:"name" binding:"required"`
	Email           string      `json:"email" binding:"required"`
	Password        string      `json:"password" binding:"required"`
	ConfirmPassword string      `json:"confirm_password" binding:"required"`
	UserType        domain.Role `json:"user_type" binding:"required"`
	Phone           string      `json:"phone"`
	TermsAgreed     bool        `json:"terms_agreed"`
	PrivacyAgreed   bool        `json:"privacy_agreed"`
}

// UserResponse excludes sensitive info like the password hash.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	Phone     string      `json:"phone,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	User   UserResponse      `json:"user"`
	Tokens service.TokenPair `json:"tokens"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type LogoutRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// --- Handler Methods ---

// Signup creates a new trainer or member account together with its
// role-tagged profile.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	agreementErrs := service.FieldErrors{}
	if !req.TermsAgreed {
		agreementErrs.Add("terms_agreed", "you must agree to the terms of service")
	}
	if !req.PrivacyAgreed {
		agreementErrs.Add("privacy_agreed", "you must agree to the privacy policy")
	}
	if agreementErrs.HasErrors() {
		abortWithFieldErrors(c, agreementErrs)
		return
	}

	user, err := h.authService.Signup(c.Request.Context(), service.SignupInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Role:            req.UserType,
		Phone:           req.Phone,
	})
	if err != nil {
		if fieldErrs, ok := service.AsFieldErrors(err); ok {
			abortWithFieldErrors(c, fieldErrs)
		} else if errors.Is(err, service.ErrUserAlreadyExists) {
			abortWithError(c, http.StatusConflict, err.Error())
		} else if errors.Is(err, service.ErrStorageUnavailable) {
			abortWithError(c, http.StatusServiceUnavailable, err.Error())
		} else if errors.Is(err, service.ErrHashingFailed) {
			abortWithError(c, http.StatusInternalServerError, "Could not process registration")
		} else {
			abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred during registration")
		}
		return
	}

	c.JSON(http.StatusCreated, MapUserToResponse(user))
}

// Login authenticates a user and returns access and refresh tokens.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	user, tokens, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrAuthenticationFailed) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else if errors.Is(err, service.ErrAccountInactive) {
			abortWithError(c, http.StatusUnauthorized, err.Error())
		} else if errors.Is(err, service.ErrStorageUnavailable) {
			abortWithError(c, http.StatusServiceUnavailable, err.Error())
		} else if errors.Is(err, service.ErrTokenGeneration) {
			abortWithError(c, http.StatusInternalServerError, "Could not process login")
		} else {
			abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred during login")
		}
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		User:   MapUserToResponse(user),
		Tokens: tokens,
	})
}

// Refresh mints a new access token from a valid refresh token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	access, err := h.authService.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) || errors.Is(err, service.ErrAccountInactive) {
			abortWithError(c, http.StatusUnauthorized, err.Error())
		} else if errors.Is(err, service.ErrStorageUnavailable) {
			abortWithError(c, http.StatusServiceUnavailable, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred during token refresh")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"access": access})
}

// Logout blacklists the presented refresh token. Requires authentication.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.Refresh); err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			abortWithError(c, http.StatusUnauthorized, err.Error())
		} else if errors.Is(err, service.ErrStorageUnavailable) {
			abortWithError(c, http.StatusServiceUnavailable, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred during logout")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// MapUserToResponse converts a domain User to a UserResponse DTO.
func MapUserToResponse(user *domain.User) UserResponse {
	if user == nil {
		return UserResponse{}
	}
	return UserResponse{
		ID:        user.ID.Hex(),
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Phone:     user.Phone,
		CreatedAt: user.CreatedAt,
	}
}

package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/accounts/internal/apperror"
)

// AuthController handles authentication-related HTTP endpoints.
type AuthController struct {
	service   *Service
	mechanism Mechanism
}

// NewAuthController creates a new authentication controller.
func NewAuthController(service *Service, mechanism Mechanism) *AuthController {
	return &AuthController{
		service:   service,
		mechanism: mechanism,
	}
}

// RegisterRoutes registers authentication routes on the router. requireAuth
// guards the routes that need an identity.
func (ac *AuthController) RegisterRoutes(router gin.IRouter, requireAuth gin.HandlerFunc) {
	router.POST("/users", ac.Register)
	router.POST("/login", ac.Login)
	router.POST("/logout", ac.Logout)
	router.GET("/csrf-token", ac.CSRFToken)
	router.GET("/me", requireAuth, ac.Me)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a user account.
func (ac *AuthController) Register(c *gin.Context) {
	var in RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, apperror.NewValidation("invalid request body"))
		return
	}

	user, err := ac.service.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login verifies credentials and returns a token or establishes a session.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperror.NewValidation("invalid request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(c, ErrRequiredFields)
		return
	}

	credential, err := ac.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, credential)
}

// Logout ends the caller's session. In token mode there is nothing to end.
func (ac *AuthController) Logout(c *gin.Context) {
	if ac.mechanism == nil {
		respondError(c, ErrServerMisconfigured)
		return
	}
	if err := ac.mechanism.Revoke(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// CSRFToken returns the proof the client must echo on its next unsafe request.
func (ac *AuthController) CSRFToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"csrfToken": GetCSRFToken(c)})
}

// Me returns the authenticated user.
func (ac *AuthController) Me(c *gin.Context) {
	user, err := ac.service.CurrentUser(c.Request.Context(), GetIdentity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// mapError translates domain errors into boundary errors. Anything it does
// not recognise is an infrastructure failure.
func mapError(err error) *apperror.AppError {
	switch {
	case errors.Is(err, ErrRequiredFields),
		errors.Is(err, ErrEmailInvalid),
		errors.Is(err, ErrPasswordTooShort),
		errors.Is(err, ErrPasswordTooLong),
		errors.Is(err, ErrBirthDateInvalid),
		errors.Is(err, ErrInvalidRole):
		return apperror.NewValidation(err.Error())
	case errors.Is(err, ErrEmailTaken):
		return apperror.NewConflict(err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return apperror.NewUnauthorized(ErrInvalidCredentials.Error())
	case errors.Is(err, ErrAuthRequired),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired):
		return apperror.NewUnauthorized(ErrAuthRequired.Error())
	case errors.Is(err, ErrServerMisconfigured):
		return apperror.NewMisconfigured(err)
	default:
		return apperror.As(err)
	}
}

// respondError aborts the request with the client-safe rendering of err.
// Server-side faults are logged with their full cause.
func respondError(c *gin.Context, err error) {
	appErr := mapError(err)
	if !appErr.Expected() {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"type", appErr.Type,
			"error", err,
		)
	}
	c.AbortWithStatusJSON(appErr.Code, appErr)
}

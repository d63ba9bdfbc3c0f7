package api

import (
	"afasia/therapist-portal/internal/domain"
	"afasia/therapist-portal/internal/logger"
	"afasia/therapist-portal/internal/service"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the authentication service dependency.
type AuthHandler struct {
	authService service.AuthService
	log         *logger.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// --- Request/Response Structs ---

type RegisterRequest struct {
	Name     string `json:"nombre" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// TherapistResponse excludes the password hash.
type TherapistResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"nombre"`
	Email      string   `json:"email"`
	PatientIDs []string `json:"pacientes"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string            `json:"token"`
	Therapist TherapistResponse `json:"terapeuta"`
}

// --- Handler Methods ---

// Register godoc
// @Summary Register a new therapist
// @Tags Auth
// @Accept json
// @Produce json
// @Param therapist body RegisterRequest true "Registration details"
// @Success 201 {object} TherapistResponse "Therapist created successfully"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 409 {object} gin.H "Conflict (email already exists)"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	therapist, err := h.authService.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondWithError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, MapTherapistToResponse(therapist))
}

// Login godoc
// @Summary Log in a therapist
// @Description Authenticates a therapist and returns a JWT token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse "Login successful"
// @Failure 401 {object} gin.H "Unauthorized (invalid credentials)"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	token, therapist, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondWithError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		Therapist: MapTherapistToResponse(therapist),
	})
}

// MapTherapistToResponse converts a domain Therapist to a TherapistResponse DTO.
func MapTherapistToResponse(therapist *domain.Therapist) TherapistResponse {
	if therapist == nil {
		return TherapistResponse{}
	}
	resp := TherapistResponse{
		ID:         therapist.ID,
		Name:       therapist.Name,
		Email:      therapist.Email,
		PatientIDs: therapist.PatientIDs,
	}
	if resp.PatientIDs == nil {
		resp.PatientIDs = []string{}
	}
	return resp
}

package api

import (
	"afasia/therapist-portal/internal/domain"
	"afasia/therapist-portal/internal/logger"
	"afasia/therapist-portal/internal/repository"
	"afasia/therapist-portal/internal/service"
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ExerciseHandler holds the exercise service dependencies.
type ExerciseHandler struct {
	exerciseService service.ExerciseService
	visibility      service.VisibilityResolver
	log             *logger.Logger
}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler(exerciseService service.ExerciseService, visibility service.VisibilityResolver, log *logger.Logger) *ExerciseHandler {
	return &ExerciseHandler{exerciseService: exerciseService, visibility: visibility, log: log}
}

// --- DTOs for API (Data Transfer Objects) ---

// CreateExerciseRequest defines the expected JSON for a manually authored exercise.
// Exactly one of VNEST or SR must match terapia.
type CreateExerciseRequest struct {
	Therapy       domain.Therapy      `json:"terapia" binding:"required,oneof=VNEST SR"`
	Visibility    domain.Visibility   `json:"tipo" binding:"required,oneof=publico privado"`
	PatientID     *string             `json:"id_paciente"`
	PatientEmail  string              `json:"pacienteEmail" binding:"omitempty,email"`
	Question      string              `json:"pregunta"`
	CorrectAnswer string              `json:"rta_correcta"`
	VNEST         *domain.VNESTDetail `json:"vnest"`
	SR            *domain.SRDetail    `json:"sr"`
}

// UpdateExerciseRequest carries the summary fields to change. Absent fields are left alone.
type UpdateExerciseRequest struct {
	Visibility    *domain.Visibility `json:"tipo"`
	Question      *string            `json:"pregunta"`
	CorrectAnswer *string            `json:"rta_correcta"`
	Reviewed      *bool              `json:"revisado"`
}

// UpdateVNESTRequest is the edited VNEST detail plus the review flag of the summary.
type UpdateVNESTRequest struct {
	domain.VNESTDetail
	Reviewed bool `json:"revisado"`
}

type PersonalizeRequest struct {
	PatientID string         `json:"id_paciente" binding:"required"`
	Profile   map[string]any `json:"profile"`
}

// parseExerciseFilter reads terapia, revisado, paciente, page and pageSize from the query.
func parseExerciseFilter(c *gin.Context) (service.ExerciseFilter, error) {
	filter := service.ExerciseFilter{
		Therapy:      domain.Therapy(c.Query("terapia")),
		PatientEmail: c.Query("paciente"),
	}
	if raw := c.Query("revisado"); raw != "" {
		reviewed, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, err
		}
		filter.Reviewed = &reviewed
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return filter, err
		}
		filter.Page = page
	}
	if raw := c.Query("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return filter, err
		}
		filter.PageSize = size
	}
	return filter, nil
}

// --- Handler Methods ---

// ListExercises godoc
// @Summary List the exercises visible to the therapist
// @Tags Exercises
// @Produce json
// @Security BearerAuth
// @Param terapia query string false "VNEST or SR"
// @Param revisado query bool false "Review state"
// @Param paciente query string false "Patient email substring"
// @Param page query int false "1-based page"
// @Success 200 {object} service.ExercisePage
// @Router /exercises [get]
func (h *ExerciseHandler) ListExercises(c *gin.Context) {
	therapistID, err := getTherapistIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify therapist from token.")
		return
	}
	filter, err := parseExerciseFilter(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid query parameter: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, h.exerciseService.ListVisible(c.Request.Context(), therapistID, filter))
}

// StreamExercises godoc
// @Summary Live list of the exercises visible to the therapist
// @Description Server-sent events; every `exercises` event carries the full filtered list.
// @Tags Exercises
// @Produce text/event-stream
// @Security BearerAuth
// @Router /exercises/stream [get]
func (h *ExerciseHandler) StreamExercises(c *gin.Context) {
	therapistID, err := getTherapistIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify therapist from token.")
		return
	}
	filter, err := parseExerciseFilter(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid query parameter: "+err.Error())
		return
	}

	streamSnapshots[[]domain.Exercise](c, h.log, "exercises", func(ctx context.Context, onChange func([]domain.Exercise)) (repository.Unsubscribe, error) {
		return h.visibility.SubscribeVisibleExercises(ctx, therapistID, func(visible []domain.Exercise) {
			onChange(service.ApplyFilter(visible, filter))
		}), nil
	})
}

// CreateExercise godoc
// @Summary Create a new exercise
// @Tags Exercises
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param exercise body CreateExerciseRequest true "Exercise and detail"
// @Success 201 {object} domain.Exercise "Exercise created successfully"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Router /exercises [post]
func (h *ExerciseHandler) CreateExercise(c *gin.Context) {
	var req CreateExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	therapistID, err := getTherapistIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify therapist from token.")
		return
	}

	exercise, err := h.exerciseService.CreateExercise(c.Request.Context(), therapistID, service.CreateExerciseInput{
		Therapy:       req.Therapy,
		Visibility:    req.Visibility,
		PatientID:     req.PatientID,
		PatientEmail:  req.PatientEmail,
		Question:      req.Question,
		CorrectAnswer: req.CorrectAnswer,
		VNEST:         req.VNEST,
		SR:            req.SR,
	})
	if err != nil {
		respondWithError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, exercise)
}

// GetExercise godoc
// @Summary Get a visible exercise summary
// @Tags Exercises
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Success 200 {object} domain.Exercise
// @Failure 403 {object} gin.H "Exercise not visible to this therapist"
// @Failure 404 {object} gin.H "Exercise not found"
// @Router /exercises/{id} [get]
func (h *ExerciseHandler) GetExercise(c *gin.Context) {
	therapistID, err := getTherapistIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify therapist from token.")
		return
	}

	exercise, err := h.exerciseService.GetExercise(c.Request.Context(), therapistID, c.Param("id"))
	if err != nil {
		respondWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, exercise)
}

// GetExerciseDetail godoc
// @Summary Get the VNEST or SR detail of a visible exercise
// @Tags Exercises
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Success 200 {object} domain.ExerciseDetail
// @Router /exercises/{id}/detail [get]
func (h *ExerciseHandler) GetExerciseDetail(c *gin.Context) {
	therapistID, err := getTherapistIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify therapist from token.")
		return
	}

	detail, err := h.exerciseService.GetExerciseDetail(c.Request.Context(), therapistID, c.Param("id"))
	if err != nil {
		respondWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// UpdateExercise godoc
// @Summary Update summary fields of a visible exercise
// @Tags Exercises
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Param exercise body UpdateExerciseRequest true "Fields to change"
// @Success 200 {object} domain.Exercise
// @Router /exercises/{id} [patch]
func (h *ExerciseHandler) UpdateExercise(c *gin.Context) {
	var req UpdateExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	therapistID, err := getTherapistIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify therapist from token.")
		return
	}

	exercise, err := h.exerciseService.UpdateExercise(c.Request.Context(), therapistID, c.Param("id"), service.ExerciseUpdate{
		Visibility:    req.Visibility,
		Question:      req.Question,
		CorrectAnswer: req.CorrectAnswer,
		Reviewed:      req.Reviewed,
	})
	if err != nil {
		respondWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, exercise)
}

// UpdateVNESTDetail godoc
// @Summary Save an edited VNEST detail
// @Tags Exercises
// @Accept json
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Param detail body UpdateVNESTRequest true "Detail and revisado flag"
// @Success 204
// @Router /exercises/{id}/vnest [put]
func (h *ExerciseHandler) UpdateVNESTDetail(c *gin.Context) {
	var req UpdateVNESTRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	therapistID, err := getTherapistIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify therapist from token.")
		return
	}

	if err := h.exerciseService.UpdateVNESTDetail(c.Request.Context(), therapistID, c.Param("id"), req.VNESTDetail, req.Reviewed); err != nil {
		respondWithError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateSRDetail godoc
// @Summary Save an edited SR detail
// @Tags Exercises
// @Accept json
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Param detail body domain.SRDetail true "Detail"
// @Success 204
// @Router /exercises/{id}/sr [put]
func (h *ExerciseHandler) UpdateSRDetail(c *gin.Context) {
	var req domain.SRDetail
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	therapistID, err := getTherapistIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify therapist from token.")
		return
	}

	if err := h.exerciseService.UpdateSRDetail(c.Request.Context(), therapistID, c.Param("id"), req); err != nil {
		respondWithError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteExercise godoc
// @Summary Delete a visible exercise and its detail
// @Tags Exercises
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Success 204
// @Router /exercises/{id} [delete]
func (h *ExerciseHandler) DeleteExercise(c *gin.Context) {
	therapistID, err := getTherapistIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify therapist from token.")
		return
	}

	if err := h.exerciseService.DeleteExercise(c.Request.Context(), therapistID, c.Param("id")); err != nil {
		respondWithError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GenerateExercise godoc
// @Summary Generate a new exercise with the remote API
// @Description The request body is forwarded as is and the remote response is returned unchanged.
// @Tags Exercises
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} any
// @Failure 502 {object} gin.H "Remote API failure"
// @Router /exercises/generate [post]
func (h *ExerciseHandler) GenerateExercise(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	result, err := h.exerciseService.Generate(c.Request.Context(), payload)
	if err != nil {
		respondWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PersonalizeExercise godoc
// @Summary Personalize a visible exercise for one of the therapist's patients
// @Tags Exercises
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Param request body PersonalizeRequest true "Patient and profile"
// @Success 200 {object} map[string]any
// @Router /exercises/{id}/personalize [post]
func (h *ExerciseHandler) PersonalizeExercise(c *gin.Context) {
	var req PersonalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	therapistID, err := getTherapistIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify therapist from token.")
		return
	}

	result, err := h.exerciseService.Personalize(c.Request.Context(), therapistID, c.Param("id"), req.PatientID, req.Profile)
	if err != nil {
		respondWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

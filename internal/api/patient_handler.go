package api

import (
	"afasia/therapist-portal/internal/domain"
	"afasia/therapist-portal/internal/logger"
	"afasia/therapist-portal/internal/repository"
	"afasia/therapist-portal/internal/service"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PatientHandler serves the therapist's roster and the patients' exercise queues.
type PatientHandler struct {
	patientService    service.PatientService
	assignmentService service.AssignmentService
	exerciseService   service.ExerciseService
	log               *logger.Logger
}

func NewPatientHandler(
	patientService service.PatientService,
	assignmentService service.AssignmentService,
	exerciseService service.ExerciseService,
	log *logger.Logger,
) *PatientHandler {
	return &PatientHandler{
		patientService:    patientService,
		assignmentService: assignmentService,
		exerciseService:   exerciseService,
		log:               log,
	}
}

// --- DTOs for Patient Management ---

type LinkPatientRequest struct {
	PatientEmail string `json:"email" binding:"required,email"`
}

type UpdatePatientRequest struct {
	Name  *string `json:"nombre"`
	Email *string `json:"email" binding:"omitempty,email"`
}

type AssignExerciseRequest struct {
	ExerciseID string `json:"id_ejercicio" binding:"required"`
}

// managedPatientID resolves the therapist and checks the :id patient is on their roster.
// On failure the response has already been written.
func (h *PatientHandler) managedPatientID(c *gin.Context) (therapistID, patientID string, ok bool) {
	therapistID, err := getTherapistIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify therapist from token.")
		return "", "", false
	}
	patient, err := h.patientService.GetPatient(c.Request.Context(), therapistID, c.Param("id"))
	if err != nil {
		respondWithError(c, h.log, err)
		return "", "", false
	}
	return therapistID, patient.ID, true
}

// --- Handler Methods for Roster Management ---

// LinkPatient godoc
// @Summary Add a patient to the therapist's roster by email
// @Tags Patients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body LinkPatientRequest true "Patient's email"
// @Success 200 {object} domain.Patient "Patient linked"
// @Failure 404 {object} gin.H "Patient not found"
// @Failure 409 {object} gin.H "Patient already has another therapist"
// @Router /patients [post]
func (h *PatientHandler) LinkPatient(c *gin.Context) {
	var req LinkPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	therapistID, err := getTherapistIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify therapist from token.")
		return
	}

	patient, err := h.patientService.LinkPatient(c.Request.Context(), therapistID, req.PatientEmail)
	if err != nil {
		respondWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

// GetRoster godoc
// @Summary Get the therapist's patients, or one of them by email
// @Description With `email` the response is the single matching patient of the roster.
// @Tags Patients
// @Produce json
// @Security BearerAuth
// @Param email query string false "Patient email"
// @Success 200 {array} domain.Patient
// @Failure 403 {object} gin.H "Patient not managed by this therapist"
// @Failure 404 {object} gin.H "Patient not found"
// @Router /patients [get]
func (h *PatientHandler) GetRoster(c *gin.Context) {
	therapistID, err := getTherapistIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify therapist from token.")
		return
	}

	if email, ok := c.GetQuery("email"); ok {
		patient, err := h.patientService.GetPatientByEmail(c.Request.Context(), therapistID, email)
		if err != nil {
			respondWithError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, patient)
		return
	}

	patients, err := h.patientService.ListRoster(c.Request.Context(), therapistID)
	if err != nil {
		respondWithError(c, h.log, err)
		return
	}
	if patients == nil {
		patients = []domain.Patient{} // Empty JSON array, not null
	}
	c.JSON(http.StatusOK, patients)
}

// GetPatient godoc
// @Summary Get a patient of the roster
// @Tags Patients
// @Produce json
// @Security BearerAuth
// @Param id path string true "Patient ID"
// @Success 200 {object} domain.Patient
// @Failure 403 {object} gin.H "Patient not managed by this therapist"
// @Router /patients/{id} [get]
func (h *PatientHandler) GetPatient(c *gin.Context) {
	therapistID, err := getTherapistIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify therapist from token.")
		return
	}

	patient, err := h.patientService.GetPatient(c.Request.Context(), therapistID, c.Param("id"))
	if err != nil {
		respondWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

// UpdatePatient godoc
// @Summary Update a patient of the roster
// @Tags Patients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Patient ID"
// @Param request body UpdatePatientRequest true "Fields to change"
// @Success 200 {object} domain.Patient
// @Router /patients/{id} [patch]
func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	var req UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	therapistID, err := getTherapistIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify therapist from token.")
		return
	}

	patient, err := h.patientService.UpdatePatient(c.Request.Context(), therapistID, c.Param("id"), service.PatientUpdate{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		respondWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

// --- Handler Methods for Assignment Management ---

// AssignExercise godoc
// @Summary Add a visible exercise to a patient's queue
// @Description Re-assigning an exercise replaces its entry and moves it to the end of the queue.
// @Tags Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Patient ID"
// @Param request body AssignExerciseRequest true "Exercise to assign"
// @Success 200 {object} service.AssignResult
// @Failure 400 {object} gin.H "Exercise has no terapia or contexto"
// @Failure 403 {object} gin.H "Patient or exercise not accessible"
// @Failure 404 {object} gin.H "Exercise or patient not found"
// @Router /patients/{id}/assignments [post]
func (h *PatientHandler) AssignExercise(c *gin.Context) {
	var req AssignExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	therapistID, patientID, ok := h.managedPatientID(c)
	if !ok {
		return
	}

	// Only exercises the therapist can see may be assigned.
	if _, err := h.exerciseService.GetExercise(c.Request.Context(), therapistID, req.ExerciseID); err != nil {
		respondWithError(c, h.log, err)
		return
	}

	result, err := h.assignmentService.AssignExerciseToPatient(c.Request.Context(), patientID, req.ExerciseID)
	if err != nil {
		respondWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetAssignments godoc
// @Summary Get a patient's exercise queue ordered by priority
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Patient ID"
// @Success 200 {array} domain.Assignment
// @Router /patients/{id}/assignments [get]
func (h *PatientHandler) GetAssignments(c *gin.Context) {
	_, patientID, ok := h.managedPatientID(c)
	if !ok {
		return
	}

	queue, err := h.assignmentService.AssignedExercises(c.Request.Context(), patientID)
	if err != nil {
		respondWithError(c, h.log, err)
		return
	}
	if queue == nil {
		queue = []domain.Assignment{}
	}
	c.JSON(http.StatusOK, queue)
}

// StreamAssignments godoc
// @Summary Live exercise queue of a patient
// @Description Server-sent events; every `assignments` event carries the full queue.
// @Tags Assignments
// @Produce text/event-stream
// @Security BearerAuth
// @Param id path string true "Patient ID"
// @Router /patients/{id}/assignments/stream [get]
func (h *PatientHandler) StreamAssignments(c *gin.Context) {
	_, patientID, ok := h.managedPatientID(c)
	if !ok {
		return
	}

	streamSnapshots[[]domain.Assignment](c, h.log, "assignments", func(ctx context.Context, onChange func([]domain.Assignment)) (repository.Unsubscribe, error) {
		return h.assignmentService.SubscribeAssignedExercises(ctx, patientID, onChange)
	})
}

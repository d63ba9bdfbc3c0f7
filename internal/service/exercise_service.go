package service

import (
	"afasia/therapist-portal/internal/domain"
	"afasia/therapist-portal/internal/generator"
	"afasia/therapist-portal/internal/logger"
	"afasia/therapist-portal/internal/repository"
	"context"
	"errors"
	"fmt"
	"strings"
)

// --- Error Definitions ---
var (
	ErrExerciseNotFound     = errors.New("exercise not found")
	ErrExerciseAccessDenied = errors.New("access denied to this exercise")
	ErrValidationFailed     = errors.New("validation failed")
)

// DefaultPageSize matches the size of the review tables.
const DefaultPageSize = 10

// MaxPageSize caps a requested page size.
const MaxPageSize = 100

// ExerciseGenerator is the remote generation/personalization API.
type ExerciseGenerator interface {
	Generate(ctx context.Context, payload map[string]any) (any, error)
	Personalize(ctx context.Context, r generator.PersonalizeRequest) (any, error)
}

// ExerciseFilter narrows the visible list. Zero values mean "any".
type ExerciseFilter struct {
	Therapy      domain.Therapy
	Reviewed     *bool
	PatientEmail string // Substring match on pacienteEmail
	Page         int    // 1-based
	PageSize     int
}

// ExercisePage is one page of the filtered visible list.
type ExercisePage struct {
	Items      []domain.Exercise `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

// CreateExerciseInput carries a manually authored exercise and its detail.
type CreateExerciseInput struct {
	Therapy       domain.Therapy
	Visibility    domain.Visibility
	PatientID     *string
	PatientEmail  string
	Question      string
	CorrectAnswer string
	VNEST         *domain.VNESTDetail
	SR            *domain.SRDetail
}

// ExerciseUpdate holds the editable summary fields; nil means unchanged.
type ExerciseUpdate struct {
	Visibility    *domain.Visibility
	Question      *string
	CorrectAnswer *string
	Reviewed      *bool
}

type ExerciseService interface {
	GetExercise(ctx context.Context, therapistID, exerciseID string) (*domain.Exercise, error)
	GetExerciseDetail(ctx context.Context, therapistID, exerciseID string) (*domain.ExerciseDetail, error)
	ListVisible(ctx context.Context, therapistID string, filter ExerciseFilter) *ExercisePage
	CreateExercise(ctx context.Context, therapistID string, input CreateExerciseInput) (*domain.Exercise, error)
	UpdateExercise(ctx context.Context, therapistID, exerciseID string, update ExerciseUpdate) (*domain.Exercise, error)
	UpdateVNESTDetail(ctx context.Context, therapistID, exerciseID string, detail domain.VNESTDetail, reviewed bool) error
	UpdateSRDetail(ctx context.Context, therapistID, exerciseID string, detail domain.SRDetail) error
	DeleteExercise(ctx context.Context, therapistID, exerciseID string) error
	Generate(ctx context.Context, payload map[string]any) (any, error)
	Personalize(ctx context.Context, therapistID, exerciseID, patientID string, profile map[string]any) (any, error)
}

// exerciseService implements the ExerciseService interface.
type exerciseService struct {
	exerciseRepo repository.ExerciseRepository
	patientRepo  repository.PatientRepository
	visibility   VisibilityResolver
	generator    ExerciseGenerator
	log          *logger.Logger
}

// NewExerciseService creates a new instance of exerciseService.
func NewExerciseService(
	exerciseRepo repository.ExerciseRepository,
	patientRepo repository.PatientRepository,
	visibility VisibilityResolver,
	gen ExerciseGenerator,
	log *logger.Logger,
) ExerciseService {
	return &exerciseService{
		exerciseRepo: exerciseRepo,
		patientRepo:  patientRepo,
		visibility:   visibility,
		generator:    gen,
		log:          log.With("service", "ExerciseService"),
	}
}

// visibleExercise loads an exercise and checks the therapist may see it.
func (s *exerciseService) visibleExercise(ctx context.Context, therapistID, exerciseID string) (*domain.Exercise, error) {
	if therapistID == "" || exerciseID == "" {
		return nil, fmt.Errorf("%w: therapist ID and exercise ID are required", ErrValidationFailed)
	}

	exercise, err := s.exerciseRepo.GetByID(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}

	if !s.visibility.CanSee(ctx, therapistID, exercise) {
		return nil, ErrExerciseAccessDenied
	}
	return exercise, nil
}

// GetExercise retrieves a single visible exercise summary.
func (s *exerciseService) GetExercise(ctx context.Context, therapistID, exerciseID string) (*domain.Exercise, error) {
	return s.visibleExercise(ctx, therapistID, exerciseID)
}

// GetExerciseDetail retrieves the VNEST or SR detail of a visible exercise.
func (s *exerciseService) GetExerciseDetail(ctx context.Context, therapistID, exerciseID string) (*domain.ExerciseDetail, error) {
	exercise, err := s.visibleExercise(ctx, therapistID, exerciseID)
	if err != nil {
		return nil, err
	}
	if !exercise.Therapy.Valid() {
		return nil, fmt.Errorf("%w: exercise %s has no terapia", ErrValidationFailed, exerciseID)
	}

	detail, err := s.exerciseRepo.GetDetail(ctx, exerciseID, exercise.Therapy)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	return detail, nil
}

// ListVisible filters and pages the therapist's visible exercises.
func (s *exerciseService) ListVisible(ctx context.Context, therapistID string, filter ExerciseFilter) *ExercisePage {
	visible := s.visibility.VisibleExercises(ctx, therapistID)
	return Paginate(ApplyFilter(visible, filter), filter.Page, filter.PageSize)
}

// ApplyFilter keeps the exercises matching every set criterion, in order.
func ApplyFilter(exercises []domain.Exercise, filter ExerciseFilter) []domain.Exercise {
	email := strings.ToLower(strings.TrimSpace(filter.PatientEmail))

	out := make([]domain.Exercise, 0, len(exercises))
	for _, e := range exercises {
		if filter.Therapy != "" && e.Therapy != filter.Therapy {
			continue
		}
		if filter.Reviewed != nil && e.Reviewed != *filter.Reviewed {
			continue
		}
		if email != "" && !strings.Contains(strings.ToLower(e.PatientEmail), email) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Paginate cuts a 1-based page out of exercises. Out of range pages are empty.
func Paginate(exercises []domain.Exercise, page, pageSize int) *ExercisePage {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pageSize = min(pageSize, MaxPageSize)
	if page <= 0 {
		page = 1
	}

	total := len(exercises)
	totalPages := (total + pageSize - 1) / pageSize

	// page is compared before multiplying so a huge value cannot overflow.
	start, end := total, total
	if page <= totalPages {
		start = (page - 1) * pageSize
		end = min(start+pageSize, total)
	}

	return &ExercisePage{
		Items:      exercises[start:end],
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// CreateExercise stores a therapist-authored exercise together with its detail.
func (s *exerciseService) CreateExercise(ctx context.Context, therapistID string, input CreateExerciseInput) (*domain.Exercise, error) {
	if therapistID == "" {
		return nil, fmt.Errorf("%w: therapist ID is required", ErrValidationFailed)
	}
	if input.Visibility != domain.VisibilityPublic && input.Visibility != domain.VisibilityPrivate {
		return nil, fmt.Errorf("%w: tipo must be %q or %q", ErrValidationFailed, domain.VisibilityPublic, domain.VisibilityPrivate)
	}

	detail := &domain.ExerciseDetail{Therapy: input.Therapy}
	switch input.Therapy {
	case domain.TherapyVNEST:
		if input.VNEST == nil || strings.TrimSpace(input.VNEST.Verb) == "" {
			return nil, fmt.Errorf("%w: VNEST exercise requires verbo", ErrValidationFailed)
		}
		if !input.VNEST.Level.Valid() {
			return nil, fmt.Errorf("%w: unknown nivel %q", ErrValidationFailed, input.VNEST.Level)
		}
		detail.VNEST = input.VNEST
	case domain.TherapySR:
		if input.SR == nil {
			return nil, fmt.Errorf("%w: SR exercise requires its detail", ErrValidationFailed)
		}
		detail.SR = input.SR
	default:
		return nil, fmt.Errorf("%w: unknown terapia %q", ErrValidationFailed, input.Therapy)
	}

	exercise := &domain.Exercise{
		Therapy:       input.Therapy,
		Visibility:    input.Visibility,
		CreatedBy:     therapistID,
		PatientID:     input.PatientID,
		PatientEmail:  input.PatientEmail,
		Question:      input.Question,
		CorrectAnswer: input.CorrectAnswer,
		Reviewed:      true, // Authored by a therapist
	}
	if err := s.exerciseRepo.Create(ctx, exercise, detail); err != nil {
		return nil, err
	}

	s.log.Info("exercise created", "exerciseId", exercise.ID, "terapia", exercise.Therapy, "therapistId", therapistID)
	return exercise, nil
}

// UpdateExercise applies the set fields of update to a visible exercise summary.
func (s *exerciseService) UpdateExercise(ctx context.Context, therapistID, exerciseID string, update ExerciseUpdate) (*domain.Exercise, error) {
	exercise, err := s.visibleExercise(ctx, therapistID, exerciseID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if update.Visibility != nil {
		v := *update.Visibility
		if v != domain.VisibilityPublic && v != domain.VisibilityPrivate {
			return nil, fmt.Errorf("%w: unknown tipo %q", ErrValidationFailed, v)
		}
		if v == domain.VisibilityPrivate && exercise.CreatedBy == "" {
			return nil, fmt.Errorf("%w: private exercise requires creado_por", ErrValidationFailed)
		}
		fields["tipo"] = v
		exercise.Visibility = v
	}
	if update.Question != nil {
		fields["pregunta"] = *update.Question
		exercise.Question = *update.Question
	}
	if update.CorrectAnswer != nil {
		fields["rta_correcta"] = *update.CorrectAnswer
		exercise.CorrectAnswer = *update.CorrectAnswer
	}
	if update.Reviewed != nil {
		fields["revisado"] = *update.Reviewed
		exercise.Reviewed = *update.Reviewed
	}

	if err := s.exerciseRepo.Update(ctx, exerciseID, fields); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	return exercise, nil
}

// UpdateVNESTDetail saves an edited VNEST detail and then the summary review flag.
// The two writes are not atomic.
func (s *exerciseService) UpdateVNESTDetail(ctx context.Context, therapistID, exerciseID string, detail domain.VNESTDetail, reviewed bool) error {
	exercise, err := s.visibleExercise(ctx, therapistID, exerciseID)
	if err != nil {
		return err
	}
	if exercise.Therapy != domain.TherapyVNEST {
		return fmt.Errorf("%w: exercise %s is not a VNEST exercise", ErrValidationFailed, exerciseID)
	}
	if !detail.Level.Valid() {
		return fmt.Errorf("%w: unknown nivel %q", ErrValidationFailed, detail.Level)
	}

	detail.ID = exerciseID
	detail.Verb = strings.TrimSpace(detail.Verb)
	detail.Context = strings.TrimSpace(detail.Context)

	if err := s.exerciseRepo.UpdateVNESTDetail(ctx, &detail); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrExerciseNotFound
		}
		return err
	}
	return s.exerciseRepo.Update(ctx, exerciseID, map[string]any{"revisado": reviewed})
}

// UpdateSRDetail saves an edited SR detail.
func (s *exerciseService) UpdateSRDetail(ctx context.Context, therapistID, exerciseID string, detail domain.SRDetail) error {
	exercise, err := s.visibleExercise(ctx, therapistID, exerciseID)
	if err != nil {
		return err
	}
	if exercise.Therapy != domain.TherapySR {
		return fmt.Errorf("%w: exercise %s is not an SR exercise", ErrValidationFailed, exerciseID)
	}

	detail.ID = exerciseID
	detail.Context = strings.TrimSpace(detail.Context)

	if err := s.exerciseRepo.UpdateSRDetail(ctx, &detail); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrExerciseNotFound
		}
		return err
	}
	return nil
}

// DeleteExercise removes a visible exercise and its detail.
func (s *exerciseService) DeleteExercise(ctx context.Context, therapistID, exerciseID string) error {
	if _, err := s.visibleExercise(ctx, therapistID, exerciseID); err != nil {
		return err
	}

	err := s.exerciseRepo.Delete(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrExerciseNotFound
		}
		return err
	}

	s.log.Info("exercise deleted", "exerciseId", exerciseID, "therapistId", therapistID)
	return nil
}

// Generate forwards an opaque generation request to the remote API.
func (s *exerciseService) Generate(ctx context.Context, payload map[string]any) (any, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: generation payload is empty", ErrValidationFailed)
	}
	return s.generator.Generate(ctx, payload)
}

// Personalize asks the remote API to adapt a visible exercise to one of the therapist's patients.
func (s *exerciseService) Personalize(ctx context.Context, therapistID, exerciseID, patientID string, profile map[string]any) (any, error) {
	if _, err := s.visibleExercise(ctx, therapistID, exerciseID); err != nil {
		return nil, err
	}

	patient, err := s.patientRepo.GetByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	if !patient.IsManagedBy(therapistID) {
		return nil, ErrPatientNotManaged
	}

	return s.generator.Personalize(ctx, generator.PersonalizeRequest{
		UserID:     patient.ID,
		ExerciseID: exerciseID,
		Profile:    profile,
		CreatedBy:  therapistID,
	})
}

package service

import (
	"afasia/therapist-portal/internal/domain"
	"afasia/therapist-portal/internal/logger"
	"afasia/therapist-portal/internal/repository"
	"context"
	"errors"
	"fmt"
)

// AssignResult describes a successful assignment.
type AssignResult struct {
	OK       bool   `json:"ok"`
	Message  string `json:"message"`
	Priority int    `json:"prioridad"`
}

// AssignmentService coordinates a patient's queue of assigned exercises.
type AssignmentService interface {
	AssignExerciseToPatient(ctx context.Context, patientID, exerciseID string) (*AssignResult, error)
	AssignedExercises(ctx context.Context, patientID string) ([]domain.Assignment, error)
	SubscribeAssignedExercises(ctx context.Context, patientID string, onChange func([]domain.Assignment)) (repository.Unsubscribe, error)
}

type assignmentService struct {
	exerciseRepo repository.ExerciseRepository
	patientRepo  repository.PatientRepository
	log          *logger.Logger
}

// NewAssignmentService creates a new instance of assignmentService.
func NewAssignmentService(exerciseRepo repository.ExerciseRepository, patientRepo repository.PatientRepository, log *logger.Logger) AssignmentService {
	return &assignmentService{
		exerciseRepo: exerciseRepo,
		patientRepo:  patientRepo,
		log:          log.With("service", "AssignmentService"),
	}
}

// AssignExerciseToPatient snapshots the exercise context into the patient's queue with the next
// priority. Re-assigning an exercise replaces its entry and moves it to the end of the queue.
// Nothing is rolled back if a later step fails.
func (s *assignmentService) AssignExerciseToPatient(ctx context.Context, patientID, exerciseID string) (*AssignResult, error) {
	if patientID == "" || exerciseID == "" {
		return nil, fmt.Errorf("%w: patient ID and exercise ID are required", ErrValidationFailed)
	}

	// 1. Exercise summary
	exercise, err := s.exerciseRepo.GetByID(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrExerciseNotFound, exerciseID)
		}
		return nil, err
	}

	// 2. Therapy selects the detail collection
	if exercise.Therapy == "" {
		return nil, fmt.Errorf("%w: exercise %s has no terapia", ErrValidationFailed, exerciseID)
	}
	if !exercise.Therapy.Valid() {
		return nil, fmt.Errorf("%w: exercise %s has unknown terapia %q", ErrValidationFailed, exerciseID, exercise.Therapy)
	}

	// 3. Context snapshot
	detail, err := s.exerciseRepo.GetDetail(ctx, exerciseID, exercise.Therapy)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	snapshot := detail.Context()
	if snapshot == "" {
		return nil, fmt.Errorf("%w: no contexto found for exercise %s (terapia %s)", ErrValidationFailed, exerciseID, exercise.Therapy)
	}

	// 4. Next priority
	queue, err := s.patientRepo.GetAssignments(ctx, patientID)
	if err != nil {
		return nil, err
	}
	priority, err := s.patientRepo.ReservePriority(ctx, patientID, domain.MaxPriority(queue))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPatientNotFound, patientID)
		}
		return nil, err
	}

	// 5. Upsert keyed by exercise id
	assignment := &domain.Assignment{
		PatientID:      patientID,
		ExerciseID:     exerciseID,
		Context:        snapshot,
		Therapy:        exercise.Therapy,
		Status:         domain.StatusPending,
		Priority:       priority,
		LastPerformed:  nil,
		TimesPerformed: 0,
		Personalized:   exercise.Personalized,
	}
	if err := s.patientRepo.UpsertAssignment(ctx, assignment); err != nil {
		return nil, err
	}

	s.log.Info("exercise assigned", "patientId", patientID, "exerciseId", exerciseID, "prioridad", priority)

	return &AssignResult{
		OK:       true,
		Message:  fmt.Sprintf("Exercise %s assigned to patient %s", exerciseID, patientID),
		Priority: priority,
	}, nil
}

// AssignedExercises returns the patient's queue ordered by priority.
func (s *assignmentService) AssignedExercises(ctx context.Context, patientID string) ([]domain.Assignment, error) {
	if patientID == "" {
		return nil, fmt.Errorf("%w: patient ID is required", ErrValidationFailed)
	}
	return s.patientRepo.GetAssignments(ctx, patientID)
}

// SubscribeAssignedExercises calls onChange with the patient's queue now and on every change.
func (s *assignmentService) SubscribeAssignedExercises(ctx context.Context, patientID string, onChange func([]domain.Assignment)) (repository.Unsubscribe, error) {
	if patientID == "" {
		return nil, fmt.Errorf("%w: patient ID is required", ErrValidationFailed)
	}
	return s.patientRepo.WatchAssignments(ctx, patientID, onChange)
}

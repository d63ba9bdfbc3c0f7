package repository

import (
	"afasia/therapist-portal/internal/domain"
	"context"
)

// Error constants for repository layer
var (
	ErrNotFound      = RepositoryError("not found")
	ErrAlreadyExists = RepositoryError("already exists")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Unsubscribe releases a live subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// ExerciseRepository covers `ejercicios` and its two detail collections.
type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise, detail *domain.ExerciseDetail) error
	GetByID(ctx context.Context, id string) (*domain.Exercise, error)
	// GetAll scans the whole summary collection; there is no server-side join for visibility.
	GetAll(ctx context.Context) ([]domain.Exercise, error)
	GetDetail(ctx context.Context, id string, therapy domain.Therapy) (*domain.ExerciseDetail, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	UpdateVNESTDetail(ctx context.Context, detail *domain.VNESTDetail) error
	UpdateSRDetail(ctx context.Context, detail *domain.SRDetail) error
	// Delete removes the summary and, when present, the detail of its therapy.
	Delete(ctx context.Context, id string) error
	// WatchAll calls onChange with the full collection now and after every change.
	WatchAll(ctx context.Context, onChange func([]domain.Exercise)) (Unsubscribe, error)
}

// PatientRepository covers `pacientes` and each patient's `ejercicios_asignados`.
type PatientRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Patient, error)
	GetByEmail(ctx context.Context, email string) (*domain.Patient, error)
	GetIDsByTherapist(ctx context.Context, therapistID string) ([]string, error)
	GetByTherapist(ctx context.Context, therapistID string) ([]domain.Patient, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	SetTherapist(ctx context.Context, patientID, therapistID string) error

	// ReservePriority atomically returns max(stored counter, floor)+1 and stores it.
	ReservePriority(ctx context.Context, patientID string, floor int) (int, error)
	GetAssignments(ctx context.Context, patientID string) ([]domain.Assignment, error)
	// UpsertAssignment creates or replaces the assignment keyed by its exercise id.
	UpsertAssignment(ctx context.Context, assignment *domain.Assignment) error
	WatchAssignments(ctx context.Context, patientID string, onChange func([]domain.Assignment)) (Unsubscribe, error)
}

// TherapistRepository covers `terapeutas`.
type TherapistRepository interface {
	Create(ctx context.Context, therapist *domain.Therapist) error
	GetByID(ctx context.Context, id string) (*domain.Therapist, error)
	// AddPatient union-adds the patient id to the therapist's `pacientes` array.
	AddPatient(ctx context.Context, therapistID, patientID string) error
}

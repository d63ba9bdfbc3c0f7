package service

import (
	"afasia/therapist-portal/internal/domain"
	"afasia/therapist-portal/internal/logger"
	"afasia/therapist-portal/internal/repository"
	"context"
	"errors"
	"fmt"
	"strings"
)

// --- Error Definitions ---
var (
	ErrPatientNotFound        = errors.New("patient not found")
	ErrPatientNotManaged      = errors.New("patient is not managed by this therapist")
	ErrPatientAlreadyAssigned = errors.New("patient is already assigned to another therapist")
	ErrTherapistNotFound      = errors.New("therapist not found")
)

// PatientUpdate holds the editable patient fields; nil means unchanged.
type PatientUpdate struct {
	Name  *string
	Email *string
}

type PatientService interface {
	// Roster management
	LinkPatient(ctx context.Context, therapistID, patientEmail string) (*domain.Patient, error)
	ListRoster(ctx context.Context, therapistID string) ([]domain.Patient, error)

	GetPatient(ctx context.Context, therapistID, patientID string) (*domain.Patient, error)
	GetPatientByEmail(ctx context.Context, therapistID, email string) (*domain.Patient, error)
	UpdatePatient(ctx context.Context, therapistID, patientID string, update PatientUpdate) (*domain.Patient, error)
}

// patientService implements the PatientService interface.
type patientService struct {
	patientRepo   repository.PatientRepository
	therapistRepo repository.TherapistRepository
	log           *logger.Logger
}

// NewPatientService creates a new instance of patientService.
func NewPatientService(patientRepo repository.PatientRepository, therapistRepo repository.TherapistRepository, log *logger.Logger) PatientService {
	return &patientService{
		patientRepo:   patientRepo,
		therapistRepo: therapistRepo,
		log:           log.With("service", "PatientService"),
	}
}

// === Roster Management ===

// LinkPatient finds a patient by email and assigns them to the therapist: the patient records
// the therapist, then the therapist's `pacientes` array gains the patient id.
func (s *patientService) LinkPatient(ctx context.Context, therapistID, patientEmail string) (*domain.Patient, error) {
	patientEmail = strings.TrimSpace(patientEmail)
	if therapistID == "" || patientEmail == "" {
		return nil, fmt.Errorf("%w: therapist ID and patient email are required", ErrValidationFailed)
	}

	patient, err := s.patientRepo.GetByEmail(ctx, patientEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	if patient.TherapistID != nil && *patient.TherapistID != "" {
		if *patient.TherapistID == therapistID {
			return patient, nil
		}
		return nil, ErrPatientAlreadyAssigned
	}

	if err := s.patientRepo.SetTherapist(ctx, patient.ID, therapistID); err != nil {
		return nil, err
	}

	// No rollback of the patient side if this fails.
	if err := s.therapistRepo.AddPatient(ctx, therapistID, patient.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTherapistNotFound
		}
		return nil, err
	}

	s.log.Info("patient linked", "patientId", patient.ID, "therapistId", therapistID)
	patient.TherapistID = &therapistID
	return patient, nil
}

// ListRoster retrieves the patients managed by the therapist.
func (s *patientService) ListRoster(ctx context.Context, therapistID string) ([]domain.Patient, error) {
	if therapistID == "" {
		return nil, fmt.Errorf("%w: therapist ID is required", ErrValidationFailed)
	}
	return s.patientRepo.GetByTherapist(ctx, therapistID)
}

func (s *patientService) managed(therapistID string, patient *domain.Patient) (*domain.Patient, error) {
	if !patient.IsManagedBy(therapistID) {
		return nil, ErrPatientNotManaged
	}
	return patient, nil
}

// GetPatient retrieves a patient of the therapist's roster.
func (s *patientService) GetPatient(ctx context.Context, therapistID, patientID string) (*domain.Patient, error) {
	patient, err := s.patientRepo.GetByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return s.managed(therapistID, patient)
}

// GetPatientByEmail retrieves a patient of the therapist's roster by email.
func (s *patientService) GetPatientByEmail(ctx context.Context, therapistID, email string) (*domain.Patient, error) {
	patient, err := s.patientRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return s.managed(therapistID, patient)
}

// UpdatePatient applies the set fields of update to a managed patient.
func (s *patientService) UpdatePatient(ctx context.Context, therapistID, patientID string, update PatientUpdate) (*domain.Patient, error) {
	patient, err := s.GetPatient(ctx, therapistID, patientID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		fields["nombre"] = name
		patient.Name = name
	}
	if update.Email != nil {
		email := strings.TrimSpace(*update.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email cannot be empty", ErrValidationFailed)
		}
		fields["email"] = email
		patient.Email = email
	}

	if err := s.patientRepo.Update(ctx, patientID, fields); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return patient, nil
}

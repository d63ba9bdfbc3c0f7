package service

import (
	"afasia/therapist-portal/internal/domain"
	"afasia/therapist-portal/internal/generator"
	"afasia/therapist-portal/internal/repository"
	"context"
)

type mockExerciseRepo struct {
	CreateFunc            func(ctx context.Context, exercise *domain.Exercise, detail *domain.ExerciseDetail) error
	GetByIDFunc           func(ctx context.Context, id string) (*domain.Exercise, error)
	GetAllFunc            func(ctx context.Context) ([]domain.Exercise, error)
	GetDetailFunc         func(ctx context.Context, id string, therapy domain.Therapy) (*domain.ExerciseDetail, error)
	UpdateFunc            func(ctx context.Context, id string, fields map[string]any) error
	UpdateVNESTDetailFunc func(ctx context.Context, detail *domain.VNESTDetail) error
	UpdateSRDetailFunc    func(ctx context.Context, detail *domain.SRDetail) error
	DeleteFunc            func(ctx context.Context, id string) error
	WatchAllFunc          func(ctx context.Context, onChange func([]domain.Exercise)) (repository.Unsubscribe, error)
}

func (m *mockExerciseRepo) Create(ctx context.Context, exercise *domain.Exercise, detail *domain.ExerciseDetail) error {
	return m.CreateFunc(ctx, exercise, detail)
}

func (m *mockExerciseRepo) GetByID(ctx context.Context, id string) (*domain.Exercise, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockExerciseRepo) GetAll(ctx context.Context) ([]domain.Exercise, error) {
	return m.GetAllFunc(ctx)
}

func (m *mockExerciseRepo) GetDetail(ctx context.Context, id string, therapy domain.Therapy) (*domain.ExerciseDetail, error) {
	return m.GetDetailFunc(ctx, id, therapy)
}

func (m *mockExerciseRepo) Update(ctx context.Context, id string, fields map[string]any) error {
	return m.UpdateFunc(ctx, id, fields)
}

func (m *mockExerciseRepo) UpdateVNESTDetail(ctx context.Context, detail *domain.VNESTDetail) error {
	return m.UpdateVNESTDetailFunc(ctx, detail)
}

func (m *mockExerciseRepo) UpdateSRDetail(ctx context.Context, detail *domain.SRDetail) error {
	return m.UpdateSRDetailFunc(ctx, detail)
}

func (m *mockExerciseRepo) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

func (m *mockExerciseRepo) WatchAll(ctx context.Context, onChange func([]domain.Exercise)) (repository.Unsubscribe, error) {
	return m.WatchAllFunc(ctx, onChange)
}

type mockPatientRepo struct {
	GetByIDFunc           func(ctx context.Context, id string) (*domain.Patient, error)
	GetByEmailFunc        func(ctx context.Context, email string) (*domain.Patient, error)
	GetIDsByTherapistFunc func(ctx context.Context, therapistID string) ([]string, error)
	GetByTherapistFunc    func(ctx context.Context, therapistID string) ([]domain.Patient, error)
	UpdateFunc            func(ctx context.Context, id string, fields map[string]any) error
	SetTherapistFunc      func(ctx context.Context, patientID, therapistID string) error
	ReservePriorityFunc   func(ctx context.Context, patientID string, floor int) (int, error)
	GetAssignmentsFunc    func(ctx context.Context, patientID string) ([]domain.Assignment, error)
	UpsertAssignmentFunc  func(ctx context.Context, assignment *domain.Assignment) error
	WatchAssignmentsFunc  func(ctx context.Context, patientID string, onChange func([]domain.Assignment)) (repository.Unsubscribe, error)
}

func (m *mockPatientRepo) GetByID(ctx context.Context, id string) (*domain.Patient, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockPatientRepo) GetByEmail(ctx context.Context, email string) (*domain.Patient, error) {
	return m.GetByEmailFunc(ctx, email)
}

func (m *mockPatientRepo) GetIDsByTherapist(ctx context.Context, therapistID string) ([]string, error) {
	return m.GetIDsByTherapistFunc(ctx, therapistID)
}

func (m *mockPatientRepo) GetByTherapist(ctx context.Context, therapistID string) ([]domain.Patient, error) {
	return m.GetByTherapistFunc(ctx, therapistID)
}

func (m *mockPatientRepo) Update(ctx context.Context, id string, fields map[string]any) error {
	return m.UpdateFunc(ctx, id, fields)
}

func (m *mockPatientRepo) SetTherapist(ctx context.Context, patientID, therapistID string) error {
	return m.SetTherapistFunc(ctx, patientID, therapistID)
}

func (m *mockPatientRepo) ReservePriority(ctx context.Context, patientID string, floor int) (int, error) {
	return m.ReservePriorityFunc(ctx, patientID, floor)
}

func (m *mockPatientRepo) GetAssignments(ctx context.Context, patientID string) ([]domain.Assignment, error) {
	return m.GetAssignmentsFunc(ctx, patientID)
}

func (m *mockPatientRepo) UpsertAssignment(ctx context.Context, assignment *domain.Assignment) error {
	return m.UpsertAssignmentFunc(ctx, assignment)
}

func (m *mockPatientRepo) WatchAssignments(ctx context.Context, patientID string, onChange func([]domain.Assignment)) (repository.Unsubscribe, error) {
	return m.WatchAssignmentsFunc(ctx, patientID, onChange)
}

type mockTherapistRepo struct {
	CreateFunc     func(ctx context.Context, therapist *domain.Therapist) error
	GetByIDFunc    func(ctx context.Context, id string) (*domain.Therapist, error)
	AddPatientFunc func(ctx context.Context, therapistID, patientID string) error
}

func (m *mockTherapistRepo) Create(ctx context.Context, therapist *domain.Therapist) error {
	return m.CreateFunc(ctx, therapist)
}

func (m *mockTherapistRepo) GetByID(ctx context.Context, id string) (*domain.Therapist, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockTherapistRepo) AddPatient(ctx context.Context, therapistID, patientID string) error {
	return m.AddPatientFunc(ctx, therapistID, patientID)
}

type mockGenerator struct {
	GenerateFunc    func(ctx context.Context, payload map[string]any) (any, error)
	PersonalizeFunc func(ctx context.Context, r generator.PersonalizeRequest) (any, error)
}

func (m *mockGenerator) Generate(ctx context.Context, payload map[string]any) (any, error) {
	return m.GenerateFunc(ctx, payload)
}

func (m *mockGenerator) Personalize(ctx context.Context, r generator.PersonalizeRequest) (any, error) {
	return m.PersonalizeFunc(ctx, r)
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

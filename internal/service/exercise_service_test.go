package service

import (
	"afasia/therapist-portal/internal/domain"
	"afasia/therapist-portal/internal/generator"
	"afasia/therapist-portal/internal/logger"
	"afasia/therapist-portal/internal/repository"
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogRepo() *mockExerciseRepo {
	return &mockExerciseRepo{
		GetAllFunc: func(ctx context.Context) ([]domain.Exercise, error) {
			return catalog(), nil
		},
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Exercise, error) {
			for _, e := range catalog() {
				if e.ID == id {
					return &e, nil
				}
			}
			return nil, repository.ErrNotFound
		},
	}
}

func newExerciseService(exercises *mockExerciseRepo, patients *mockPatientRepo, gen ExerciseGenerator) ExerciseService {
	return NewExerciseService(exercises, patients, newResolver(exercises, patients), gen, logger.Nop())
}

func TestApplyFilter(t *testing.T) {
	exercises := []domain.Exercise{
		{ID: "a", Therapy: domain.TherapyVNEST, Reviewed: true, PatientEmail: "Maria@example.com"},
		{ID: "b", Therapy: domain.TherapySR, Reviewed: false, PatientEmail: "jose@example.com"},
		{ID: "c", Therapy: domain.TherapyVNEST, Reviewed: false},
		{ID: "d", Therapy: domain.TherapySR, Reviewed: true, PatientEmail: "maria.p@example.com"},
	}

	tests := []struct {
		name   string
		filter ExerciseFilter
		want   []string
	}{
		{"no criteria", ExerciseFilter{}, []string{"a", "b", "c", "d"}},
		{"therapy", ExerciseFilter{Therapy: domain.TherapyVNEST}, []string{"a", "c"}},
		{"not reviewed", ExerciseFilter{Reviewed: boolPtr(false)}, []string{"b", "c"}},
		{"email substring ignores case", ExerciseFilter{PatientEmail: " MARIA "}, []string{"a", "d"}},
		{"combined", ExerciseFilter{Therapy: domain.TherapySR, Reviewed: boolPtr(true), PatientEmail: "maria"}, []string{"d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exerciseIDs(ApplyFilter(exercises, tt.filter)))
		})
	}
}

func TestPaginate(t *testing.T) {
	exercises := make([]domain.Exercise, 23)
	for i := range exercises {
		exercises[i].ID = fmt.Sprintf("e%02d", i)
	}

	page := Paginate(exercises, 0, 0)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	assert.Equal(t, 23, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, "e00", page.Items[0].ID)

	page = Paginate(exercises, 3, 10)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "e20", page.Items[0].ID)

	page = Paginate(exercises, 9, 10)
	assert.Empty(t, page.Items)
	assert.Equal(t, 23, page.Total)

	page = Paginate(nil, 1, 5)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.TotalPages)

	page = Paginate(exercises, 2, math.MaxInt)
	assert.Equal(t, MaxPageSize, page.PageSize)
	assert.Equal(t, 1, page.TotalPages)
	assert.Empty(t, page.Items)

	page = Paginate(exercises, 1, math.MaxInt)
	assert.Len(t, page.Items, 23)

	page = Paginate(exercises, 1<<62+1, 2)
	assert.Empty(t, page.Items)
	assert.Equal(t, 12, page.TotalPages)

	page = Paginate(exercises, math.MaxInt, 10)
	assert.Empty(t, page.Items)
}

func TestListVisible(t *testing.T) {
	s := newExerciseService(catalogRepo(), rosterRepo(map[string][]string{therapistA: {patientP}}), nil)

	page := s.ListVisible(context.Background(), therapistA, ExerciseFilter{Therapy: domain.TherapyVNEST})
	assert.Equal(t, []string{"e1", "e4", "e5"}, exerciseIDs(page.Items))
	assert.Equal(t, 3, page.Total)
}

func TestGetExercise(t *testing.T) {
	s := newExerciseService(catalogRepo(), rosterRepo(map[string][]string{therapistA: {patientP}}), nil)

	e, err := s.GetExercise(context.Background(), therapistA, "e5")
	require.NoError(t, err)
	assert.Equal(t, "e5", e.ID)

	_, err = s.GetExercise(context.Background(), therapistA, "e3")
	assert.ErrorIs(t, err, ErrExerciseAccessDenied)

	_, err = s.GetExercise(context.Background(), therapistA, "nope")
	assert.ErrorIs(t, err, ErrExerciseNotFound)

	_, err = s.GetExercise(context.Background(), "", "e1")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestGetExerciseDetail(t *testing.T) {
	exercises := catalogRepo()
	exercises.GetDetailFunc = func(ctx context.Context, id string, therapy domain.Therapy) (*domain.ExerciseDetail, error) {
		if id == "e1" && therapy == domain.TherapyVNEST {
			return &domain.ExerciseDetail{Therapy: therapy, VNEST: &domain.VNESTDetail{ID: id, Verb: "leer"}}, nil
		}
		return nil, repository.ErrNotFound
	}
	s := newExerciseService(exercises, rosterRepo(nil), nil)

	detail, err := s.GetExerciseDetail(context.Background(), therapistA, "e1")
	require.NoError(t, err)
	require.NotNil(t, detail.VNEST)
	assert.Equal(t, "leer", detail.VNEST.Verb)

	_, err = s.GetExerciseDetail(context.Background(), therapistA, "e8")
	assert.ErrorIs(t, err, ErrExerciseNotFound)
}

func TestCreateExercise(t *testing.T) {
	var created *domain.Exercise
	var createdDetail *domain.ExerciseDetail
	exercises := &mockExerciseRepo{
		CreateFunc: func(ctx context.Context, e *domain.Exercise, d *domain.ExerciseDetail) error {
			e.ID = "new-id"
			created, createdDetail = e, d
			return nil
		},
	}
	s := newExerciseService(exercises, &mockPatientRepo{}, nil)

	e, err := s.CreateExercise(context.Background(), therapistA, CreateExerciseInput{
		Therapy:    domain.TherapyVNEST,
		Visibility: domain.VisibilityPrivate,
		PatientID:  strPtr(patientP),
		VNEST:      &domain.VNESTDetail{Verb: "cocinar", Level: domain.LevelMedium, Context: "Cocina"},
	})
	require.NoError(t, err)
	assert.Equal(t, "new-id", e.ID)
	assert.Equal(t, therapistA, created.CreatedBy)
	assert.True(t, created.Reviewed)
	assert.Equal(t, patientP, created.PatientIDValue())
	require.NotNil(t, createdDetail.VNEST)
	assert.Equal(t, "cocinar", createdDetail.VNEST.Verb)
}

func TestCreateExercise_Validation(t *testing.T) {
	exercises := &mockExerciseRepo{
		CreateFunc: func(ctx context.Context, e *domain.Exercise, d *domain.ExerciseDetail) error {
			t.Fatal("invalid exercise must not be stored")
			return nil
		},
	}
	s := newExerciseService(exercises, &mockPatientRepo{}, nil)

	inputs := map[string]CreateExerciseInput{
		"unknown tipo":    {Therapy: domain.TherapySR, Visibility: "borrador", SR: &domain.SRDetail{}},
		"unknown terapia": {Therapy: "ABC", Visibility: domain.VisibilityPublic},
		"vnest no verb":   {Therapy: domain.TherapyVNEST, Visibility: domain.VisibilityPublic, VNEST: &domain.VNESTDetail{Level: domain.LevelEasy}},
		"vnest bad level": {Therapy: domain.TherapyVNEST, Visibility: domain.VisibilityPublic, VNEST: &domain.VNESTDetail{Verb: "ir", Level: "experto"}},
		"sr no detail":    {Therapy: domain.TherapySR, Visibility: domain.VisibilityPublic},
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := s.CreateExercise(context.Background(), therapistA, input)
			assert.ErrorIs(t, err, ErrValidationFailed)
		})
	}
}

func TestUpdateExercise(t *testing.T) {
	var fields map[string]any
	exercises := catalogRepo()
	exercises.UpdateFunc = func(ctx context.Context, id string, f map[string]any) error {
		fields = f
		return nil
	}
	s := newExerciseService(exercises, rosterRepo(nil), nil)

	public := domain.VisibilityPublic
	e, err := s.UpdateExercise(context.Background(), therapistA, "e2", ExerciseUpdate{
		Visibility: &public,
		Reviewed:   boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.VisibilityPublic, e.Visibility)
	assert.Equal(t, map[string]any{"tipo": domain.VisibilityPublic, "revisado": true}, fields)

	_, err = s.UpdateExercise(context.Background(), therapistA, "e3", ExerciseUpdate{Reviewed: boolPtr(true)})
	assert.ErrorIs(t, err, ErrExerciseAccessDenied)
}

func TestUpdateVNESTDetail(t *testing.T) {
	var saved *domain.VNESTDetail
	var summaryFields map[string]any
	exercises := catalogRepo()
	exercises.UpdateVNESTDetailFunc = func(ctx context.Context, d *domain.VNESTDetail) error {
		saved = d
		return nil
	}
	exercises.UpdateFunc = func(ctx context.Context, id string, f map[string]any) error {
		assert.Equal(t, "e1", id)
		summaryFields = f
		return nil
	}
	s := newExerciseService(exercises, rosterRepo(nil), nil)

	err := s.UpdateVNESTDetail(context.Background(), therapistA, "e1", domain.VNESTDetail{
		Verb:    "  pintar ",
		Level:   domain.LevelHard,
		Context: " Taller ",
	}, true)
	require.NoError(t, err)
	assert.Equal(t, "e1", saved.ID)
	assert.Equal(t, "pintar", saved.Verb)
	assert.Equal(t, "Taller", saved.Context)
	assert.Equal(t, map[string]any{"revisado": true}, summaryFields)

	err = s.UpdateVNESTDetail(context.Background(), therapistA, "e8", domain.VNESTDetail{Level: domain.LevelEasy}, true)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestUpdateSRDetail(t *testing.T) {
	exercises := catalogRepo()
	exercises.UpdateSRDetailFunc = func(ctx context.Context, d *domain.SRDetail) error {
		return repository.ErrNotFound
	}
	s := newExerciseService(exercises, rosterRepo(nil), nil)

	err := s.UpdateSRDetail(context.Background(), therapistA, "e8", domain.SRDetail{Context: "Parque"})
	assert.ErrorIs(t, err, ErrExerciseNotFound)

	err = s.UpdateSRDetail(context.Background(), therapistA, "e1", domain.SRDetail{})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestDeleteExercise(t *testing.T) {
	var deleted []string
	exercises := catalogRepo()
	exercises.DeleteFunc = func(ctx context.Context, id string) error {
		deleted = append(deleted, id)
		return nil
	}
	s := newExerciseService(exercises, rosterRepo(nil), nil)

	require.NoError(t, s.DeleteExercise(context.Background(), therapistA, "e2"))

	err := s.DeleteExercise(context.Background(), therapistA, "e3")
	assert.ErrorIs(t, err, ErrExerciseAccessDenied)

	err = s.DeleteExercise(context.Background(), therapistA, "missing")
	assert.ErrorIs(t, err, ErrExerciseNotFound)

	assert.Equal(t, []string{"e2"}, deleted)
}

func TestGenerate(t *testing.T) {
	gen := &mockGenerator{
		GenerateFunc: func(ctx context.Context, payload map[string]any) (any, error) {
			return map[string]any{"id": "g1", "verbo": payload["verbo"]}, nil
		},
	}
	s := newExerciseService(&mockExerciseRepo{}, &mockPatientRepo{}, gen)

	out, err := s.Generate(context.Background(), map[string]any{"verbo": "saltar"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "g1", "verbo": "saltar"}, out)

	_, err = s.Generate(context.Background(), nil)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestPersonalize(t *testing.T) {
	patients := map[string]*domain.Patient{
		patientP: {ID: patientP, Email: patientP, TherapistID: strPtr(therapistA)},
		patientQ: {ID: patientQ, Email: patientQ, TherapistID: strPtr(therapistB)},
	}
	patientRepo := rosterRepo(map[string][]string{therapistA: {patientP}})
	patientRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Patient, error) {
		if p, ok := patients[id]; ok {
			return p, nil
		}
		return nil, repository.ErrNotFound
	}

	var sent generator.PersonalizeRequest
	gen := &mockGenerator{
		PersonalizeFunc: func(ctx context.Context, r generator.PersonalizeRequest) (any, error) {
			sent = r
			return map[string]any{"id": "p1"}, nil
		},
	}
	s := newExerciseService(catalogRepo(), patientRepo, gen)

	profile := map[string]any{"hobbies": []string{"fútbol"}}
	out, err := s.Personalize(context.Background(), therapistA, "e1", patientP, profile)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "p1"}, out)
	assert.Equal(t, generator.PersonalizeRequest{UserID: patientP, ExerciseID: "e1", Profile: profile, CreatedBy: therapistA}, sent)

	_, err = s.Personalize(context.Background(), therapistA, "e1", patientQ, profile)
	assert.ErrorIs(t, err, ErrPatientNotManaged)

	_, err = s.Personalize(context.Background(), therapistA, "e1", "ghost@example.com", profile)
	assert.ErrorIs(t, err, ErrPatientNotFound)

	_, err = s.Personalize(context.Background(), therapistA, "e3", patientP, profile)
	assert.ErrorIs(t, err, ErrExerciseAccessDenied)
}

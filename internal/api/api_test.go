package api

import (
	"afasia/therapist-portal/internal/domain"
	"afasia/therapist-portal/internal/logger"
	"afasia/therapist-portal/internal/repository"
	"afasia/therapist-portal/internal/service"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

const (
	testSecret    = "api-test-secret"
	testTherapist = "ana.terapeuta@example.com"
	testPatient   = "paciente1@example.com"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Fakes embed the service interface so only the methods a test sets need an implementation.

type fakeAuthService struct {
	service.AuthService
}

type fakeExerciseService struct {
	service.ExerciseService
	listVisible func(therapistID string, filter service.ExerciseFilter) *service.ExercisePage
	getExercise func(therapistID, exerciseID string) error
	deleteFunc  func(therapistID, exerciseID string) error
	generate    func(payload map[string]any) (any, error)
}

func (f *fakeExerciseService) ListVisible(ctx context.Context, therapistID string, filter service.ExerciseFilter) *service.ExercisePage {
	return f.listVisible(therapistID, filter)
}

func (f *fakeExerciseService) GetExercise(ctx context.Context, therapistID, exerciseID string) (*domain.Exercise, error) {
	if err := f.getExercise(therapistID, exerciseID); err != nil {
		return nil, err
	}
	return &domain.Exercise{ID: exerciseID}, nil
}

func (f *fakeExerciseService) DeleteExercise(ctx context.Context, therapistID, exerciseID string) error {
	return f.deleteFunc(therapistID, exerciseID)
}

func (f *fakeExerciseService) Generate(ctx context.Context, payload map[string]any) (any, error) {
	return f.generate(payload)
}

type fakeVisibility struct {
	service.VisibilityResolver
}

type fakePatientService struct {
	service.PatientService
	getPatient func(therapistID, patientID string) (*domain.Patient, error)
	listRoster func(therapistID string) ([]domain.Patient, error)
}

func (f *fakePatientService) GetPatient(ctx context.Context, therapistID, patientID string) (*domain.Patient, error) {
	return f.getPatient(therapistID, patientID)
}

// GetPatientByEmail shares getPatient; patient ids are their emails.
func (f *fakePatientService) GetPatientByEmail(ctx context.Context, therapistID, email string) (*domain.Patient, error) {
	return f.getPatient(therapistID, email)
}

func (f *fakePatientService) ListRoster(ctx context.Context, therapistID string) ([]domain.Patient, error) {
	return f.listRoster(therapistID)
}

type fakeAssignmentService struct {
	service.AssignmentService
	assign    func(patientID, exerciseID string) (*service.AssignResult, error)
	subscribe func(patientID string, onChange func([]domain.Assignment)) (repository.Unsubscribe, error)
}

func (f *fakeAssignmentService) AssignExerciseToPatient(ctx context.Context, patientID, exerciseID string) (*service.AssignResult, error) {
	return f.assign(patientID, exerciseID)
}

func (f *fakeAssignmentService) SubscribeAssignedExercises(ctx context.Context, patientID string, onChange func([]domain.Assignment)) (repository.Unsubscribe, error) {
	return f.subscribe(patientID, onChange)
}

// managedPatients answers GetPatient for testPatient only, managed by testTherapist.
func managedPatients() *fakePatientService {
	return &fakePatientService{
		getPatient: func(therapistID, patientID string) (*domain.Patient, error) {
			if patientID != testPatient {
				return nil, service.ErrPatientNotFound
			}
			if therapistID != testTherapist {
				return nil, service.ErrPatientNotManaged
			}
			return &domain.Patient{ID: patientID, Email: patientID, TherapistID: &therapistID}, nil
		},
	}
}

func newTestRouter(services Services) *gin.Engine {
	if services.Auth == nil {
		services.Auth = &fakeAuthService{}
	}
	if services.Exercises == nil {
		services.Exercises = &fakeExerciseService{}
	}
	if services.Visibility == nil {
		services.Visibility = &fakeVisibility{}
	}
	if services.Patients == nil {
		services.Patients = &fakePatientService{}
	}
	if services.Assignment == nil {
		services.Assignment = &fakeAssignmentService{}
	}

	router := gin.New()
	SetupRoutes(router, testSecret, services, logger.Nop())
	return router
}

func signToken(t *testing.T, secret, therapistID string, expiresIn time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := &service.TokenClaims{
		TherapistID: therapistID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   therapistID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    service.TokenIssuer,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, testTherapist, time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

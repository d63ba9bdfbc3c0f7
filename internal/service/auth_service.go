package service

import (
	"afasia/therapist-portal/internal/domain"
	"afasia/therapist-portal/internal/repository"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// --- Error Definitions ---
var (
	ErrTherapistAlreadyExists = errors.New("therapist with this email already exists")
	ErrAuthenticationFailed   = errors.New("authentication failed: invalid email or password")
	ErrHashingFailed          = errors.New("failed to hash password")
	ErrTokenGeneration        = errors.New("failed to generate authentication token")
)

// TokenIssuer identifies tokens minted by this service.
const TokenIssuer = "therapist-portal"

// TokenClaims is the JWT payload. TherapistID is the therapist document id.
type TokenClaims struct {
	TherapistID string `json:"uid"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*domain.Therapist, error)
	Login(ctx context.Context, email, password string) (token string, therapist *domain.Therapist, err error)
}

// authService implements the AuthService interface.
type authService struct {
	therapistRepo repository.TherapistRepository
	jwtSecret     string
	jwtExpiration time.Duration
}

// NewAuthService creates a new instance of authService.
func NewAuthService(therapistRepo repository.TherapistRepository, jwtSecret string, jwtExpiration time.Duration) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour
	}
	return &authService{
		therapistRepo: therapistRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// Register creates a therapist account keyed by email.
func (s *authService) Register(ctx context.Context, name, email, password string) (*domain.Therapist, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password cannot be empty", ErrValidationFailed)
	}

	_, err := s.therapistRepo.GetByID(ctx, email)
	if err == nil {
		return nil, ErrTherapistAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrHashingFailed
	}

	therapist := &domain.Therapist{
		ID:           email,
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	if err := s.therapistRepo.Create(ctx, therapist); err != nil {
		// Lost a race with another registration of the same email.
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrTherapistAlreadyExists
		}
		return nil, err
	}

	therapist.PasswordHash = ""
	return therapist, nil
}

// Login checks the password and issues a signed token.
func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.Therapist, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, fmt.Errorf("%w: email and password cannot be empty", ErrValidationFailed)
	}

	therapist, err := s.therapistRepo.GetByID(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrAuthenticationFailed
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(therapist.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrAuthenticationFailed
	}

	token, err := s.generateJWT(therapist)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}

	therapist.PasswordHash = ""
	return token, therapist, nil
}

// generateJWT creates a new HS256 token for the therapist.
func (s *authService) generateJWT(therapist *domain.Therapist) (string, error) {
	now := time.Now()
	claims := &TokenClaims{
		TherapistID: therapist.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   therapist.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    TokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

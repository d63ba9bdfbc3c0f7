package service

import (
	"afasia/therapist-portal/internal/domain"
	"afasia/therapist-portal/internal/logger"
	"afasia/therapist-portal/internal/repository"
	"context"
)

// VisibilityResolver decides which exercises a therapist may see. Every failure degrades to
// "nothing visible".
type VisibilityResolver interface {
	VisibleExercises(ctx context.Context, therapistID string) []domain.Exercise
	SubscribeVisibleExercises(ctx context.Context, therapistID string, onChange func([]domain.Exercise)) repository.Unsubscribe
	CanSee(ctx context.Context, therapistID string, exercise *domain.Exercise) bool
}

type visibilityResolver struct {
	exerciseRepo repository.ExerciseRepository
	patientRepo  repository.PatientRepository
	log          *logger.Logger
}

// NewVisibilityResolver creates a new instance of visibilityResolver.
func NewVisibilityResolver(exerciseRepo repository.ExerciseRepository, patientRepo repository.PatientRepository, log *logger.Logger) VisibilityResolver {
	return &visibilityResolver{
		exerciseRepo: exerciseRepo,
		patientRepo:  patientRepo,
		log:          log.With("service", "VisibilityResolver"),
	}
}

// Roster is the set of patient ids managed by a therapist.
type Roster map[string]struct{}

func NewRoster(ids []string) Roster {
	r := make(Roster, len(ids))
	for _, id := range ids {
		r[id] = struct{}{}
	}
	return r
}

func (r Roster) Has(id string) bool {
	if id == "" {
		return false
	}
	_, ok := r[id]
	return ok
}

// IsVisible is the visibility rule shared by the one-shot and live variants.
// Public exercises are visible to everyone. Private exercises are visible to their creator,
// and to the therapist of the patient who created them or for whom they were created.
func IsVisible(e *domain.Exercise, therapistID string, roster Roster) bool {
	switch e.Visibility {
	case domain.VisibilityPublic:
		return true
	case domain.VisibilityPrivate:
		if therapistID != "" && e.CreatedBy == therapistID {
			return true
		}
		return roster.Has(e.CreatedBy) || roster.Has(e.PatientIDValue())
	}
	return false
}

// FilterVisible keeps the visible exercises in their original order.
func FilterVisible(exercises []domain.Exercise, therapistID string, roster Roster) []domain.Exercise {
	visible := make([]domain.Exercise, 0, len(exercises))
	for i := range exercises {
		if IsVisible(&exercises[i], therapistID, roster) {
			visible = append(visible, exercises[i])
		}
	}
	return visible
}

func (s *visibilityResolver) roster(ctx context.Context, therapistID string) (Roster, error) {
	ids, err := s.patientRepo.GetIDsByTherapist(ctx, therapistID)
	if err != nil {
		return nil, err
	}
	return NewRoster(ids), nil
}

// VisibleExercises returns a snapshot of the exercises the therapist may see.
func (s *visibilityResolver) VisibleExercises(ctx context.Context, therapistID string) []domain.Exercise {
	if therapistID == "" {
		return []domain.Exercise{}
	}

	roster, err := s.roster(ctx, therapistID)
	if err != nil {
		s.log.Warn("failed to load roster, hiding all exercises", "therapistId", therapistID, "error", err)
		return []domain.Exercise{}
	}

	exercises, err := s.exerciseRepo.GetAll(ctx)
	if err != nil {
		s.log.Warn("failed to load exercises, hiding all exercises", "therapistId", therapistID, "error", err)
		return []domain.Exercise{}
	}

	return FilterVisible(exercises, therapistID, roster)
}

// SubscribeVisibleExercises calls onChange with the visible set now and after every change to
// the exercise collection. The roster is resolved once, at subscription time. On failure the
// returned Unsubscribe is a no-op and onChange is never called.
func (s *visibilityResolver) SubscribeVisibleExercises(ctx context.Context, therapistID string, onChange func([]domain.Exercise)) repository.Unsubscribe {
	noop := func() {}
	if therapistID == "" {
		return noop
	}

	roster, err := s.roster(ctx, therapistID)
	if err != nil {
		s.log.Warn("failed to load roster, subscription not started", "therapistId", therapistID, "error", err)
		return noop
	}

	unsubscribe, err := s.exerciseRepo.WatchAll(ctx, func(exercises []domain.Exercise) {
		onChange(FilterVisible(exercises, therapistID, roster))
	})
	if err != nil {
		s.log.Warn("failed to watch exercises, subscription not started", "therapistId", therapistID, "error", err)
		return noop
	}
	return unsubscribe
}

// CanSee applies the visibility rule to a single exercise.
func (s *visibilityResolver) CanSee(ctx context.Context, therapistID string, exercise *domain.Exercise) bool {
	if exercise == nil || therapistID == "" {
		return false
	}
	if !exercise.IsPublic() && !exercise.IsPrivate() {
		return false
	}
	// Public and own exercises are decided without loading the roster.
	if IsVisible(exercise, therapistID, nil) {
		return true
	}

	roster, err := s.roster(ctx, therapistID)
	if err != nil {
		s.log.Warn("failed to load roster, denying access", "therapistId", therapistID, "exerciseId", exercise.ID, "error", err)
		return false
	}
	return IsVisible(exercise, therapistID, roster)
}

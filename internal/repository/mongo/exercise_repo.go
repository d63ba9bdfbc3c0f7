package mongo

import (
	"afasia/therapist-portal/internal/domain"
	"afasia/therapist-portal/internal/logger"
	"afasia/therapist-portal/internal/repository"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	exerciseCollectionName = "ejercicios"
	vnestCollectionName    = "ejercicios_VNEST"
	srCollectionName       = "ejercicios_SR"
)

// mongoExerciseRepository implements repository.ExerciseRepository
type mongoExerciseRepository struct {
	collection *mongo.Collection
	vnest      *mongo.Collection
	sr         *mongo.Collection
	log        *logger.Logger
}

// NewMongoExerciseRepository creates a new Exercise repository backed by MongoDB.
func NewMongoExerciseRepository(db *mongo.Database, log *logger.Logger) repository.ExerciseRepository {
	return &mongoExerciseRepository{
		collection: db.Collection(exerciseCollectionName),
		vnest:      db.Collection(vnestCollectionName),
		sr:         db.Collection(srCollectionName),
		log:        log.With("repository", exerciseCollectionName),
	}
}

func (r *mongoExerciseRepository) detailCollection(therapy domain.Therapy) (*mongo.Collection, bool) {
	switch therapy {
	case domain.TherapyVNEST:
		return r.vnest, true
	case domain.TherapySR:
		return r.sr, true
	}
	return nil, false
}

// Create inserts the summary and its detail document under the same id.
// A missing id is generated.
func (r *mongoExerciseRepository) Create(ctx context.Context, exercise *domain.Exercise, detail *domain.ExerciseDetail) error {
	if !exercise.Therapy.Valid() {
		return fmt.Errorf("exercise therapy %q is not supported", exercise.Therapy)
	}
	if exercise.IsPrivate() && exercise.CreatedBy == "" {
		return errors.New("private exercise requires creado_por")
	}
	if detail == nil || detail.Therapy != exercise.Therapy {
		return errors.New("exercise detail does not match its therapy")
	}

	if exercise.ID == "" {
		exercise.ID = uuid.NewString()
	}

	if _, err := r.collection.InsertOne(ctx, exercise); err != nil {
		return err
	}

	var err error
	switch exercise.Therapy {
	case domain.TherapyVNEST:
		detail.VNEST.ID = exercise.ID
		_, err = r.vnest.InsertOne(ctx, detail.VNEST)
	case domain.TherapySR:
		detail.SR.ID = exercise.ID
		_, err = r.sr.InsertOne(ctx, detail.SR)
	}
	return err
}

// GetByID retrieves an exercise summary by its ID.
func (r *mongoExerciseRepository) GetByID(ctx context.Context, id string) (*domain.Exercise, error) {
	var exercise domain.Exercise
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&exercise)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &exercise, nil
}

// GetAll returns every exercise summary ordered by id.
func (r *mongoExerciseRepository) GetAll(ctx context.Context) ([]domain.Exercise, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	exercises := []domain.Exercise{}
	if err = cursor.All(ctx, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// GetDetail loads the detail document from the collection of the given therapy.
func (r *mongoExerciseRepository) GetDetail(ctx context.Context, id string, therapy domain.Therapy) (*domain.ExerciseDetail, error) {
	collection, ok := r.detailCollection(therapy)
	if !ok {
		return nil, fmt.Errorf("exercise therapy %q is not supported", therapy)
	}

	detail := &domain.ExerciseDetail{Therapy: therapy}
	var target any
	switch therapy {
	case domain.TherapyVNEST:
		detail.VNEST = &domain.VNESTDetail{}
		target = detail.VNEST
	case domain.TherapySR:
		detail.SR = &domain.SRDetail{}
		target = detail.SR
	}

	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(target)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return detail, nil
}

// Update sets the given summary fields. Field names are the stored ones.
func (r *mongoExerciseRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdateVNESTDetail replaces the editable fields of an existing VNEST detail.
func (r *mongoExerciseRepository) UpdateVNESTDetail(ctx context.Context, detail *domain.VNESTDetail) error {
	update := bson.M{
		"$set": bson.M{
			"verbo":     detail.Verb,
			"nivel":     detail.Level,
			"contexto":  detail.Context,
			"pares":     detail.Pairs,
			"oraciones": detail.Sentences,
		},
	}
	result, err := r.vnest.UpdateOne(ctx, bson.M{"_id": detail.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdateSRDetail replaces the editable fields of an existing SR detail.
func (r *mongoExerciseRepository) UpdateSRDetail(ctx context.Context, detail *domain.SRDetail) error {
	update := bson.M{
		"$set": bson.M{
			"contexto":     detail.Context,
			"pregunta":     detail.Question,
			"rta_correcta": detail.CorrectAnswer,
		},
	}
	result, err := r.sr.UpdateOne(ctx, bson.M{"_id": detail.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes the summary and then the detail of its therapy. A missing detail is not an error.
func (r *mongoExerciseRepository) Delete(ctx context.Context, id string) error {
	exercise, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}

	collection, ok := r.detailCollection(exercise.Therapy)
	if !ok {
		r.log.Debug("exercise has no therapy, no detail to delete", "id", id)
		return nil
	}
	if _, err := collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return err
	}
	return nil
}

// WatchAll emits the full summary collection now and on every change.
func (r *mongoExerciseRepository) WatchAll(ctx context.Context, onChange func([]domain.Exercise)) (repository.Unsubscribe, error) {
	return watchCollection(ctx, r.collection, nil, r.log, func(ctx context.Context) error {
		exercises, err := r.GetAll(ctx)
		if err != nil {
			return err
		}
		onChange(exercises)
		return nil
	})
}

// EnsureExerciseIndexes creates necessary indexes for the exercises collection.
func EnsureExerciseIndexes(ctx context.Context, collection *mongo.Collection, log *logger.Logger) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{
			// Ownership of private exercises
			Keys:    bson.D{{Key: "creado_por", Value: 1}},
			Options: options.Index(),
		},
		{
			// Exercises created for a specific patient
			Keys:    bson.D{{Key: "id_paciente", Value: 1}},
			Options: options.Index(),
		},
		{
			// Review tables filter by therapy and review state
			Keys:    bson.D{{Key: "terapia", Value: 1}, {Key: "revisado", Value: 1}},
			Options: options.Index(),
		},
	}, log)
}

package mongo

import (
	"afasia/therapist-portal/internal/domain"
	"afasia/therapist-portal/internal/logger"
	"afasia/therapist-portal/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const therapistCollectionName = "terapeutas"

// mongoTherapistRepository implements repository.TherapistRepository.
type mongoTherapistRepository struct {
	collection *mongo.Collection
}

// NewMongoTherapistRepository creates a new Therapist repository backed by MongoDB.
func NewMongoTherapistRepository(db *mongo.Database) repository.TherapistRepository {
	return &mongoTherapistRepository{
		collection: db.Collection(therapistCollectionName),
	}
}

// Create inserts a new therapist. The id defaults to the email.
func (r *mongoTherapistRepository) Create(ctx context.Context, therapist *domain.Therapist) error {
	if therapist.Email == "" || therapist.PasswordHash == "" {
		return errors.New("therapist email and password hash are required")
	}
	if therapist.ID == "" {
		therapist.ID = therapist.Email
	}

	_, err := r.collection.InsertOne(ctx, therapist)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetByID retrieves a therapist by id.
func (r *mongoTherapistRepository) GetByID(ctx context.Context, id string) (*domain.Therapist, error) {
	var therapist domain.Therapist
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&therapist)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &therapist, nil
}

// AddPatient adds a patient id to the therapist's `pacientes` array.
func (r *mongoTherapistRepository) AddPatient(ctx context.Context, therapistID, patientID string) error {
	update := bson.M{
		"$addToSet": bson.M{"pacientes": patientID}, // $addToSet prevents duplicates
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": therapistID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureTherapistIndexes creates necessary indexes for the therapists collection.
func EnsureTherapistIndexes(ctx context.Context, collection *mongo.Collection, log *logger.Logger) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}, log)
}

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

const patientCollectionName = "pacientes"

// mongoPatientRepository implements repository.PatientRepository. Assignment methods live
// in assignment_repo.go.
type mongoPatientRepository struct {
	collection  *mongo.Collection
	assignments *mongo.Collection
	log         *logger.Logger
}

// NewMongoPatientRepository creates a new Patient repository backed by MongoDB.
func NewMongoPatientRepository(db *mongo.Database, log *logger.Logger) repository.PatientRepository {
	return &mongoPatientRepository{
		collection:  db.Collection(patientCollectionName),
		assignments: db.Collection(assignmentCollectionName),
		log:         log.With("repository", patientCollectionName),
	}
}

func (r *mongoPatientRepository) findOne(ctx context.Context, filter bson.M) (*domain.Patient, error) {
	var patient domain.Patient
	err := r.collection.FindOne(ctx, filter).Decode(&patient)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &patient, nil
}

// GetByID retrieves a patient by id.
func (r *mongoPatientRepository) GetByID(ctx context.Context, id string) (*domain.Patient, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail retrieves the first patient with the given email.
func (r *mongoPatientRepository) GetByEmail(ctx context.Context, email string) (*domain.Patient, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetIDsByTherapist returns the ids of the therapist's roster.
func (r *mongoPatientRepository) GetIDsByTherapist(ctx context.Context, therapistID string) ([]string, error) {
	findOptions := options.Find().SetProjection(bson.M{"_id": 1})

	cursor, err := r.collection.Find(ctx, bson.M{"terapeuta": therapistID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID string `bson:"_id"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids, nil
}

// GetByTherapist returns the full patient documents of the therapist's roster.
func (r *mongoPatientRepository) GetByTherapist(ctx context.Context, therapistID string) ([]domain.Patient, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "email", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"terapeuta": therapistID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	patients := []domain.Patient{}
	if err = cursor.All(ctx, &patients); err != nil {
		return nil, err
	}
	return patients, nil
}

// Update sets the given patient fields. Field names are the stored ones.
func (r *mongoPatientRepository) Update(ctx context.Context, id string, fields map[string]any) error {
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

// SetTherapist records the therapist managing the patient.
func (r *mongoPatientRepository) SetTherapist(ctx context.Context, patientID, therapistID string) error {
	return r.Update(ctx, patientID, map[string]any{"terapeuta": therapistID})
}

// EnsurePatientIndexes creates necessary indexes for the patients collection.
func EnsurePatientIndexes(ctx context.Context, collection *mongo.Collection, log *logger.Logger) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{
			// Roster lookups
			Keys:    bson.D{{Key: "terapeuta", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index(),
		},
	}, log)
}

package mongo

import (
	"afasia/therapist-portal/internal/domain"
	"afasia/therapist-portal/internal/logger"
	"afasia/therapist-portal/internal/repository"
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Assignments are the `pacientes/{id}/ejercicios_asignados` sub-collection. MongoDB has no
// nested collections, so they share one collection keyed by their document path.
const assignmentCollectionName = "ejercicios_asignados"

// assignmentPath is the document key of a patient's assignment of an exercise.
func assignmentPath(patientID, exerciseID string) string {
	return assignmentPrefix(patientID) + exerciseID
}

func assignmentPrefix(patientID string) string {
	return patientCollectionName + "/" + patientID + "/" + assignmentCollectionName + "/"
}

// ReservePriority bumps the patient's `ultima_prioridad` to max(current, floor)+1 in a single
// atomic update and returns the new value.
func (r *mongoPatientRepository) ReservePriority(ctx context.Context, patientID string, floor int) (int, error) {
	next := bson.D{{Key: "$add", Value: bson.A{
		bson.D{{Key: "$max", Value: bson.A{
			bson.D{{Key: "$ifNull", Value: bson.A{"$ultima_prioridad", 0}}},
			floor,
		}}},
		1,
	}}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "ultima_prioridad", Value: next}}}},
	}
	findOptions := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"ultima_prioridad": 1})

	var patient domain.Patient
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": patientID}, update, findOptions).Decode(&patient)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, repository.ErrNotFound
		}
		return 0, err
	}
	return patient.LastPriority, nil
}

// GetAssignments returns the patient's queue ordered by prioridad.
func (r *mongoPatientRepository) GetAssignments(ctx context.Context, patientID string) ([]domain.Assignment, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "prioridad", Value: 1}})

	cursor, err := r.assignments.Find(ctx, bson.M{"id_paciente": patientID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	assignments := []domain.Assignment{}
	if err = cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

// UpsertAssignment creates or replaces the assignment stored under the exercise id and stamps
// the assignment time.
func (r *mongoPatientRepository) UpsertAssignment(ctx context.Context, assignment *domain.Assignment) error {
	if assignment.PatientID == "" || assignment.ExerciseID == "" {
		return errors.New("assignment requires id_paciente and id_ejercicio")
	}
	assignment.AssignedAt = time.Now().UTC()

	filter := bson.M{"_id": assignmentPath(assignment.PatientID, assignment.ExerciseID)}
	_, err := r.assignments.ReplaceOne(ctx, filter, assignment, options.Replace().SetUpsert(true))
	return err
}

// WatchAssignments emits the patient's queue now and on every change to it.
func (r *mongoPatientRepository) WatchAssignments(ctx context.Context, patientID string, onChange func([]domain.Assignment)) (repository.Unsubscribe, error) {
	match := bson.M{"documentKey._id": bson.M{"$regex": "^" + regexp.QuoteMeta(assignmentPrefix(patientID))}}
	return watchCollection(ctx, r.assignments, match, r.log, func(ctx context.Context) error {
		assignments, err := r.GetAssignments(ctx, patientID)
		if err != nil {
			return err
		}
		onChange(assignments)
		return nil
	})
}

// EnsureAssignmentIndexes creates necessary indexes for the assignments collection.
func EnsureAssignmentIndexes(ctx context.Context, collection *mongo.Collection, log *logger.Logger) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{
			// One assignment per exercise per patient
			Keys:    bson.D{{Key: "id_paciente", Value: 1}, {Key: "id_ejercicio", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Queue order
			Keys:    bson.D{{Key: "id_paciente", Value: 1}, {Key: "prioridad", Value: 1}},
			Options: options.Index(),
		},
	}, log)
}

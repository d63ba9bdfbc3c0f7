package mongo

import (
	"afasia/therapist-portal/internal/logger"
	"afasia/therapist-portal/internal/repository"
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI.
// Live subscriptions rely on change streams, so the deployment must be a replica set.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Ping the primary node to verify the connection.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes of every collection used by the portal.
func EnsureIndexes(ctx context.Context, db *mongo.Database, log *logger.Logger) {
	EnsureExerciseIndexes(ctx, db.Collection(exerciseCollectionName), log)
	EnsurePatientIndexes(ctx, db.Collection(patientCollectionName), log)
	EnsureAssignmentIndexes(ctx, db.Collection(assignmentCollectionName), log)
	EnsureTherapistIndexes(ctx, db.Collection(therapistCollectionName), log)
}

func createIndexes(ctx context.Context, collection *mongo.Collection, indexes []mongo.IndexModel, log *logger.Logger) {
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Warn("failed to create indexes", "collection", collection.Name(), "error", err)
	}
}

// watchCollection opens a change stream on collection and calls emit once up front and
// again after every change event. Events are handled one at a time on a single goroutine.
func watchCollection(ctx context.Context, collection *mongo.Collection, match bson.M, log *logger.Logger, emit func(ctx context.Context) error) (repository.Unsubscribe, error) {
	ctx, cancel := context.WithCancel(ctx)

	pipeline := mongo.Pipeline{}
	if len(match) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	}

	stream, err := collection.Watch(ctx, pipeline)
	if err != nil {
		cancel()
		return nil, err
	}

	if err := emit(ctx); err != nil {
		_ = stream.Close(context.Background())
		cancel()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			if err := emit(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn("failed to reload snapshot after change", "collection", collection.Name(), "error", err)
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			log.Error("change stream terminated", "collection", collection.Name(), "error", err)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

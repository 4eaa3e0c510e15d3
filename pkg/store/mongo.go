package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/zen-systems/promptroute/pkg/feedback"
	"github.com/zen-systems/promptroute/pkg/preference"
	"github.com/zen-systems/promptroute/pkg/route"
)

const (
	collectionPreferences = "route_preferences"
	collectionSamples     = "routing_metric_samples"
)

// MongoStore persists aggregates and samples in MongoDB for deployments
// where multiple router instances share state. Aggregate updates run as a
// single pipeline update, which MongoDB applies atomically per document.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to MongoDB at uri and verifies the connection.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := &MongoStore{
		client: client,
		db:     client.Database(dbName),
	}
	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// ensureIndexes creates the unique (user_id, route) index. Upserts are only
// race-safe against concurrent inserts of the same key when a unique index
// backs the query fields.
func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(collectionPreferences).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "route", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create preference index: %w", err)
	}
	return nil
}

type preferenceDoc struct {
	UserID        string    `bson:"user_id"`
	Route         string    `bson:"route"`
	SuccessCount  int64     `bson:"success_count"`
	TotalCount    int64     `bson:"total_count"`
	AvgDurationMs float64   `bson:"avg_duration_ms"`
	LastUsedAt    time.Time `bson:"last_used_at"`
}

// LoadPreferences returns the user's aggregates.
func (s *MongoStore) LoadPreferences(ctx context.Context, userID string) ([]preference.RoutePreference, error) {
	cursor, err := s.db.Collection(collectionPreferences).Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.M{"route": 1}))
	if err != nil {
		return nil, fmt.Errorf("find preferences: %w", err)
	}
	defer cursor.Close(ctx)

	var out []preference.RoutePreference
	for cursor.Next(ctx) {
		var doc preferenceDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode preference: %w", err)
		}
		r, err := route.Parse(doc.Route)
		if err != nil {
			return nil, fmt.Errorf("stored preference: %w", err)
		}
		out = append(out, preference.RoutePreference{
			UserID:        doc.UserID,
			Route:         r,
			SuccessCount:  doc.SuccessCount,
			TotalCount:    doc.TotalCount,
			AvgDurationMs: doc.AvgDurationMs,
			LastUsedAt:    doc.LastUsedAt,
		})
	}
	return out, cursor.Err()
}

// Apply upserts the (user, route) aggregate with an aggregation-pipeline
// update so counters and the incremental mean are computed server-side in
// one atomic document write.
func (s *MongoStore) Apply(ctx context.Context, userID string, r route.Route, d preference.Delta) error {
	at := d.ObservedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	successInc := int64(0)
	if d.Success {
		successInc = 1
	}

	oldTotal := bson.M{"$ifNull": bson.A{"$total_count", 0}}
	oldSuccess := bson.M{"$ifNull": bson.A{"$success_count", 0}}
	oldAvg := bson.M{"$ifNull": bson.A{"$avg_duration_ms", 0}}
	newTotal := bson.M{"$add": bson.A{oldTotal, 1}}

	update := bson.A{bson.M{"$set": bson.M{
		"user_id":       userID,
		"route":         r.String(),
		"total_count":   newTotal,
		"success_count": bson.M{"$add": bson.A{oldSuccess, successInc}},
		"avg_duration_ms": bson.M{"$add": bson.A{
			oldAvg,
			bson.M{"$divide": bson.A{
				bson.M{"$subtract": bson.A{float64(d.DurationMs), oldAvg}},
				newTotal,
			}},
		}},
		"last_used_at": at,
	}}}

	filter := bson.M{"user_id": userID, "route": r.String()}
	_, err := s.db.Collection(collectionPreferences).UpdateOne(ctx,
		filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// Two first samples raced the upsert and the unique index rejected the
		// loser's insert; re-apply against the winner's document.
		_, err = s.db.Collection(collectionPreferences).UpdateOne(ctx,
			filter, update, options.Update().SetUpsert(true))
	}
	if err != nil {
		return fmt.Errorf("apply preference delta: %w", err)
	}
	return nil
}

// Append inserts one metric sample.
func (s *MongoStore) Append(ctx context.Context, sample feedback.Sample) error {
	_, err := s.db.Collection(collectionSamples).InsertOne(ctx, bson.M{
		"route":       sample.Route.String(),
		"user_id":     sample.UserID,
		"duration_ms": sample.ActualDurationMs,
		"success":     sample.Success,
		"timestamp":   sample.Timestamp.UTC(),
	})
	if err != nil {
		return fmt.Errorf("append metric sample: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/delta-events/whatsapp-service/internal/logger"
)

// DBStore persists session records in MongoDB, one document per user id with
// a unique index, replaced wholesale on every save.
type DBStore struct {
	client *mongo.Client
	db     *mongo.Database
}

var DbStore *DBStore

func NewDatabaseStore() *DBStore {
	if DbStore == nil {
		DbStore = &DBStore{client: Client, db: Database}
	}
	return DbStore
}

func (ds *DBStore) Get(userID string) (*SessionRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), OperationTimeout)
	defer cancel()

	if userID == "" {
		return nil, UserIdEmptyError
	}

	filter := bson.D{{Key: "user_id", Value: userID}}
	var record SessionRecord

	startTime := time.Now()
	err := ds.db.Collection(SessionCollectionName).FindOne(ctx, filter).Decode(&record)
	logger.DebugF("session record query cost: %v", time.Since(startTime))

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", RecordNotFoundError, userID)
		}
		return nil, fmt.Errorf("database operation failed: %w", err)
	}
	return &record, nil
}

func (ds *DBStore) Save(record *SessionRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), OperationTimeout)
	defer cancel()

	if record.UserID == "" {
		return UserIdEmptyError
	}

	filter := bson.D{{Key: "user_id", Value: record.UserID}}
	opts := options.Replace().SetUpsert(true)

	result, err := ds.db.Collection(SessionCollectionName).ReplaceOne(ctx, filter, record, opts)

	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("unique key conflicts: %w", err)
		}
		return fmt.Errorf("database operation failed: %w", err)
	}

	logger.DebugF("Session record saved: user_id=%s, status=%s, matched=%d, modified=%d, upserted=%v",
		record.UserID,
		record.Status,
		result.MatchedCount,
		result.ModifiedCount,
		result.UpsertedID != nil,
	)

	return nil
}

func (ds *DBStore) Delete(userID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), OperationTimeout)
	defer cancel()

	if userID == "" {
		return UserIdEmptyError
	}

	filter := bson.D{{Key: "user_id", Value: userID}}
	result, err := ds.db.Collection(SessionCollectionName).DeleteOne(ctx, filter)

	if err != nil {
		return fmt.Errorf("database operation failed: %w", err)
	}

	logger.InfoF("Session record deleted: user_id=%s, deleted=%d", userID, result.DeletedCount)

	return nil
}

func (ds *DBStore) List() ([]*SessionRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), OperationTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "user_id", Value: 1}})
	cursor, err := ds.db.Collection(SessionCollectionName).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("database operation failed: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var records []*SessionRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("database operation failed: %w", err)
	}
	return records, nil
}

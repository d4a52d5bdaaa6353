package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"QuoteChat/entity"
)

// GetOrCreateThread inserts the thread and its seed message in one
// transaction unless a thread for the same customer and product exists.
func (m *MongoDB) GetOrCreateThread(ctx context.Context, thread *entity.Thread, seed *entity.Message) (*entity.Thread, bool, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, false, err
	}
	defer m.disconnect(connection)

	db := connection.Database(m.database)
	existing, err := threadByPair(ctx, db, thread.CustomerID, thread.ProductID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	stored := thread.Clone()
	now := time.Now().UTC()
	stored.CreatedAt = now.Truncate(entity.MessageTimeResolution)
	stored.UpdatedAt = stored.CreatedAt
	var docs []interface{}
	if seed != nil {
		seed.ThreadID = stored.ID
		stored.LastMessageAt = entity.StampMessages(time.Time{}, now, []*entity.Message{seed})
		docs = append(docs, seed)
	}

	session, err := connection.StartSession()
	if err != nil {
		return nil, false, fmt.Errorf("mongodb start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := db.Collection(threadsCollection).InsertOne(sc, stored); err != nil {
			return nil, err
		}
		if len(docs) > 0 {
			if _, err := db.Collection(messagesCollection).InsertMany(sc, docs); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if mongo.IsDuplicateKeyError(err) {
		// lost the race against a concurrent create
		existing, err = threadByPair(ctx, db, thread.CustomerID, thread.ProductID)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("thread for customer %d product %d vanished after duplicate key", thread.CustomerID, thread.ProductID)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mongodb create thread: %w", err)
	}

	*thread = *stored
	return stored.Clone(), true, nil
}

func threadByPair(ctx context.Context, db *mongo.Database, customerID, productID int64) (*entity.Thread, error) {
	var thread entity.Thread
	filter := bson.D{{"customer_id", customerID}, {"product_id", productID}}
	err := db.Collection(threadsCollection).FindOne(ctx, filter).Decode(&thread)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find thread: %w", err)
	}
	return &thread, nil
}

func (m *MongoDB) GetThread(ctx context.Context, id string) (*entity.Thread, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	var thread entity.Thread
	err = connection.Database(m.database).Collection(threadsCollection).
		FindOne(ctx, bson.D{{"_id", id}}).Decode(&thread)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("thread %s: %w", id, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find thread: %w", err)
	}
	return &thread, nil
}

func (m *MongoDB) ListThreads(ctx context.Context, filter entity.ThreadFilter) ([]entity.Thread, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	query := bson.D{}
	if filter.CustomerID != 0 {
		query = append(query, bson.E{Key: "customer_id", Value: filter.CustomerID})
	}
	if filter.Status != "" {
		query = append(query, bson.E{Key: "status", Value: filter.Status})
	}
	opts := options.Find().SetSort(bson.D{{"last_message_at", -1}, {"_id", 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := connection.Database(m.database).Collection(threadsCollection).Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find threads: %w", err)
	}
	defer cursor.Close(ctx)

	threads := make([]entity.Thread, 0)
	if err = cursor.All(ctx, &threads); err != nil {
		return nil, fmt.Errorf("mongodb decode threads: %w", err)
	}
	return threads, nil
}

// ListMessages returns messages created after since in ascending order.
func (m *MongoDB) ListMessages(ctx context.Context, threadID string, since *time.Time) ([]entity.Message, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{{"thread_id", threadID}}
	if since != nil {
		filter = append(filter, bson.E{Key: "created_at", Value: bson.D{{"$gt", *since}}})
	}
	opts := options.Find().SetSort(bson.D{{"created_at", 1}})

	cursor, err := connection.Database(m.database).Collection(messagesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := make([]entity.Message, 0)
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("mongodb decode messages: %w", err)
	}
	return messages, nil
}

// Commit appends msgs and replaces the thread document inside one
// transaction. The replace is filtered on the expected version, so a
// concurrent writer makes it match nothing and the transaction aborts.
func (m *MongoDB) Commit(ctx context.Context, thread *entity.Thread, expectedVersion int64, msgs []*entity.Message) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	db := connection.Database(m.database)
	session, err := connection.StartSession()
	if err != nil {
		return fmt.Errorf("mongodb start session: %w", err)
	}
	defer session.EndSession(ctx)

	next := thread.Clone()
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var current struct {
			Version       int64     `bson:"version"`
			LastMessageAt time.Time `bson:"last_message_at"`
		}
		err := db.Collection(threadsCollection).
			FindOne(sc, bson.D{{"_id", thread.ID}}).Decode(&current)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("thread %s: %w", thread.ID, entity.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("mongodb find thread: %w", err)
		}
		if current.Version != expectedVersion {
			return nil, fmt.Errorf("thread %s at version %d, expected %d: %w", thread.ID, current.Version, expectedVersion, entity.ErrConflict)
		}

		now := time.Now().UTC()
		docs := make([]interface{}, 0, len(msgs))
		for _, msg := range msgs {
			msg.ThreadID = thread.ID
			docs = append(docs, msg)
		}
		next.LastMessageAt = entity.StampMessages(current.LastMessageAt, now, msgs)
		next.Version = expectedVersion + 1
		next.UpdatedAt = now.Truncate(entity.MessageTimeResolution)

		res, err := db.Collection(threadsCollection).ReplaceOne(sc,
			bson.D{{"_id", thread.ID}, {"version", expectedVersion}}, next)
		if err != nil {
			return nil, fmt.Errorf("mongodb replace thread: %w", err)
		}
		if res.MatchedCount == 0 {
			return nil, fmt.Errorf("thread %s changed concurrently: %w", thread.ID, entity.ErrConflict)
		}
		if len(docs) > 0 {
			if _, err = db.Collection(messagesCollection).InsertMany(sc, docs); err != nil {
				return nil, fmt.Errorf("mongodb insert messages: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	*thread = *next
	return nil
}

func (m *MongoDB) SetStatus(ctx context.Context, threadID string, status entity.ThreadStatus) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	update := bson.D{
		{"$set", bson.D{{"status", status}, {"updated_at", time.Now().UTC()}}},
		{"$inc", bson.D{{"version", 1}}},
	}
	res, err := connection.Database(m.database).Collection(threadsCollection).
		UpdateOne(ctx, bson.D{{"_id", threadID}}, update)
	if err != nil {
		return fmt.Errorf("mongodb update status: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("thread %s: %w", threadID, entity.ErrNotFound)
	}
	return nil
}

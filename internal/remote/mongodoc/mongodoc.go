// Package mongodoc implements remote.Channel on MongoDB. Each user document
// is one record keyed by the document key; pushes come from a change stream,
// which requires a replica set or a sharded cluster.
package mongodoc

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/makstermee/Gym-planner/internal/remote"
	"github.com/makstermee/Gym-planner/internal/workout"
)

// CollectionName is the collection holding user documents.
const CollectionName = "user_state"

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
)

type record struct {
	ID        string           `bson:"_id"`
	Document  workout.Document `bson:"document"`
	UpdatedAt time.Time        `bson:"updatedAt"`
}

type changeEvent struct {
	OperationType string  `bson:"operationType"`
	FullDocument  *record `bson:"fullDocument"`
}

// Channel is a MongoDB-backed remote.Channel.
type Channel struct {
	collection *mongo.Collection
	logger     log.FieldLogger
	now        func() time.Time
}

var _ remote.Channel = (*Channel)(nil)

// New uses coll for storage. A nil logger uses the standard logrus logger.
func New(coll *mongo.Collection, logger log.FieldLogger) *Channel {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Channel{collection: coll, logger: logger, now: time.Now}
}

// Connect opens a client for uri and pings the primary. The client is
// disconnected again when the ping fails.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), pingTimeout)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// ReadOnce implements remote.Channel.
func (c *Channel) ReadOnce(ctx context.Context, key string) (workout.Document, error) {
	var rec record
	err := c.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return workout.Document{}, remote.ErrNotFound
	}
	if err != nil {
		return workout.Document{}, fmt.Errorf("find %s: %w", key, err)
	}
	return workout.Normalize(rec.Document), nil
}

// Write implements remote.Channel with an upserting replace.
func (c *Channel) Write(ctx context.Context, key string, doc workout.Document) error {
	rec := record{ID: key, Document: doc, UpdatedAt: c.now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := c.collection.ReplaceOne(ctx, bson.M{"_id": key}, rec, opts); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

// Subscribe implements remote.Channel. The change stream is opened before
// the current record is read. The stream lives until cancel is called or ctx
// is done.
func (c *Channel) Subscribe(ctx context.Context, key string, onSnapshot func(remote.Snapshot), onError func(error)) (func(), error) {
	watchCtx, cancel := context.WithCancel(ctx)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: key}}}},
	}
	stream, err := c.collection.Watch(watchCtx, pipeline,
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", key, err)
	}

	doc, err := c.ReadOnce(watchCtx, key)
	switch {
	case errors.Is(err, remote.ErrNotFound):
		onSnapshot(remote.Snapshot{Exists: false})
	case err != nil:
		cancel()
		_ = stream.Close(context.Background())
		return nil, err
	default:
		onSnapshot(remote.Snapshot{Document: doc, Exists: true})
	}

	go c.follow(watchCtx, key, stream, onSnapshot, onError)

	return cancel, nil
}

func (c *Channel) follow(ctx context.Context, key string, stream *mongo.ChangeStream, onSnapshot func(remote.Snapshot), onError func(error)) {
	defer func() {
		_ = stream.Close(context.Background())
	}()

	logger := c.logger.WithField("key", key)
	for stream.Next(ctx) {
		var ev changeEvent
		if err := stream.Decode(&ev); err != nil {
			logger.Warnf("mongodoc: dropping undecodable change: %s", err)
			continue
		}
		switch ev.OperationType {
		case "delete":
			onSnapshot(remote.Snapshot{Exists: false})
		case "insert", "replace", "update":
			if ev.FullDocument == nil {
				continue
			}
			onSnapshot(remote.Snapshot{Document: workout.Normalize(ev.FullDocument.Document), Exists: true})
		default:
			logger.Debugf("mongodoc: ignoring %s event", ev.OperationType)
		}
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil && onError != nil {
		onError(fmt.Errorf("watch %s: %w", key, err))
	}
}

// Delete removes the record under key.
func (c *Channel) Delete(ctx context.Context, key string) error {
	if _, err := c.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

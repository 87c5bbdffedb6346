package mongodoc

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/makstermee/Gym-planner/internal/remote"
	"github.com/makstermee/Gym-planner/internal/workout"
)

func TestChannel_ReadOnce(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	key := remote.Key("u1")

	mt.Run("found", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: key},
			{Key: "document", Value: bson.D{
				{Key: "plans", Value: bson.D{
					{Key: "Poniedziałek", Value: bson.A{
						bson.D{{Key: "name", Value: "Squat"}, {Key: "targetSets", Value: 3}, {Key: "targetReps", Value: 5}},
					}},
				}},
			}},
			{Key: "updatedAt", Value: time.Now()},
		}))

		doc, err := New(mt.Coll, nil).ReadOnce(context.Background(), key)
		require.NoError(mt, err)
		require.Len(mt, doc.Plans["Poniedziałek"], 1)
		assert.Equal(mt, "Squat", doc.Plans["Poniedziałek"][0].Name)
		assert.Equal(mt, 3, doc.Plans["Poniedziałek"][0].TargetSets)
		assert.NotNil(mt, doc.Plans["Środa"])
		assert.NotNil(mt, doc.Logs)
	})

	mt.Run("not found", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := New(mt.Coll, nil).ReadOnce(context.Background(), key)
		assert.ErrorIs(mt, err, remote.ErrNotFound)
	})

	mt.Run("command error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad query",
		}))

		_, err := New(mt.Coll, nil).ReadOnce(context.Background(), key)
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, remote.ErrNotFound)
	})
}

func TestChannel_WriteUpserts(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: "k"}}}},
		))

		ch := New(mt.Coll, nil)
		ch.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
		require.NoError(mt, ch.Write(context.Background(), remote.Key("u1"), workout.Default()))

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "update", started.CommandName)
	})

	mt.Run("failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11600,
			Message: "interrupted at shutdown",
		}))

		err := New(mt.Coll, nil).Write(context.Background(), remote.Key("u1"), workout.Default())
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "replace users/u1/data/user_state")
	})
}

// TestChannel_SubscribeLive needs a replica set; set GYMPLANNER_TEST_MONGO_URI
// to run it.
func TestChannel_SubscribeLive(t *testing.T) {
	uri := os.Getenv("GYMPLANNER_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("GYMPLANNER_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	client, err := Connect(ctx, uri)
	require.NoError(t, err)
	defer func() { _ = client.Disconnect(context.Background()) }()

	ch := New(client.Database("gymplanner_test").Collection(CollectionName), nil)
	key := remote.Key("mongodoc-test")
	require.NoError(t, ch.Delete(ctx, key))

	snaps := make(chan remote.Snapshot, 4)
	stop, err := ch.Subscribe(ctx, key, func(s remote.Snapshot) { snaps <- s }, nil)
	require.NoError(t, err)
	defer stop()

	assert.False(t, (<-snaps).Exists)

	doc := workout.Default()
	require.NoError(t, doc.AddExercise("Wtorek", workout.ExerciseTemplate{Name: "Bench", TargetSets: 5, TargetReps: 5}))
	require.NoError(t, ch.Write(ctx, key, doc))

	select {
	case s := <-snaps:
		require.True(t, s.Exists)
		assert.Equal(t, "Bench", s.Document.Plans["Wtorek"][0].Name)
	case <-ctx.Done():
		t.Fatal("no change delivered")
	}
}

package redisdoc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/makstermee/Gym-planner/internal/remote"
	"github.com/makstermee/Gym-planner/internal/workout"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func testDocument(t *testing.T) workout.Document {
	t.Helper()
	doc := workout.Default()
	require.NoError(t, doc.AddExercise("Poniedziałek", workout.ExerciseTemplate{Name: "Squat", TargetSets: 3, TargetReps: 5}))
	return doc
}

func TestChannel_ReadOnce(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	ch := New(db, nil)
	key := remote.Key("u1")
	payload, err := workout.Marshal(testDocument(t))
	require.NoError(t, err)

	mock.ExpectGet(key).SetVal(string(payload))
	doc, err := ch.ReadOnce(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "Squat", doc.Plans["Poniedziałek"][0].Name)
	assert.NotNil(t, doc.Plans["Środa"])

	mock.ExpectGet(key).RedisNil()
	_, err = ch.ReadOnce(context.Background(), key)
	assert.ErrorIs(t, err, remote.ErrNotFound)

	mock.ExpectGet(key).SetErr(errors.New("conn refused"))
	_, err = ch.ReadOnce(context.Background(), key)
	require.Error(t, err)
	assert.NotErrorIs(t, err, remote.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChannel_WriteStoresAndPublishes(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	ch := New(db, nil)
	key := remote.Key("u1")
	doc := testDocument(t)
	payload, err := workout.Marshal(doc)
	require.NoError(t, err)

	mock.ExpectSet(key, string(payload), 0).SetVal("OK")
	mock.ExpectPublish(ChangesChannel(key), string(payload)).SetVal(1)
	require.NoError(t, ch.Write(context.Background(), key, doc))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChannel_WriteFailureStopsBeforePublish(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	ch := New(db, nil)
	key := remote.Key("u1")
	doc := testDocument(t)
	payload, err := workout.Marshal(doc)
	require.NoError(t, err)

	mock.ExpectSet(key, string(payload), 0).SetErr(errors.New("readonly"))
	err = ch.Write(context.Background(), key, doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set "+key)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChannel_Delete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	ch := New(db, nil)
	key := remote.Key("u1")
	mock.ExpectDel(key).SetVal(1)
	mock.ExpectPublish(ChangesChannel(key), "").SetVal(0)
	require.NoError(t, ch.Delete(context.Background(), key))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// fakeServer speaks just enough RESP for a subscription: SUBSCRIBE is
// confirmed, GET answers nil and PING answers with a pub/sub pong.
type fakeServer struct {
	ln         net.Listener
	subs       chan net.Conn
	acceptDone chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	conns      []net.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &fakeServer{ln: ln, subs: make(chan net.Conn, 8), acceptDone: make(chan struct{})}
	go srv.accept()
	t.Cleanup(srv.close)
	return srv
}

func (s *fakeServer) accept() {
	defer close(s.acceptDone)
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *fakeServer) serve(conn net.Conn) {
	defer s.wg.Done()
	rd := bufio.NewReader(conn)
	for {
		args, err := readCommand(rd)
		if err != nil {
			return
		}
		switch strings.ToLower(args[0]) {
		case "subscribe":
			_, _ = fmt.Fprintf(conn, "*3\r\n$9\r\nsubscribe\r\n$%d\r\n%s\r\n:1\r\n", len(args[1]), args[1])
			select {
			case s.subs <- conn:
			default:
			}
		case "get":
			_, _ = io.WriteString(conn, "$-1\r\n")
		case "ping":
			_, _ = io.WriteString(conn, "*2\r\n$4\r\npong\r\n$0\r\n\r\n")
		default:
			_, _ = io.WriteString(conn, "+OK\r\n")
		}
	}
}

func (s *fakeServer) close() {
	_ = s.ln.Close()
	<-s.acceptDone
	s.mu.Lock()
	for _, conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func readCommand(rd *bufio.Reader) ([]string, error) {
	line, err := rd.ReadString('\n')
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "*")))
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if _, err := rd.ReadString('\n'); err != nil {
			return nil, err
		}
		arg, err := rd.ReadString('\n')
		if err != nil {
			return nil, err
		}
		args = append(args, strings.TrimSuffix(arg, "\r\n"))
	}
	return args, nil
}

func subscribeFake(t *testing.T) (*fakeServer, func(), chan error) {
	t.Helper()
	srv := newFakeServer(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.ln.Addr().String(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	snaps := make(chan remote.Snapshot, 4)
	errs := make(chan error, 4)
	stop, err := New(rdb, nil).Subscribe(context.Background(), remote.Key("u1"),
		func(s remote.Snapshot) { snaps <- s },
		func(err error) { errs <- err },
	)
	require.NoError(t, err)
	first := <-snaps
	assert.False(t, first.Exists)
	return srv, stop, errs
}

func TestChannel_SubscribeReportsLostConnection(t *testing.T) {
	srv, stop, errs := subscribeFake(t)
	defer stop()

	conn := <-srv.subs
	require.NoError(t, conn.Close())

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lost connection was not reported")
	}
}

func TestChannel_UnsubscribeIsSilent(t *testing.T) {
	srv, stop, errs := subscribeFake(t)
	<-srv.subs
	stop()

	select {
	case err := <-errs:
		t.Fatalf("onError after unsubscribe: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

// TestChannel_SubscribeLive needs a reachable Redis; set GYMPLANNER_TEST_REDIS
// to its address to run it.
func TestChannel_SubscribeLive(t *testing.T) {
	addr := os.Getenv("GYMPLANNER_TEST_REDIS")
	if addr == "" {
		t.Skip("GYMPLANNER_TEST_REDIS not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rdb, err := Connect(ctx, addr, "", 0)
	require.NoError(t, err)
	defer rdb.Close()

	ch := New(rdb, nil)
	key := remote.Key("redisdoc-test")
	require.NoError(t, ch.Delete(ctx, key))

	snaps := make(chan remote.Snapshot, 4)
	stop, err := ch.Subscribe(ctx, key, func(s remote.Snapshot) { snaps <- s }, nil)
	require.NoError(t, err)

	first := <-snaps
	assert.False(t, first.Exists)

	require.NoError(t, ch.Write(ctx, key, testDocument(t)))
	select {
	case s := <-snaps:
		require.True(t, s.Exists)
		assert.Equal(t, "Squat", s.Document.Plans["Poniedziałek"][0].Name)
	case <-ctx.Done():
		t.Fatal("no change delivered")
	}

	stop()
	_ = rdb.Del(ctx, key).Err()
}

package redis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/facetd/internal/db"
)

func newMockStore(t *testing.T) (*Store, *mock.Client) {
	t.Helper()
	c := mock.NewClient(gomock.NewController(t))
	return NewStoreForTest(c), c
}

func isDBError(err error, op string) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr) && dbErr.Op == op
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error without addrs")
	}
}

func TestPing(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.Result(mock.RedisString("PONG")))
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.ErrorResult(context.DeadlineExceeded))
	if err := s.Ping(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped DeadlineExceeded, got %v", err)
	}
}

func TestWaitForReady_RetriesUntilPong(t *testing.T) {
	s, c := newMockStore(t)
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.ErrorResult(errors.New("loading"))).Times(2),
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.Result(mock.RedisString("PONG"))),
	)
	if err := s.WaitForReady(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.ErrorResult(errors.New("down"))).MinTimes(1)

	err := s.WaitForReady(context.Background(), 120*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if !strings.Contains(err.Error(), "down") {
		t.Errorf("error should carry the last ping failure: %v", err)
	}
}

func TestHSet_BinaryValue(t *testing.T) {
	s, c := newMockStore(t)
	buf := string([]byte{0x01, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x7f})
	c.EXPECT().
		Do(gomock.Any(), mock.Match("HSET", "doc", "$ords", buf)).
		Return(mock.Result(mock.RedisInt64(1)))

	if err := s.HSet(context.Background(), "doc", map[string]string{"$ords": buf}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSet_NoFieldsSkipsServer(t *testing.T) {
	s := NewStoreForTest(nil)
	if err := s.HSet(context.Background(), "doc", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSet_Error(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "HSET" })).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	err := s.HSet(context.Background(), "doc", map[string]string{"f": "v"})
	if !isDBError(err, db.OpHSet) {
		t.Fatalf("expected HSET db.Error, got %v", err)
	}
}

func TestHSetMulti_SkipsEmptyItems(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(), mock.Match("HSET", "k1", "f", "v")).
		Return([]rueidis.RedisResult{mock.Result(mock.RedisInt64(1))})

	err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f": "v"}},
		{Key: "k2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSetMulti_ReportsFailingKey(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(1)),
			mock.ErrorResult(errors.New("OOM")),
		})

	err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f": "v"}},
		{Key: "k2", Fields: map[string]string{"f": "v"}},
	})
	if !isDBError(err, db.OpHSet) || !strings.Contains(err.Error(), "k2") {
		t.Fatalf("expected HSET error naming k2, got %v", err)
	}
}

func TestHSetMulti_Empty(t *testing.T) {
	s := NewStoreForTest(nil)
	if err := s.HSetMulti(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHGetAll(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "facetd:shard:0:taxonomy")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"1": mock.RedisString("color"),
			"2": mock.RedisString("color\x1fred"),
		})))

	m, err := s.HGetAll(context.Background(), "facetd:shard:0:taxonomy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["1"] != "color" || m["2"] != "color\x1fred" {
		t.Errorf("unexpected map: %v", m)
	}
}

func TestHGetAllMulti(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(), mock.Match("HGETALL", "k1"), mock.Match("HGETALL", "k2")).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{"f": mock.RedisString("a")})),
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{"f": mock.RedisString("b")})),
		})

	results, err := s.HGetAllMulti(context.Background(), []string{"k1", "k2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 || results[0]["f"] != "a" || results[1]["f"] != "b" {
		t.Errorf("unexpected results: %v", results)
	}
}

func TestHGetAllMulti_Empty(t *testing.T) {
	s := NewStoreForTest(nil)
	results, err := s.HGetAllMulti(context.Background(), nil)
	if err != nil || results != nil {
		t.Fatalf("expected nil, nil; got %v, %v", results, err)
	}
}

func TestHGetAllMulti_Error(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})),
			mock.ErrorResult(context.DeadlineExceeded),
		})

	_, err := s.HGetAllMulti(context.Background(), []string{"k1", "k2"})
	if !isDBError(err, db.OpHGetAll) {
		t.Fatalf("expected HGETALL db.Error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected wrapped DeadlineExceeded, got %v", err)
	}
}

func TestGet(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "manifest")).
		Return(mock.Result(mock.RedisBlobString(`{"fields":{}}`)))

	data, err := s.Get(context.Background(), "manifest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"fields":{}}` {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("GET", "manifest")).Return(mock.Result(mock.RedisNil()))

	if _, err := s.Get(context.Background(), "manifest"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSet(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "manifest", "{}")).
		Return(mock.Result(mock.RedisString("OK")))

	if err := s.Set(context.Background(), "manifest", []byte("{}")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIncrBy(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("INCRBY", "next_doc", "5")).
		Return(mock.Result(mock.RedisInt64(12)))

	n, err := s.IncrBy(context.Background(), "next_doc", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 12 {
		t.Errorf("IncrBy = %d, want 12", n)
	}

	c.EXPECT().
		Do(gomock.Any(), mock.Match("INCRBY", "next_doc", "1")).
		Return(mock.ErrorResult(context.DeadlineExceeded))
	if _, err := s.IncrBy(context.Background(), "next_doc", 1); !isDBError(err, db.OpIncrBy) {
		t.Errorf("expected INCRBY db.Error, got %v", err)
	}
}

func TestUnlink(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("UNLINK", "k1", "k2")).
		Return(mock.Result(mock.RedisInt64(1)))

	n, err := s.Unlink(context.Background(), "k1", "k2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("Unlink = %d, want 1", n)
	}
}

func TestUnlink_NoKeys(t *testing.T) {
	s := NewStoreForTest(nil)
	if n, err := s.Unlink(context.Background()); err != nil || n != 0 {
		t.Fatalf("expected 0, nil; got %d, %v", n, err)
	}
}

func TestScanEach_Pages(t *testing.T) {
	s, c := newMockStore(t)
	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("SCAN", "0", "MATCH", "p:*", "COUNT", "500")).
			Return(mock.Result(mock.RedisArray(
				mock.RedisBlobString("42"),
				mock.RedisArray(mock.RedisBlobString("p:1"), mock.RedisBlobString("p:2")),
			))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("SCAN", "42", "MATCH", "p:*", "COUNT", "500")).
			Return(mock.Result(mock.RedisArray(
				mock.RedisBlobString("7"),
				mock.RedisArray(),
			))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("SCAN", "7", "MATCH", "p:*", "COUNT", "500")).
			Return(mock.Result(mock.RedisArray(
				mock.RedisBlobString("0"),
				mock.RedisArray(mock.RedisBlobString("p:3")),
			))),
	)

	var pages [][]string
	err := s.ScanEach(context.Background(), "p:*", func(keys []string) error {
		pages = append(pages, keys)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 || len(pages[0]) != 2 || pages[1][0] != "p:3" {
		t.Errorf("unexpected pages: %v", pages)
	}
}

func TestScanEach_CallbackErrorStops(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "SCAN" })).
		Return(mock.Result(mock.RedisArray(
			mock.RedisBlobString("42"),
			mock.RedisArray(mock.RedisBlobString("p:1")),
		)))

	stop := errors.New("stop")
	err := s.ScanEach(context.Background(), "p:*", func([]string) error { return stop })
	if !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

func TestScanEach_Error(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "SCAN" })).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	err := s.ScanEach(context.Background(), "p:*", func([]string) error { return nil })
	if !isDBError(err, db.OpScan) {
		t.Fatalf("expected SCAN db.Error, got %v", err)
	}
}

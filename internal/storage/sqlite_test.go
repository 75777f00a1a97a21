package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Habibullo22/Kinouz/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{Path: filepath.Join(t.TempDir(), "kinouz_test.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestMovieRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	m := Movie{Code: "ab-CD_12", Title: "Some Movie", FileID: "file-1", AddedBy: 42}
	if err := st.UpsertMovie(ctx, m); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, ok, err := st.GetMovie(ctx, "ab-CD_12")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Title != m.Title || got.FileID != m.FileID || got.AddedBy != m.AddedBy {
		t.Fatalf("got %+v, want %+v", got, m)
	}
	if got.AddedAt.IsZero() {
		t.Fatal("expected AddedAt to be set")
	}

	if n, err := st.MovieCount(ctx); err != nil || n != 1 {
		t.Fatalf("movie count = %d, err=%v", n, err)
	}
}

func TestUpsertOverwrites(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	first := Movie{Code: "102", Title: "Old Title", FileID: "file-old", AddedBy: 1, AddedAt: time.Unix(1000, 0)}
	if err := st.UpsertMovie(ctx, first); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second := Movie{Code: "102", Title: "New Title", FileID: "file-new", AddedBy: 2, AddedAt: time.Unix(2000, 0)}
	if err := st.UpsertMovie(ctx, second); err != nil {
		t.Fatalf("upsert again: %v", err)
	}

	got, ok, err := st.GetMovie(ctx, "102")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Title != "New Title" || got.FileID != "file-new" || got.AddedBy != 2 {
		t.Fatalf("last write should win, got %+v", got)
	}
	if n, _ := st.MovieCount(ctx); n != 1 {
		t.Fatalf("movie count after overwrite = %d, want 1", n)
	}
}

func TestDeleteMovie(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.UpsertMovie(ctx, Movie{Code: "134", Title: "Gone Soon", FileID: "f"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	found, err := st.DeleteMovie(ctx, "134")
	if err != nil || !found {
		t.Fatalf("delete present: found=%v err=%v", found, err)
	}
	if _, ok, _ := st.GetMovie(ctx, "134"); ok {
		t.Fatal("movie still present after delete")
	}

	found, err = st.DeleteMovie(ctx, "134")
	if err != nil {
		t.Fatalf("delete absent: %v", err)
	}
	if found {
		t.Fatal("delete of absent code reported found")
	}
}

func TestUsersInsertIfAbsent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for _, id := range []int64{7, 8, 7, 9, 8} {
		if err := st.AddUser(ctx, id); err != nil {
			t.Fatalf("add user %d: %v", id, err)
		}
	}

	n, err := st.UserCount(ctx)
	if err != nil {
		t.Fatalf("user count: %v", err)
	}
	if n != 3 {
		t.Fatalf("user count = %d, want 3", n)
	}

	ids, err := st.AllUserIDs(ctx)
	if err != nil {
		t.Fatalf("all user ids: %v", err)
	}
	seen := map[int64]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if len(ids) != 3 || !seen[7] || !seen[8] || !seen[9] {
		t.Fatalf("unexpected ids %v", ids)
	}
}

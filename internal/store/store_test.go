package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetDel(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing key: got %v, want ErrNotFound", err)
	}

	if err := s.Put(ctx, "slack::settings::token", []byte("xoxb-test")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "slack::settings::token")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "xoxb-test" {
		t.Errorf("Get: got %q, want %q", got, "xoxb-test")
	}

	if err := s.Del(ctx, "slack::settings::token"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "slack::settings::token"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Del: got %v, want ErrNotFound", err)
	}

	// Deleting a missing key is not an error.
	if err := s.Del(ctx, "missing"); err != nil {
		t.Errorf("Del missing key: %v", err)
	}
}

func TestPutOverwritesOnCollision(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "k", []byte("second")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Errorf("collision overwrite: got %q, want %q", got, "second")
	}
}

func TestScanPrefix(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	pairs := map[string]string{
		"slack::activity::0000000000001": "a",
		"slack::activity::0000000000002": "b",
		"slack::settings::token":         "t",
		"other::key":                     "x",
	}
	for k, v := range pairs {
		if err := s.Put(ctx, k, []byte(v)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ScanPrefix(ctx, "slack::activity")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("ScanPrefix: got %d entries, want 2: %v", len(got), got)
	}
	if string(got["slack::activity::0000000000001"]) != "a" {
		t.Errorf("ScanPrefix missing expected entry: %v", got)
	}

	all, err := s.ScanPrefix(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(pairs) {
		t.Errorf("ScanPrefix(\"\"): got %d entries, want %d", len(all), len(pairs))
	}
}

func TestTrimBounds(t *testing.T) {
	for _, n := range []int{0, 3, 5, 8, 20} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			s := openTestStore(t)
			ctx := context.Background()

			var keys []string
			for i := 0; i < n; i++ {
				key := fmt.Sprintf("slack::activity::%013d", 1700000000000+i)
				keys = append(keys, key)
				if err := s.Put(ctx, key, []byte("{}")); err != nil {
					t.Fatal(err)
				}
			}
			// Unrelated namespace must survive any trim.
			if err := s.Put(ctx, "slack::settings::token", []byte("t")); err != nil {
				t.Fatal(err)
			}

			deleted, err := s.Trim(ctx, "slack::activity", 5)
			if err != nil {
				t.Fatal(err)
			}
			want := n - 5
			if want < 0 {
				want = 0
			}
			if deleted != want {
				t.Errorf("Trim deleted %d, want %d", deleted, want)
			}

			remaining, err := s.ScanPrefix(ctx, "slack::activity")
			if err != nil {
				t.Fatal(err)
			}
			wantKept := n
			if wantKept > 5 {
				wantKept = 5
			}
			if len(remaining) != wantKept {
				t.Fatalf("after trim: %d entries remain, want %d", len(remaining), wantKept)
			}
			// The survivors must be the largest keys.
			for _, key := range keys[want:] {
				if _, ok := remaining[key]; !ok {
					t.Errorf("after trim: expected survivor %s missing", key)
				}
			}

			if _, err := s.Get(ctx, "slack::settings::token"); err != nil {
				t.Errorf("trim touched an unrelated namespace: %v", err)
			}

			// Idempotence: a second trim with no intervening writes is a no-op.
			deleted, err = s.Trim(ctx, "slack::activity", 5)
			if err != nil {
				t.Fatal(err)
			}
			if deleted != 0 {
				t.Errorf("second Trim deleted %d, want 0", deleted)
			}
		})
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Fatal("Open with empty path should fail")
	}
}

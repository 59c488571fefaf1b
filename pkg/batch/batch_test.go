package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestEncodeAllPreservesOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	results, err := EncodeAll(context.Background(), items, 2, func(_ context.Context, n int) (string, error) {
		return fmt.Sprintf("item-%d", n), nil
	})
	if err != nil {
		t.Fatalf("EncodeAll: %v", err)
	}
	for i, n := range items {
		want := fmt.Sprintf("item-%d", n)
		if results[i] != want {
			t.Errorf("results[%d] = %q, want %q", i, results[i], want)
		}
	}
}

func TestEncodeAllPropagatesFirstError(t *testing.T) {
	items := []int{1, 2, 3}
	boom := errors.New("boom")
	_, err := EncodeAll(context.Background(), items, 3, func(_ context.Context, n int) (string, error) {
		if n == 2 {
			return "", boom
		}
		return fmt.Sprintf("%d", n), nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestDecodeAllPreservesOrder(t *testing.T) {
	items := []string{"a", "bb", "ccc"}
	results, err := DecodeAll(context.Background(), items, 0, func(_ context.Context, s string) (int, error) {
		return len(s), nil
	})
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	want := []int{1, 2, 3}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("results[%d] = %d, want %d", i, results[i], want[i])
		}
	}
}

func TestDecodeAllCancelsOnError(t *testing.T) {
	items := []string{"x", "y", "z"}
	boom := errors.New("decode failed")
	zCancelled := false
	_, err := DecodeAll(context.Background(), items, 1, func(ctx context.Context, s string) (int, error) {
		if s == "y" {
			return 0, boom
		}
		select {
		case <-ctx.Done():
			if s == "z" {
				zCancelled = true
			}
			return 0, ctx.Err()
		default:
			return len(s), nil
		}
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	// With limit 1, "z" starts only after "y" has failed and cancelled ctx.
	if !zCancelled {
		t.Error("expected the call after the failing one to observe a cancelled context")
	}
}

package txn

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestUndo_RollbackRunsNewestFirst(t *testing.T) {
	var order []string
	u := &Undo{}
	u.Push("first", func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	u.Push("second", func(ctx context.Context) error {
		order = append(order, "second")
		return errors.New("boom")
	})
	u.Push("third", func(ctx context.Context) error {
		order = append(order, "third")
		return nil
	})

	if u.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", u.Len())
	}

	u.Rollback(context.Background(), zap.NewNop())

	want := []string{"third", "second", "first"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("step %d: got %q, want %q", i, order[i], want[i])
		}
	}
	if u.Len() != 0 {
		t.Errorf("Len() after rollback = %d, want 0", u.Len())
	}
}

func TestUndo_RollbackIgnoresCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	u := &Undo{}
	u.Push("check ctx", func(ctx context.Context) error {
		ran = ctx.Err() == nil
		return nil
	})
	u.Rollback(ctx, zap.NewNop())

	if !ran {
		t.Error("expected compensation to run with a live context")
	}
}

func TestUndo_NilSafe(t *testing.T) {
	var u *Undo
	u.Push("noop", func(ctx context.Context) error { return nil })
	u.Rollback(context.Background(), zap.NewNop())
	if u.Len() != 0 {
		t.Errorf("Len() = %d, want 0", u.Len())
	}
}

func TestRunCompensated_RollsBackOnError(t *testing.T) {
	var undone bool
	wantErr := errors.New("fail")

	err := runCompensated(context.Background(), zap.NewNop(), func(ctx context.Context, undo *Undo) error {
		undo.Push("restore", func(ctx context.Context) error {
			undone = true
			return nil
		})
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
	if !undone {
		t.Error("expected compensation to run")
	}
}

func TestRunCompensated_KeepsWorkOnSuccess(t *testing.T) {
	var undone bool
	err := runCompensated(context.Background(), zap.NewNop(), func(ctx context.Context, undo *Undo) error {
		undo.Push("restore", func(ctx context.Context) error {
			undone = true
			return nil
		})
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if undone {
		t.Error("compensation must not run on success")
	}
}

// internal/app/system/txn/txn.go
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// RunCompensated executes fn inside a MongoDB multi-document transaction.
//
// fn records a compensating action for every write it performs. The
// actions are discarded when a real transaction is used. On deployments
// without transaction support (standalone servers, some DocumentDB setups)
// fn runs directly and the actions are replayed in reverse order if it fails.
func RunCompensated(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context, undo *Undo) error) error {
	if log == nil {
		log = zap.NewNop()
	}

	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			log.Warn("sessions not supported; running without transaction", zap.Error(err))
			return runCompensated(ctx, log, fn)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		// A fresh log per attempt; the server rolls back aborted attempts.
		return nil, fn(sc, &Undo{})
	})
	if err != nil && IsNotSupported(err) {
		log.Warn("transactions not supported; running with compensation", zap.Error(err))
		return runCompensated(ctx, log, fn)
	}
	return err
}

func runCompensated(ctx context.Context, log *zap.Logger, fn func(ctx context.Context, undo *Undo) error) error {
	undo := &Undo{}
	if err := fn(ctx, undo); err != nil {
		undo.Rollback(ctx, log)
		return err
	}
	return nil
}

// Undo is an ordered log of compensating actions.
type Undo struct {
	steps []undoStep
}

type undoStep struct {
	name string
	fn   func(ctx context.Context) error
}

// Push records a compensating action. name is used in logs only.
func (u *Undo) Push(name string, fn func(ctx context.Context) error) {
	if u == nil {
		return
	}
	u.steps = append(u.steps, undoStep{name: name, fn: fn})
}

// Len returns the number of recorded actions.
func (u *Undo) Len() int {
	if u == nil {
		return 0
	}
	return len(u.steps)
}

// Rollback runs the recorded actions newest first. Failures are logged and
// do not stop the remaining actions.
func (u *Undo) Rollback(ctx context.Context, log *zap.Logger) {
	if u == nil {
		return
	}
	// The request context may already be canceled; compensation must still run.
	ctx = context.WithoutCancel(ctx)
	for i := len(u.steps) - 1; i >= 0; i-- {
		s := u.steps[i]
		if err := s.fn(ctx); err != nil {
			log.Error("compensating action failed", zap.String("step", s.name), zap.Error(err))
		}
	}
	u.steps = nil
}

// IsNotSupported reports whether err indicates that the deployment cannot
// run sessions or multi-document transactions.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, // IllegalOperation
			51,  // not a replica set member
			263: // OperationNotSupportedInTransaction
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	keywords := []string{"transaction", "replica set", "session", "not supported", "illegal operation"}
	hits := 0
	for _, k := range keywords {
		if strings.Contains(msg, k) {
			hits++
		}
	}
	return hits >= 2
}

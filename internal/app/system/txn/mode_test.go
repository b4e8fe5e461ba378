package txn_test

import (
	"testing"

	"github.com/dalemusser/groupwork/internal/app/system/txn"
	"github.com/dalemusser/groupwork/internal/testutil"
)

func TestMode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	mode, err := txn.Mode(ctx, db.Client())
	if err != nil {
		t.Fatalf("Mode failed: %v", err)
	}
	if mode != txn.ModeNative && mode != txn.ModeCompensated {
		t.Errorf("Mode = %q", mode)
	}
}

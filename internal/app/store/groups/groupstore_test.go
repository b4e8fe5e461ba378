package groupstore_test

import (
	"errors"
	"testing"

	groupstore "github.com/dalemusser/groupwork/internal/app/store/groups"
	"github.com/dalemusser/groupwork/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_GetByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Discussion")

	got, err := store.GetByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Discussion" {
		t.Errorf("Name: got %q, want Discussion", got.Name)
	}
	if _, err := store.GetByID(ctx, g.ID+1); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("missing group: got %v, want ErrNoDocuments", err)
	}
}

func TestStore_GetByIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateGroup(ctx, "A")
	b := fx.CreateGroup(ctx, "B")

	got, err := store.GetByIDs(ctx, []int64{b.ID, a.ID, b.ID + 50})
	if err != nil {
		t.Fatalf("GetByIDs failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != a.ID {
		t.Errorf("got %+v", got)
	}

	none, err := store.GetByIDs(ctx, nil)
	if err != nil || none != nil {
		t.Errorf("empty ids: got %v, %v", none, err)
	}
}

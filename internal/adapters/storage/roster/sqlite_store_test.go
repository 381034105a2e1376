package roster

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"therapro/internal/adapters/storage"
	childStore "therapro/internal/adapters/storage/child"
	therapistStore "therapro/internal/adapters/storage/therapist"
	"therapro/internal/domain/child"
	"therapro/internal/domain/therapist"
)

func setup(t *testing.T) (*SQLiteStore, *therapistStore.SQLiteStore, *childStore.SQLiteStore) {
	t.Helper()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.MigrateDB(db))
	return NewSQLiteStore(db), therapistStore.NewSQLiteStore(db), childStore.NewSQLiteStore(db)
}

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestLoad_AppendThenReplace(t *testing.T) {
	ctx := context.Background()
	roster, therapists, children := setup(t)

	empty, err := roster.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	err = roster.Load(ctx,
		[]therapist.Therapist{{ID: "t1", Name: "Karen Baker", Email: "karen@therapro.test", CreatedAt: now}},
		[]child.Child{{ID: "c1", Name: "Ethan", AssignedTo: "t1", CreatedAt: now}},
		false,
	)
	require.NoError(t, err)

	empty, err = roster.IsEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, empty)

	err = roster.Load(ctx,
		[]therapist.Therapist{{ID: "t9", Name: "New", Email: "n@x", CreatedAt: now}},
		nil,
		true,
	)
	require.NoError(t, err)

	tn, _ := therapists.Count(ctx)
	cn, _ := children.Count(ctx)
	assert.Equal(t, 1, tn)
	assert.Equal(t, 0, cn)
}

func TestLoad_IsAtomic(t *testing.T) {
	ctx := context.Background()
	roster, therapists, _ := setup(t)

	err := roster.Load(ctx,
		[]therapist.Therapist{{ID: "t1", Name: "Karen", Email: "k@x", CreatedAt: now}},
		[]child.Child{{ID: "c1", Name: "Ethan", AssignedTo: "missing", CreatedAt: now}},
		false,
	)
	require.Error(t, err)

	n, err := therapists.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "therapist insert should roll back with the failing child")
}

func loadPair(t *testing.T, roster *SQLiteStore) {
	t.Helper()
	err := roster.Load(context.Background(),
		[]therapist.Therapist{
			{ID: "t1", Name: "Karen Baker", Email: "karen@therapro.test", CreatedAt: now},
			{ID: "t2", Name: "Ryan Harris", Email: "ryan@therapro.test", CreatedAt: now},
		},
		[]child.Child{
			{ID: "c1", Name: "Ethan", AssignedTo: "t1", CreatedAt: now},
			{ID: "c2", Name: "Zoe", AssignedTo: "t2", CreatedAt: now},
			{ID: "c3", Name: "Caleb", CreatedAt: now},
			{ID: "c4", Name: "Maya", AssignedTo: "t2", CreatedAt: now},
		},
		false,
	)
	require.NoError(t, err)
}

func TestRemoveTherapist_ReleasesChildren(t *testing.T) {
	ctx := context.Background()
	roster, therapists, children := setup(t)
	loadPair(t, roster)

	released, err := roster.RemoveTherapist(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, 2, released)

	_, err = therapists.GetByID(ctx, "t2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	counts, err := children.CountByTherapist(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"t1": 1, "": 3}, counts)

	_, err = roster.RemoveTherapist(ctx, "t2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRemoveTherapist_FailedDeleteKeepsAssignments(t *testing.T) {
	ctx := context.Background()
	roster, therapists, children := setup(t)
	loadPair(t, roster)
	_, err := roster.db.ExecContext(ctx, `CREATE TRIGGER keep_therapist BEFORE DELETE ON therapist
		BEGIN SELECT RAISE(ABORT, 'disk I/O error'); END`)
	require.NoError(t, err)

	_, err = roster.RemoveTherapist(ctx, "t2")
	require.Error(t, err)

	_, err = therapists.GetByID(ctx, "t2")
	require.NoError(t, err, "the therapist must survive a failed delete")
	for _, id := range []string{"c2", "c4"} {
		c, err := children.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "t2", c.AssignedTo, "%s lost its assignment", id)
	}
}

func TestLoad_AssignmentNeedsKnownTherapist(t *testing.T) {
	ctx := context.Background()
	roster, _, children := setup(t)
	loadPair(t, roster)

	err := roster.Load(ctx, nil, []child.Child{{ID: "c9", Name: "Omar", AssignedTo: "t1", CreatedAt: now}}, false)
	require.NoError(t, err, "a stored therapist is a valid target")

	err = roster.Load(ctx, nil, []child.Child{
		{ID: "c10", Name: "Lena", CreatedAt: now},
		{ID: "c11", Name: "Noah", AssignedTo: "t9", CreatedAt: now},
	}, false)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = children.GetByID(ctx, "c10")
	assert.ErrorIs(t, err, storage.ErrNotFound, "a failed load writes nothing")
}

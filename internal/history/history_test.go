package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndRetrieve(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	require.NoError(t, store.Append(ctx, "b1", TypeStageCompleted,
		StageCompleted{Stage: "setup", DurationMS: 12}, map[string]string{"host": "Linux"}))

	events, err := store.GetByBuildID(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, TypeStageCompleted, events[0].Type)
	require.Equal(t, "Linux", events[0].Metadata["host"])

	var p StageCompleted
	require.NoError(t, events[0].Decode(&p))
	require.Equal(t, StageCompleted{Stage: "setup", DurationMS: 12}, p)
}

func TestListSummaries(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()
	clock := time.UnixMilli(1_700_000_000_000)
	store.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	require.NoError(t, store.Append(ctx, "b1", TypeBuildStarted, BuildStarted{Target: "Shooter", Platform: "Linux", Configuration: "Development"}, nil))
	require.NoError(t, store.Append(ctx, "b1", TypeStageCompleted, StageCompleted{Stage: "setup"}, nil))
	require.NoError(t, store.Append(ctx, "b1", TypeReceiptWritten, ReceiptWritten{Path: "/games/Shooter/Binaries/Linux/Shooter.target", BuildProducts: 3}, nil))
	require.NoError(t, store.Append(ctx, "b1", TypeBuildFinished, BuildFinished{Status: StatusSucceeded, DurationMS: 2500, Binaries: 1}, nil))
	require.NoError(t, store.Append(ctx, "b2", TypeBuildStarted, BuildStarted{Target: "ShooterEditor"}, nil))
	require.NoError(t, store.Append(ctx, "b2", TypeBuildFinished, BuildFinished{Status: StatusFailed, ErrorStage: "policy", Error: "boom"}, nil))
	require.NoError(t, store.Append(ctx, "b3", TypeBuildStarted, BuildStarted{Target: "ShooterServer"}, nil))

	all, err := List(ctx, store, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "b3", all[0].BuildID)
	require.Equal(t, StatusRunning, all[0].Status)
	require.Equal(t, StatusFailed, all[1].Status)
	require.Equal(t, "policy", all[1].ErrorStage)

	b1 := all[2]
	require.Equal(t, "Shooter", b1.Target)
	require.Equal(t, StatusSucceeded, b1.Status)
	require.Equal(t, []string{"setup"}, b1.Stages)
	require.Equal(t, 2500*time.Millisecond, b1.Duration)
	require.Equal(t, "/games/Shooter/Binaries/Linux/Shooter.target", b1.Receipt)

	recent, err := List(ctx, store, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "b2", recent[1].BuildID)
}

func TestPersistentStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(t.Context(), "b1", TypeBuildStarted, BuildStarted{Target: "Shooter"}, nil))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	events, err := reopened.GetByBuildID(t.Context(), "b1")
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestDecodeError(t *testing.T) {
	_, err := Summaries([]Event{{BuildID: "b1", Type: TypeBuildFinished, Payload: []byte("{")}})
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryHistory))
}

package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/tgstore-scraper/internal/models"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls []execCall
	tag   string
	err   error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	tag := f.tag
	if tag == "" {
		tag = "INSERT 0 1"
	}
	return pgconn.NewCommandTag(tag), nil
}

func TestCreateRun(t *testing.T) {
	db := &fakeDB{}
	repo := NewRepository(db)

	run := &Run{Channel: "shop"}
	require.NoError(t, repo.CreateRun(context.Background(), run))

	assert.NotEqual(t, uuid.Nil, run.ID)
	assert.Equal(t, StatusRunning, run.Status)
	assert.False(t, run.StartedAt.IsZero())
	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].sql, "INSERT INTO scrape_runs")
	assert.Equal(t, run.ID, db.calls[0].args[0])
	assert.Equal(t, "shop", db.calls[0].args[1])
}

func TestCreateRun_KeepsID(t *testing.T) {
	db := &fakeDB{}
	id := uuid.New()
	run := &Run{ID: id, Channel: "shop"}

	require.NoError(t, NewRepository(db).CreateRun(context.Background(), run))
	assert.Equal(t, id, run.ID)
}

func TestSaveProduct(t *testing.T) {
	db := &fakeDB{}
	repo := NewRepository(db)
	runID := uuid.New()

	row := models.ExportRow{Name: "Nike Hoodie", Price: 1500, Size: "M", Folder: "Nike_Hoodie_1500"}
	require.NoError(t, repo.SaveProduct(context.Background(), runID, row))

	require.Len(t, db.calls, 1)
	args := db.calls[0].args
	assert.Contains(t, db.calls[0].sql, "ON CONFLICT (run_id, folder)")
	assert.Equal(t, runID, args[0])
	assert.Equal(t, "Nike_Hoodie_1500", args[1])
	assert.Equal(t, 1500.0, args[3])
	assert.Equal(t, []string{}, args[6], "nil images stored as empty array")
}

func TestSaveProduct_Error(t *testing.T) {
	db := &fakeDB{err: errors.New("connection refused")}

	err := NewRepository(db).SaveProduct(context.Background(), uuid.New(), models.ExportRow{Folder: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save product x")
}

func TestFinishRun(t *testing.T) {
	db := &fakeDB{tag: "UPDATE 1"}
	run := &Run{ID: uuid.New(), Status: StatusCompleted, Products: 3, ExportPath: "Downloads/export.csv"}

	require.NoError(t, NewRepository(db).FinishRun(context.Background(), run))
	require.NotNil(t, run.FinishedAt)
	args := db.calls[0].args
	assert.Equal(t, StatusCompleted, args[1])
	assert.Equal(t, 3, args[4])
	assert.Equal(t, "Downloads/export.csv", args[8])
}

func TestFinishRun_NotFound(t *testing.T) {
	db := &fakeDB{tag: "UPDATE 0"}

	err := NewRepository(db).FinishRun(context.Background(), &Run{ID: uuid.New()})
	assert.ErrorContains(t, err, "not found")
}

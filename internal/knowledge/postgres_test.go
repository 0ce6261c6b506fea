package knowledge

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

// mockDB implements DB, recording statements and delegating row behaviour.
type mockDB struct {
	row      pgx.Row
	execSQL  []string
	execArgs [][]any
}

func (db *mockDB) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return db.row
}

func (db *mockDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (db *mockDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.execSQL = append(db.execSQL, sql)
	db.execArgs = append(db.execArgs, args)
	return pgconn.CommandTag{}, nil
}

func TestPostgresStore_LookupMissSynthesizesRecord(t *testing.T) {
	t.Parallel()

	db := &mockDB{row: &mockRow{scanFunc: func(...any) error { return pgx.ErrNoRows }}}
	store := NewPostgresStore(db)

	rec, err := store.Lookup(context.Background(), "Tomato___Rare_Condition")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec.Found {
		t.Error("Found = true, want false for missing row")
	}
	if rec.DiseaseName != "Tomato Rare Condition" {
		t.Errorf("DiseaseName = %q, want %q", rec.DiseaseName, "Tomato Rare Condition")
	}
}

func TestPostgresStore_UpsertNormalizesKey(t *testing.T) {
	t.Parallel()

	db := &mockDB{}
	store := NewPostgresStore(db)

	err := store.Upsert(context.Background(), "Tomato___Late_blight", TreatmentRecord{
		DiseaseName: "Tomato Late Blight",
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if len(db.execArgs) != 1 {
		t.Fatalf("Exec called %d times, want 1", len(db.execArgs))
	}
	if got := db.execArgs[0][0]; got != "tomato_late_blight" {
		t.Errorf("stored key = %v, want %q", got, "tomato_late_blight")
	}
}

func TestPostgresStore_UpsertRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	store := NewPostgresStore(&mockDB{})
	if err := store.Upsert(context.Background(), "___", TreatmentRecord{}); err == nil {
		t.Error("Upsert(empty key): want error, got nil")
	}
}

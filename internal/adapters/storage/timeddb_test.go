package storage

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"therapro/internal/adapters/http/perf"
)

func openTimedTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := openTestDB(t)
	if _, err := db.Exec("CREATE TABLE test (id TEXT PRIMARY KEY, val TEXT)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	return db
}

func TestTimedDB_RecordsEveryCall(t *testing.T) {
	db := openTimedTestDB(t)
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(db, collector, 0)
	ctx := context.Background()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "1", "hello"); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	rows, err := tdb.QueryContext(ctx, "SELECT id, val FROM test")
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	rows.Close()
	var val string
	if err := tdb.QueryRowContext(ctx, "SELECT val FROM test WHERE id = ?", "1").Scan(&val); err != nil {
		t.Fatalf("QueryRowContext: %v", err)
	}
	if val != "hello" {
		t.Errorf("val = %q, want hello", val)
	}
	tx, err := tdb.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	tx.Rollback()

	if got := collector.TotalRecorded(); got != 4 {
		t.Errorf("TotalRecorded = %d, want 4", got)
	}
	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	labels := map[string]bool{}
	for _, q := range snap.SlowestQueries {
		labels[q.Label] = true
	}
	for _, want := range []string{"INSERT test", "SELECT test", "BEGIN"} {
		if !labels[want] {
			t.Errorf("missing query label %q in %v", want, labels)
		}
	}
}

func TestTimedDB_ErrorsPassThrough(t *testing.T) {
	db := openTimedTestDB(t)
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(db, collector, 0)
	ctx := context.Background()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO nonexistent_table VALUES (?)", 1); err == nil {
		t.Error("ExecContext: expected error")
	}
	if _, err := tdb.QueryContext(ctx, "SELECT * FROM nonexistent_table"); err == nil {
		t.Error("QueryContext: expected error")
	}
	var val string
	if err := tdb.QueryRowContext(ctx, "SELECT val FROM test WHERE id = ?", "missing").Scan(&val); err != sql.ErrNoRows {
		t.Errorf("QueryRowContext: got %v, want sql.ErrNoRows", err)
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := tdb.ExecContext(cancelled, "INSERT INTO test (id, val) VALUES (?, ?)", "2", "x"); err == nil {
		t.Error("ExecContext with cancelled ctx: expected error")
	}
	if got := collector.TotalRecorded(); got != 4 {
		t.Errorf("TotalRecorded = %d, want 4 (failures are timed too)", got)
	}
}

func TestTimedDB_ResultPassthrough(t *testing.T) {
	db := openTimedTestDB(t)
	tdb := NewTimedDB(db, nil, 0)
	ctx := context.Background()
	tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES ('1', 'a'), ('2', 'b')")

	res, err := tdb.ExecContext(ctx, "UPDATE test SET val = 'z'")
	if err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	if n, _ := res.RowsAffected(); n != 2 {
		t.Errorf("RowsAffected = %d, want 2", n)
	}
}

func TestTimedDB_Concurrent(t *testing.T) {
	db := openTimedTestDB(t)
	collector := perf.NewCollector(1000)
	tdb := NewTimedDB(db, collector, 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var n int
			tdb.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM test").Scan(&n)
		}()
	}
	wg.Wait()
	if got := collector.TotalRecorded(); got != 20 {
		t.Errorf("TotalRecorded = %d, want 20", got)
	}
}

func TestStatementLabel(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"SELECT id FROM child WHERE assigned_to = ?", "SELECT child"},
		{"  insert into therapist (id) values (?)", "INSERT therapist"},
		{"UPDATE child SET assigned_to = NULL", "UPDATE child"},
		{"DELETE FROM account WHERE id = ?", "DELETE account"},
		{"SELECT COUNT(*) FROM (SELECT 1)", "SELECT"},
		{"PRAGMA foreign_keys", "PRAGMA"},
		{"", "EMPTY"},
	}
	for _, tt := range tests {
		if got := statementLabel(tt.query); got != tt.want {
			t.Errorf("statementLabel(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

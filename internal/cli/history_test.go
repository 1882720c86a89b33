package cli

import (
	"bytes"
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"crystal/internal/store"
)

func TestRunHistory_PrintsTurns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	st := store.NewStoreFromDB(db)

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"turn_id", "session_id", "utterance", "tokens", "outcome", "result", "context_summary", "created_at"}).
		AddRow("t1", "sess-1", "John is a man.", pq.StringArray{"John", "is", "a", "man", "."}, "statement", "Statement added.", "man.n.01(s_John)", created).
		AddRow("t2", "sess-1", "Is John happy?", pq.StringArray{"Is", "John", "happy", "?"}, "question", "That is unknown.", "man.n.01(s_John)", created.Add(time.Second))
	mock.ExpectQuery(regexp.QuoteMeta("FROM crystal.turns")).
		WithArgs("sess-1").
		WillReturnRows(rows)

	var buf bytes.Buffer
	if err := RunHistory(context.Background(), st, "sess-1", &buf); err != nil {
		t.Fatalf("RunHistory returned error: %v", err)
	}
	out := buf.String()

	if !regexp.MustCompile(`Found\s+2\s+turns`).MatchString(out) {
		t.Errorf("output did not report turn count: %s", out)
	}
	if !regexp.MustCompile(`Outcome:\s+statement`).MatchString(out) {
		t.Errorf("output missing statement outcome: %s", out)
	}
	if !regexp.MustCompile(`> Is John happy\?`).MatchString(out) {
		t.Errorf("output missing utterance: %s", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRunHistory_ListsSessions(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	st := store.NewStoreFromDB(db)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"session_id", "turns", "started_at", "last_turn_at"}).
		AddRow("sess-2", 4, now, now.Add(time.Minute)).
		AddRow("sess-1", 1, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY session_id")).WillReturnRows(rows)

	var buf bytes.Buffer
	if err := RunHistory(context.Background(), st, "", &buf); err != nil {
		t.Fatalf("RunHistory returned error: %v", err)
	}
	out := buf.String()
	if !regexp.MustCompile(`Found\s+2\s+sessions`).MatchString(out) {
		t.Errorf("output did not report session count: %s", out)
	}
	if !regexp.MustCompile(`sess-2\s+4 turns`).MatchString(out) {
		t.Errorf("output missing session line: %s", out)
	}
}

func TestRunHistory_PropagatesErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	st := store.NewStoreFromDB(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM crystal.turns")).
		WithArgs("sess-1").
		WillReturnError(context.DeadlineExceeded)

	var buf bytes.Buffer
	if err := RunHistory(context.Background(), st, "sess-1", &buf); err == nil {
		t.Fatalf("expected error")
	}
}

// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T, dialect Dialect) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := NewSQLStore(db, dialect, "integration_kv")
	if err != nil {
		t.Fatal(err)
	}
	return s, mock
}

func TestSQLStore_ListKeys_Pagination(t *testing.T) {
	s, mock := newMockStore(t, DialectPostgres)

	// Batch size is 100. 101 rows trigger a second query keyed on the last id.
	rows1 := sqlmock.NewRows([]string{"id"})
	for i := 1; i <= 100; i++ {
		rows1.AddRow(fmt.Sprintf("api/%03d", i))
	}
	rows2 := sqlmock.NewRows([]string{"id"}).AddRow("api/101")

	mock.ExpectQuery(s.listFirstQuery()).WithArgs("api/%").WillReturnRows(rows1)
	mock.ExpectQuery(s.listNextQuery()).WithArgs("api/%", "api/100").WillReturnRows(rows2)

	keys, err := s.ListKeys(context.Background(), "api/")
	if err != nil {
		t.Fatalf("error was not expected: %s", err)
	}
	if len(keys) != 101 {
		t.Errorf("expected 101 keys, got %d", len(keys))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestSQLStore_PostgresPlaceholders(t *testing.T) {
	s, _ := newMockStore(t, DialectPostgres)
	want := "SELECT content FROM integration_kv WHERE id = $1"
	if got := s.getQuery(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	lite, _ := newMockStore(t, DialectSQLite)
	want = "SELECT content FROM integration_kv WHERE id = ?"
	if got := lite.getQuery(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSQLStore_GetNotFound(t *testing.T) {
	s, mock := newMockStore(t, DialectPostgres)
	mock.ExpectQuery(s.getQuery()).WithArgs("api/x").WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), "api/x")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLStore_SetUpserts(t *testing.T) {
	s, mock := newMockStore(t, DialectPostgres)
	mock.ExpectExec(s.upsertQuery()).
		WithArgs("api/1", `{"id":"1"}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.Set(context.Background(), "api/1", []byte(`{"id":"1"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestSQLStore_ListKeys_QueryError(t *testing.T) {
	s, mock := newMockStore(t, DialectSQLite)
	mock.ExpectQuery(s.listFirstQuery()).WithArgs("api/%").WillReturnError(errors.New("disk I/O error"))

	if _, err := s.ListKeys(context.Background(), "api/"); err == nil {
		t.Error("expected error to propagate")
	}
}

func TestSQLStore_DeleteAndSchema(t *testing.T) {
	s, mock := newMockStore(t, DialectSQLite)
	mock.ExpectExec(s.schemaQuery()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(s.deleteQuery()).WithArgs("api/1").WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "api/1"); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestLikePrefix(t *testing.T) {
	cases := map[string]string{
		"":      "%",
		"api/":  "api/%",
		"a_b%":  `a\_b\%%`,
		`back\`: `back\\%`,
	}
	for in, want := range cases {
		if got := likePrefix(in); got != want {
			t.Errorf("likePrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewSQLStore_RejectsBadTableName(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	for _, name := range []string{"", "kv; DROP TABLE x", "1kv", "a.b.c"} {
		if _, err := NewSQLStore(db, DialectSQLite, name); err == nil {
			t.Errorf("expected table name %q to be rejected", name)
		}
	}
	if _, err := NewSQLStore(db, DialectPostgres, "hub.integration_kv"); err != nil {
		t.Errorf("schema-qualified name should be accepted: %v", err)
	}
}

package migrate

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"0001_a.up.sql":   {Data: []byte("create table a (id int);\ninsert into a values (1);\n")},
		"0001_a.down.sql": {Data: []byte("drop table a;")},
		"0002_b.up.sql":   {Data: []byte("create table b (note text default 'x;y');")},
		"0002_b.down.sql": {Data: []byte("drop table b;")},
		"README.md":       {Data: []byte("not sql")},
	}
}

func newMock(t *testing.T) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	fixed := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	return NewManager(db, testFiles(), WithClock(func() time.Time { return fixed })), mock
}

func TestUpAppliesPendingOnly(t *testing.T) {
	mgr, mock := newMock(t)
	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_a.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("create table b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into schema_migrations").
		WithArgs("0002_b.up.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	applied, err := mgr.Up(context.Background())
	if err != nil {
		t.Fatalf("Up: %v", err)
	}
	if len(applied) != 1 || applied[0] != "0002_b.up.sql" {
		t.Fatalf("unexpected applied list: %v", applied)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpRollsBackFailedMigration(t *testing.T) {
	mgr, mock := newMock(t)
	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec("create table a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into a").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	applied, err := mgr.Up(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(applied) != 0 {
		t.Fatalf("nothing should be applied, got %v", applied)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDownRevertsLatest(t *testing.T) {
	mgr, mock := newMock(t)
	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_a.up.sql").AddRow("0002_b.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("drop table b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("delete from schema_migrations").
		WithArgs("0002_b.up.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	name, err := mgr.Down(context.Background())
	if err != nil {
		t.Fatalf("Down: %v", err)
	}
	if name != "0002_b.up.sql" {
		t.Fatalf("unexpected rollback target %s", name)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDownWithNothingApplied(t *testing.T) {
	mgr, mock := newMock(t)
	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").WillReturnRows(sqlmock.NewRows([]string{"name"}))

	if _, err := mgr.Down(context.Background()); !errors.Is(err, ErrNothingApplied) {
		t.Fatalf("expected ErrNothingApplied, got %v", err)
	}
}

func TestSplitStatementsKeepsQuotedSemicolons(t *testing.T) {
	stmts := splitStatements("create table b (note text default 'x;y'); select 1;  ")
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := collectSQL(Embedded(), ".up.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(ups) == 0 {
		t.Fatal("no embedded migrations")
	}
	downs, _ := collectSQL(Embedded(), ".down.sql")
	if len(downs) != len(ups) {
		t.Fatalf("up/down mismatch: %v vs %v", ups, downs)
	}
}

package source

import (
	"context"
	"database/sql"
	"testing"

	"github.com/sambeau/fillin/pkg/fillin/value"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), "sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	stmts := []string{
		`CREATE TABLE invoices (no INTEGER, customer TEXT, total NUMERIC(10,2), due DATE, note TEXT)`,
		`INSERT INTO invoices VALUES (1, 'Ada', 1234.5, '2025-01-31', NULL)`,
		`INSERT INTO invoices VALUES (2, 'Grace', 99, '2025-02-28', 'paid')`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
	return db
}

func TestQuery(t *testing.T) {
	db := openTestDB(t)

	records, err := Query(context.Background(), db, `SELECT no, customer, total, due, note FROM invoices WHERE no >= ? ORDER BY no`, 1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(records))
	}

	first := records[0]
	if names := first.Names(); len(names) != 5 || names[0] != "no" || names[4] != "note" {
		t.Errorf("expected select order, got %v", names)
	}

	tests := map[string]value.Kind{
		"no":       value.KindInt,
		"customer": value.KindString,
		"total":    value.KindDecimal,
		"due":      value.KindDate,
		"note":     value.KindNull,
	}
	for name, want := range tests {
		if got := lookupKind(t, first, name); got != want {
			t.Errorf("%s: expected %v, got %v", name, want, got)
		}
	}

	due, _ := first.Lookup("due")
	if got := due.Time().Format("2006-01-02"); got != "2025-01-31" {
		t.Errorf("unexpected due date %s", got)
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(context.Background(), "oracle", "x"); err == nil {
		t.Error("expected error for unknown driver")
	}
	if _, err := Open(context.Background(), "sqlite", ""); err == nil {
		t.Error("expected error for empty dsn")
	}
}

func TestColumnValue(t *testing.T) {
	tests := []struct {
		dbType string
		in     any
		want   value.Kind
	}{
		{"DATE", []byte("2025-01-31"), value.KindDate},
		{"DATE", "not a date", value.KindString},
		{"NUMERIC", []byte("12.50"), value.KindDecimal},
		{"DECIMAL(10,2)", 12.5, value.KindDecimal},
		{"BOOLEAN", int64(1), value.KindBool},
		{"VARCHAR", []byte("x"), value.KindString},
		{"INT", nil, value.KindNull},
	}
	for _, tt := range tests {
		if got := columnValue(tt.dbType, tt.in).Kind(); got != tt.want {
			t.Errorf("columnValue(%q, %v) = %v, want %v", tt.dbType, tt.in, got, tt.want)
		}
	}
}

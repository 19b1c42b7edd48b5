package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/sambeau/fillin/pkg/fillin/props"
	"github.com/sambeau/fillin/pkg/fillin/value"
)

// Drivers lists the database/sql driver names accepted by Open.
var Drivers = []string{"sqlite", "postgres", "mysql"}

// Open opens a database with one of Drivers and checks the connection.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case "sqlite", "postgres", "mysql":
	default:
		return nil, fmt.Errorf("unknown database driver %q (want %s)", driver, strings.Join(Drivers, ", "))
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s: empty dsn", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return db, nil
}

// Query runs query and returns one Context per row with the columns in
// select order. DATE columns become dates and DECIMAL/NUMERIC columns keep
// their exact digits.
func Query(ctx context.Context, db *sql.DB, query string, args ...any) ([]*props.Context, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}

	var records []*props.Context
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		fields := make([]props.Field, len(columns))
		for i, col := range columns {
			fields[i] = props.Field{Name: col, Value: columnValue(types[i].DatabaseTypeName(), values[i])}
		}
		records = append(records, props.New(fields...))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return records, nil
}

// columnValue converts a scanned column by its declared type.
func columnValue(dbType string, v any) value.Value {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return value.Null
	}

	name, _, _ := strings.Cut(strings.ToUpper(strings.TrimSpace(dbType)), "(")
	switch name {
	case "DATE":
		switch x := v.(type) {
		case time.Time:
			return value.Date(x)
		case string:
			if t, err := time.Parse("2006-01-02", strings.TrimSpace(x)); err == nil {
				return value.Date(t)
			}
		}
	case "DECIMAL", "NUMERIC":
		switch x := v.(type) {
		case string:
			if d, err := value.ParseDecimal(x); err == nil {
				return value.DecimalValue(d)
			}
		case float64:
			return value.DecimalValue(value.DecimalFromFloat(x))
		}
	case "BOOL", "BOOLEAN":
		if i, ok := v.(int64); ok {
			return value.Bool(i != 0)
		}
	case "TIMESTAMPTZ":
		if t, ok := v.(time.Time); ok {
			return value.DateTimeOffset(t)
		}
	}
	return value.Of(v)
}

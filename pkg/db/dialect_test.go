package db

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDialectFragments(t *testing.T) {
	tests := []struct {
		name   string
		family Family
		get    func(Dialect) string
		want   string
	}{
		{"sqlite serial pk", FamilySQLite, Dialect.SerialPrimaryKey, "INTEGER PRIMARY KEY AUTOINCREMENT"},
		{"postgres serial pk", FamilyPostgres, Dialect.SerialPrimaryKey, "SERIAL PRIMARY KEY"},
		{"sqlite timestamp", FamilySQLite, Dialect.Timestamp, "TEXT"},
		{"postgres timestamp", FamilyPostgres, Dialect.Timestamp, "TIMESTAMPTZ"},
		{"sqlite boolean", FamilySQLite, Dialect.Boolean, "INTEGER"},
		{"postgres boolean", FamilyPostgres, Dialect.Boolean, "BOOLEAN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.get(NewDialect(tt.family))
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDialectBoolValue(t *testing.T) {
	sqlite := NewDialect(FamilySQLite)
	if v := sqlite.BoolValue(true); v != int64(1) {
		t.Errorf("sqlite BoolValue(true) = %v, want int64(1)", v)
	}
	if v := sqlite.BoolValue(false); v != int64(0) {
		t.Errorf("sqlite BoolValue(false) = %v, want int64(0)", v)
	}

	postgres := NewDialect(FamilyPostgres)
	if v := postgres.BoolValue(true); v != true {
		t.Errorf("postgres BoolValue(true) = %v, want true", v)
	}
}

func TestFormatTimeFixedWidth(t *testing.T) {
	// Миллисекунды фиксированной ширины: лексикографический порядок
	// строк совпадает с хронологическим
	early := time.Date(2025, 3, 1, 10, 0, 0, 5*int(time.Millisecond), time.UTC)
	late := time.Date(2025, 3, 1, 10, 0, 0, 120*int(time.Millisecond), time.UTC)

	earlyStr := FormatTime(early)
	lateStr := FormatTime(late)

	if len(earlyStr) != len(lateStr) {
		t.Fatalf("timestamps have different widths: %q vs %q", earlyStr, lateStr)
	}
	if !(earlyStr < lateStr) {
		t.Errorf("lexicographic order broken: %q >= %q", earlyStr, lateStr)
	}
	if earlyStr != "2025-03-01T10:00:00.005Z" {
		t.Errorf("unexpected format: %q", earlyStr)
	}
}

func TestFormatTimeNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	local := time.Date(2025, 6, 1, 15, 0, 0, 0, loc)

	if got := FormatTime(local); got != "2025-06-01T12:00:00.000Z" {
		t.Errorf("expected UTC normalization, got %q", got)
	}
}

func TestFTSSearchArgs(t *testing.T) {
	// PostgreSQL использует query дважды (match + rank), SQLite один раз
	if args := NewDialect(FamilyPostgres).FTSSearchArgs("q", 10); len(args) != 3 {
		t.Errorf("postgres search args = %d, want 3", len(args))
	}
	if args := NewDialect(FamilySQLite).FTSSearchArgs("q", 10); len(args) != 2 {
		t.Errorf("sqlite search args = %d, want 2", len(args))
	}
}

func TestFTSCreateFamilies(t *testing.T) {
	sqliteDDL := NewDialect(FamilySQLite).FTSCreate("analysis_fts")
	if len(sqliteDDL) != 1 || !strings.Contains(sqliteDDL[0], "fts5") {
		t.Errorf("sqlite FTS DDL should use fts5 virtual table: %v", sqliteDDL)
	}

	pgDDL := NewDialect(FamilyPostgres).FTSCreate("analysis_fts")
	if len(pgDDL) != 2 || !strings.Contains(pgDDL[0], "TSVECTOR") {
		t.Errorf("postgres FTS DDL should use tsvector: %v", pgDDL)
	}
	if !strings.Contains(pgDDL[1], "GIN") {
		t.Errorf("postgres FTS DDL should create GIN index: %v", pgDDL)
	}
}

func TestValidateJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		wantErr bool
	}{
		{"valid object", []byte(`{"a": 1}`), false},
		{"valid array", []byte(`[1, 2, 3]`), false},
		{"empty defaults to object", nil, false},
		{"truncated", []byte(`{"a": `), true},
		{"garbage", []byte(`not json`), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized, err := ValidateJSON("field", tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Errorf("expected ValidationError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(normalized) == 0 {
				t.Error("normalized JSON is empty")
			}
		})
	}
}

func TestValidateJSONEmptyInput(t *testing.T) {
	normalized, err := ValidateJSON("field", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(normalized) != "{}" {
		t.Errorf("empty input should normalize to {}, got %q", normalized)
	}
}

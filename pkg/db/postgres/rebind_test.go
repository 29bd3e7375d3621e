package postgres

import "testing"

func TestRebind(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "no placeholders",
			query: "SELECT 1",
			want:  "SELECT 1",
		},
		{
			name:  "single placeholder",
			query: "SELECT * FROM t WHERE id = ?",
			want:  "SELECT * FROM t WHERE id = $1",
		},
		{
			name:  "multiple placeholders ordered",
			query: "INSERT INTO t (a, b, c) VALUES (?, ?, ?)",
			want:  "INSERT INTO t (a, b, c) VALUES ($1, $2, $3)",
		},
		{
			name:  "question mark inside string literal",
			query: "SELECT * FROM t WHERE q = 'why?' AND id = ?",
			want:  "SELECT * FROM t WHERE q = 'why?' AND id = $1",
		},
		{
			name:  "escaped quote inside literal",
			query: "SELECT * FROM t WHERE q = 'it''s a ?' AND id = ?",
			want:  "SELECT * FROM t WHERE q = 'it''s a ?' AND id = $1",
		},
		{
			name:  "more than nine placeholders",
			query: "INSERT INTO t VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			want:  "INSERT INTO t VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rebind(tt.query); got != tt.want {
				t.Errorf("Rebind() = %q, want %q", got, tt.want)
			}
		})
	}
}

package db

import "testing"

func TestOperationOf(t *testing.T) {
	t.Parallel()
	tests := []struct {
		sql  string
		want string
	}{
		{sql: "SELECT id FROM todo_task", want: "select"},
		{sql: "\n\t  update todo_task SET status = 1", want: "update"},
		{sql: "", want: "unknown"},
	}
	for _, tt := range tests {
		if got := operationOf(tt.sql); got != tt.want {
			t.Errorf("operationOf(%q) = %q, want %q", tt.sql, got, tt.want)
		}
	}
}

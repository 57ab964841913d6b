package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"一意制約違反", &pq.Error{Code: "23505"}, true},
		{"ラップされた一意制約違反", fmt.Errorf("failed to create like: %w", &pq.Error{Code: "23505"}), true},
		{"外部キー違反", &pq.Error{Code: "23503"}, false},
		{"通常のエラー", errors.New("connection refused"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNullString(t *testing.T) {
	if ns := nullString(""); ns.Valid {
		t.Error("空文字列はNULLとして扱われるべき")
	}
	if ns := nullString("x"); !ns.Valid || ns.String != "x" {
		t.Errorf("nullString(\"x\") = %+v", ns)
	}
}

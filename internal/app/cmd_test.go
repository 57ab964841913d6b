package app

import (
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"引数なしはserve", []string{}, CommandServe},
		{"serve", []string{"serve"}, CommandServe},
		{"worker", []string{"worker"}, CommandWorker},
		{"cleanup", []string{"cleanup"}, CommandCleanup},
		{"migrate", []string{"migrate"}, CommandMigrate},
		{"rollback", []string{"rollback", "2"}, CommandRollback},
		{"healthcheck", []string{"healthcheck"}, CommandHealthcheck},
		{"不明なコマンドはserve", []string{"unknown"}, CommandServe},
		{"余分な引数は無視する", []string{"worker", "--flag", "value"}, CommandWorker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCommand(tt.args); got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseSteps(t *testing.T) {
	tests := []struct {
		args []string
		want int
	}{
		{[]string{"rollback"}, 1},
		{[]string{"rollback", "3"}, 3},
		{[]string{"rollback", "0"}, 1},
		{[]string{"rollback", "-2"}, 1},
		{[]string{"rollback", "abc"}, 1},
	}

	for _, tt := range tests {
		if got := ParseSteps(tt.args); got != tt.want {
			t.Errorf("ParseSteps(%v) = %d, want %d", tt.args, got, tt.want)
		}
	}
}

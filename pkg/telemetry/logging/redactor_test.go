package logging

import (
	"log/slog"
	"testing"
)

func TestRedactor_ShouldRedact(t *testing.T) {
	r := NewRedactor([]string{"Employee_Email"})

	tests := []struct {
		field string
		want  bool
	}{
		{"token", true},
		{"TOKEN", true},
		{"password", true},
		{"passphrase", true},
		{"secret", true},
		{"authorization", true},
		{"api_key", true},
		{"employee_email", true},
		{"EMPLOYEE_EMAIL", true},
		{"zone", false},
		{"subject", false},
		{"toke", false},
	}

	for _, tt := range tests {
		if got := r.ShouldRedact(tt.field); got != tt.want {
			t.Errorf("ShouldRedact(%q) = %v, want %v", tt.field, got, tt.want)
		}
	}
}

func TestRedactor_RedactArgs(t *testing.T) {
	r := NewRedactor(nil)

	args := r.RedactArgs("token", "gh-123", "zone", "green", "password", 12345)

	if args[1] != RedactedValue {
		t.Errorf("token value = %v, want %s", args[1], RedactedValue)
	}
	if args[3] != "green" {
		t.Errorf("zone value = %v, want green untouched", args[3])
	}
	if args[5] != RedactedValue {
		t.Errorf("password value = %v, want %s even for non-string", args[5], RedactedValue)
	}
}

func TestRedactor_RedactArgs_DoesNotMutateInput(t *testing.T) {
	r := NewRedactor(nil)

	in := []any{"token", "gh-123"}
	r.RedactArgs(in...)

	if in[1] != "gh-123" {
		t.Errorf("input slice mutated: %v", in[1])
	}
}

func TestRedactor_RedactsAttrs(t *testing.T) {
	r := NewRedactor(nil)

	args := r.RedactArgs(slog.String("token", "gh-123"), slog.String("zone", "red"))

	tok, ok := args[0].(slog.Attr)
	if !ok {
		t.Fatalf("args[0] is %T, want slog.Attr", args[0])
	}
	if tok.Value.String() != RedactedValue {
		t.Errorf("token attr = %v, want %s", tok.Value, RedactedValue)
	}
	zone := args[1].(slog.Attr)
	if zone.Value.String() != "red" {
		t.Errorf("zone attr = %v, want red", zone.Value)
	}
}

func TestRedactor_RedactsGroupMembers(t *testing.T) {
	r := NewRedactor(nil)

	group := slog.Group("git", slog.String("token", "gh-123"), slog.String("branch", "main"))
	args := r.RedactArgs(group)

	got := args[0].(slog.Attr)
	members := got.Value.Group()
	if len(members) != 2 {
		t.Fatalf("group has %d members, want 2", len(members))
	}
	if members[0].Value.String() != RedactedValue {
		t.Errorf("nested token = %v, want %s", members[0].Value, RedactedValue)
	}
	if members[1].Value.String() != "main" {
		t.Errorf("nested branch = %v, want main", members[1].Value)
	}
}

package tools

import (
	"context"
	"strings"
	"testing"
)

func TestCalculateBasics(t *testing.T) {
	cases := []struct {
		expr string
		want string
	}{
		{"2 + 2", "4"},
		{"10 - 3", "7"},
		{"6 * 7", "42"},
		{"10 / 4", "2.5"},
		{"7 % 3", "1"},
		{"2 ^ 10", "1024"},
		{"2 * (3 + 4)", "14"},
		{"-5 + 3", "-2"},
		{"-(2 + 3)", "-5"},
		{"2 ^ 3 ^ 2", "512"}, // right-associative
		{"1.5 * 2", "3"},
	}
	tool := &CalculateTool{}
	for _, c := range cases {
		got, err := tool.Execute(context.Background(), map[string]any{"expression": c.expr})
		if err != nil {
			t.Errorf("%s: unexpected error %v", c.expr, err)
			continue
		}
		if got != c.want {
			t.Errorf("%s: got %s, want %s", c.expr, got, c.want)
		}
	}
}

func TestCalculateErrors(t *testing.T) {
	tool := &CalculateTool{}
	for _, expr := range []string{
		"1 / 0",
		"5 % 0",
		"2 +",
		"(1 + 2",
		"hello",
		"",
		"import os",
		"2; rm -rf /",
	} {
		got, err := tool.Execute(context.Background(), map[string]any{"expression": expr})
		if err != nil {
			t.Errorf("%q: tool errors should be reported as text, got error %v", expr, err)
			continue
		}
		if !strings.Contains(got, "Cannot evaluate") {
			t.Errorf("%q: expected evaluation failure message, got %q", expr, got)
		}
	}
}

func TestCalculateRejectsLongExpression(t *testing.T) {
	tool := &CalculateTool{}
	long := strings.Repeat("1+", 300) + "1"
	got, _ := tool.Execute(context.Background(), map[string]any{"expression": long})
	if !strings.Contains(got, "Cannot evaluate") {
		t.Errorf("expected rejection of oversized expression, got %q", got)
	}
}

func TestCalculateNonStringArg(t *testing.T) {
	tool := &CalculateTool{}
	if _, err := tool.Execute(context.Background(), map[string]any{"expression": 42}); err == nil {
		t.Error("expected error for non-string expression")
	}
}

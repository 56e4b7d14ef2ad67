package severity

import (
	"testing"
)

func TestFromSARIFLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"error", Error},
		{"warning", Warning},
		{"note", Information},
		{"none", Hint},
		{"", Hint},
		{"unexpected-value", Hint},
		{"ERROR", Error},
		{"  warning  ", Warning},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := FromSARIFLevel(tt.input); got != tt.expected {
				t.Errorf("FromSARIFLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLevel_Priority(t *testing.T) {
	tests := []struct {
		level    Level
		expected int
	}{
		{Error, 4},
		{Warning, 3},
		{Information, 2},
		{Hint, 1},
		{Level("invalid"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			if got := tt.level.Priority(); got != tt.expected {
				t.Errorf("Level.Priority() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLevel_IsAtLeast(t *testing.T) {
	if !Error.IsAtLeast(Warning) {
		t.Error("Error should be at least Warning")
	}
	if Hint.IsAtLeast(Information) {
		t.Error("Hint should not be at least Information")
	}
	if !Warning.IsAtLeast(Warning) {
		t.Error("Warning should be at least itself")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b     Level
		expected int
	}{
		{Error, Warning, 1},
		{Warning, Error, -1},
		{Hint, Hint, 0},
		{Information, Hint, 1},
	}

	for _, tt := range tests {
		if got := Compare(tt.a, tt.b); got != tt.expected {
			t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.expected)
		}
	}
}

func TestCounts_Increment(t *testing.T) {
	var c Counts
	c.Increment(Error)
	c.Increment(Error)
	c.Increment(Warning)
	c.Increment(Hint)
	c.Increment(Level("bogus")) // unknown counts as hint

	if c.Error != 2 {
		t.Errorf("Error count = %d, want 2", c.Error)
	}
	if c.Warning != 1 {
		t.Errorf("Warning count = %d, want 1", c.Warning)
	}
	if c.Hint != 2 {
		t.Errorf("Hint count = %d, want 2", c.Hint)
	}
	if c.Total != 5 {
		t.Errorf("Total = %d, want 5", c.Total)
	}
}

func TestCounts_Highest(t *testing.T) {
	var empty Counts
	if got := empty.Highest(); got != Hint {
		t.Errorf("empty Highest() = %v, want Hint", got)
	}

	c := Counts{Warning: 1, Information: 3}
	if got := c.Highest(); got != Warning {
		t.Errorf("Highest() = %v, want Warning", got)
	}
}

func TestCounts_AtOrAbove(t *testing.T) {
	c := Counts{Error: 1, Warning: 2, Information: 3, Hint: 4, Total: 10}

	tests := []struct {
		min      Level
		expected int
	}{
		{Error, 1},
		{Warning, 3},
		{Information, 6},
		{Hint, 10},
	}

	for _, tt := range tests {
		t.Run(string(tt.min), func(t *testing.T) {
			if got := c.AtOrAbove(tt.min); got != tt.expected {
				t.Errorf("AtOrAbove(%v) = %d, want %d", tt.min, got, tt.expected)
			}
		})
	}
}

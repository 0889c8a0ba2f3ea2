package severity

import (
	"testing"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{Critical, "Critical"},
		{High, "High"},
		{Medium, "Medium"},
		{Low, "Low"},
		{Info, "Info"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLevel_Priority(t *testing.T) {
	tests := []struct {
		level    Level
		expected int
	}{
		{Critical, 5},
		{High, 4},
		{Medium, 3},
		{Low, 2},
		{Info, 1},
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

func TestFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		// Known vocabulary, canonical casing
		{"Critical", Critical},
		{"High", High},
		{"Medium", Medium},
		{"Low", Low},
		{"Informational", Info},
		{"Info", Info},

		// Case-insensitive
		{"CRITICAL", Critical},
		{"high", High},
		{"mEdIuM", Medium},
		{"LOW", Low},
		{"informational", Info},

		// Surrounding whitespace
		{"  High  ", High},
		{"\tlow\n", Low},
		{" informational ", Info},

		// Everything else collapses to Info
		{"", Info},
		{"Optimization", Info},
		{"WARNING", Info},
		{"ERROR", Info},
		{"Unknown", Info},
		{"high-ish", Info},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := FromString(tt.input); got != tt.expected {
				t.Errorf("FromString(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLevel_IsHigherThan(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Level
		expected bool
	}{
		{"Critical > High", Critical, High, true},
		{"High > Medium", High, Medium, true},
		{"Medium > Low", Medium, Low, true},
		{"Low > Info", Low, Info, true},
		{"Same severity", High, High, false},
		{"Low not > High", Low, High, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.IsHigherThan(tt.b); got != tt.expected {
				t.Errorf("Level.IsHigherThan() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Level
		expected int
	}{
		{"equal", Medium, Medium, 0},
		{"lower", Low, High, -1},
		{"higher", Critical, Info, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.expected {
				t.Errorf("Compare(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestAllLevels(t *testing.T) {
	levels := AllLevels()
	if len(levels) != 5 {
		t.Fatalf("AllLevels() returned %d levels, want 5", len(levels))
	}

	// Verify order (highest first)
	expected := []Level{Critical, High, Medium, Low, Info}
	for i, lvl := range levels {
		if lvl != expected[i] {
			t.Errorf("AllLevels()[%d] = %v, want %v", i, lvl, expected[i])
		}
	}
}

func TestCountBySeverity(t *testing.T) {
	var c CountBySeverity
	for _, lvl := range []Level{High, High, Medium, Info, Critical, Level("bogus")} {
		c.Increment(lvl)
	}

	if c.Total != 6 {
		t.Errorf("Total = %d, want 6", c.Total)
	}
	if c.Critical != 1 || c.High != 2 || c.Medium != 1 || c.Low != 0 {
		t.Errorf("unexpected counts: %+v", c)
	}
	// Unknown levels are counted as Info
	if c.Info != 2 {
		t.Errorf("Info = %d, want 2", c.Info)
	}
	if got := c.Highest(); got != Critical {
		t.Errorf("Highest() = %v, want Critical", got)
	}
}

func TestCountBySeverity_HighestEmpty(t *testing.T) {
	var c CountBySeverity
	if got := c.Highest(); got != Info {
		t.Errorf("Highest() on empty counts = %v, want Info", got)
	}
}

package language

import (
	"testing"
)

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// 2-letter codes pass through
		{"pl", "pl"},
		{"PL", "pl"},
		{"en", "en"},
		// 3-letter codes convert
		{"pol", "pl"},
		{"eng", "en"},
		{"deu", "de"},
		{"ger", "de"},
		{"fra", "fr"},
		{"fre", "fr"},
		{"ces", "cs"},
		{"cze", "cs"},
		{"ukr", "uk"},
		// Word forms
		{"polish", "pl"},
		{"English", "en"},
		{"GERMAN", "de"},
		// Unknown 2-letter passes through
		{"xy", "xy"},
		// Unknown 3-letter returns empty
		{"xyz", ""},
		// Empty
		{"", ""},
		{" ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ToISO2(tt.input)
			if result != tt.expected {
				t.Errorf("ToISO2(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"pl", "Polish"},
		{"pol", "Polish"},
		{"polish", "Polish"},
		{"en", "English"},
		{"", "Unknown"},
		{"  ", "Unknown"},
		{"xx", "XX"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expected {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

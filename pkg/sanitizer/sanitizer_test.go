package sanitizer

import "testing"

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trim spaces",
			input: "  Desk 4  ",
			want:  "Desk 4",
		},
		{
			name:  "multiple spaces between words",
			input: "Desk    4",
			want:  "Desk 4",
		},
		{
			name:  "tabs and newlines",
			input: "Desk\t\n4",
			want:  "Desk 4",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: "   \t\n  ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrimAndNormalize(tt.input); got != tt.want {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeStatus(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"RESERVED", "RESERVED"},
		{"reserved", "RESERVED"},
		{"  Expired\n", "EXPIRED"},
		{"", ""},
		{"unknown", "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := SanitizeStatus(tt.input); got != tt.want {
			t.Errorf("SanitizeStatus(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"42", "42"},
		{" 42 ", "42"},
		{"+42", "42"},
		{"00042", "42"},
		{"0", "0"},
		{"000", "0"},
		{"abc", "abc"},
		{"-5", "-5"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SanitizeID(tt.input); got != tt.want {
			t.Errorf("SanitizeID(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

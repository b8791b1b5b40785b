package postprocess

import "testing"

func TestStripThinking(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no block", "gats", "gats"},
		{"think block", "<think>plural adds s</think>\nPlural: gats", "Plural: gats"},
		{"case insensitive", "<THINKING>x</THINKING> cats", "cats"},
		{"multiline block", "<reasoning>\nline1\nline2\n</reasoning>answer", "answer"},
		{"two blocks", "<think>a</think>one <reflection>b</reflection>two", "one two"},
		{"truncated block", "Plural: gats <think>still going", "Plural: gats"},
		{"only thinking", "<think>nothing else</think>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripThinking(tt.input); got != tt.want {
				t.Errorf("StripThinking(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSingleLine(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"translated text", "translated text"},
		{"  padded \n", "padded"},
		{"line one\nline two", "line one line two"},
		{"windows\r\nbreaks", "windows breaks"},
		{"old\rmac", "old mac"},
		{"a\n\nb", "a  b"},
	}
	for _, tt := range tests {
		if got := SingleLine(tt.input); got != tt.want {
			t.Errorf("SingleLine(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

package extract

import "testing"

func TestIsNone(t *testing.T) {
	for _, p := range []string{"none", "None", "NONE", " none ", ""} {
		if !IsNone(p) {
			t.Errorf("IsNone(%q) = false, want true", p)
		}
	}
	for _, p := range []string{":(.*)", "nonempty"} {
		if IsNone(p) {
			t.Errorf("IsNone(%q) = true, want false", p)
		}
	}
}

func TestNew_RejectsBadPatterns(t *testing.T) {
	if _, err := New(`(unclosed`, Fallback); err == nil {
		t.Error("expected compile error")
	}
	if _, err := New(`no group`, Fallback); err == nil {
		t.Error("expected error for pattern without capture group")
	}
}

func TestExtract_None(t *testing.T) {
	for _, policy := range []Policy{Fallback, Strict} {
		e, err := New("None", policy)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		got, ok := e.Extract("  translated\ntext  \n")
		if !ok || got != "translated text" {
			t.Errorf("%s: got (%q, %v), want (%q, true)", policy, got, ok, "translated text")
		}
	}
}

func TestExtract_Match(t *testing.T) {
	e, err := New(`:\s*(.+)`, Strict)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, ok := e.Extract("Plural: gats ")
	if !ok || got != "gats" {
		t.Errorf("got (%q, %v), want (%q, true)", got, ok, "gats")
	}
}

func TestExtract_MissAsymmetry(t *testing.T) {
	raw := " cats are\nanimals "

	fb, _ := New(`:\s*(.+)`, Fallback)
	got, o := fb.Apply(raw)
	if o != FellBack || got != "cats are animals" {
		t.Errorf("fallback: got (%q, %s), want (%q, fallback)", got, o, "cats are animals")
	}

	st, _ := New(`:\s*(.+)`, Strict)
	got, ok := st.Extract(raw)
	if ok || got != "" {
		t.Errorf("strict: got (%q, %v), want absent", got, ok)
	}
}

func TestExtract_EmptyCapture(t *testing.T) {
	st, _ := New(`Plural:(.*)`, Strict)
	if v, ok := st.Extract("Plural:   "); ok {
		t.Errorf("strict empty capture: got %q, want absent", v)
	}

	fb, _ := New(`Plural:(.*)`, Fallback)
	v, o := fb.Apply("Plural:   ")
	if o != Matched || v != "" {
		t.Errorf("fallback empty capture: got (%q, %s), want (\"\", matched)", v, o)
	}
}

func TestExtract_StripThinking(t *testing.T) {
	e, _ := New(`Plural:\s*(\S+)`, Strict, WithStripThinking(true))
	got, ok := e.Extract("<think>Plural: wrong</think>\nPlural: gats")
	if !ok || got != "gats" {
		t.Errorf("got (%q, %v), want (%q, true)", got, ok, "gats")
	}

	plain, _ := New(`Plural:\s*(\S+)`, Strict)
	if got, _ := plain.Extract("<think>Plural: wrong</think>\nPlural: gats"); got != "wrong</think>" {
		t.Errorf("without stripping got %q, want first match %q", got, "wrong</think>")
	}
}

func TestExtract_MultilineCapture(t *testing.T) {
	e, _ := New(`(?s)Answer:(.*)`, Fallback)
	got, _ := e.Extract("Answer: first\nsecond")
	if got != "first second" {
		t.Errorf("got %q, want %q", got, "first second")
	}
}

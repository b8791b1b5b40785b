package prompt

import (
	"strings"
	"testing"
)

func TestRender_Positional(t *testing.T) {
	tests := []struct {
		name     string
		template string
		row      Positional
		want     string
	}{
		{"bracket index", "Translate {P[0]} and {P[1]}", Positional{"Hello", "World"}, "Translate Hello and World"},
		{"bare index", "{1}/{0}", Positional{"a", "b"}, "b/a"},
		{"repeated", "{0}{0}{0}", Positional{"x"}, "xxx"},
		{"no placeholders", "static text", Positional{"ignored"}, "static text"},
		{"escaped braces", "{{literal}} {0}", Positional{"v"}, "{literal} v"},
		{"empty field", "[{0}]", Positional{""}, "[]"},
		{"multibyte", "Слово: {0}", Positional{"кіт"}, "Слово: кіт"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.template, tt.row)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRender_PositionalOutOfRange(t *testing.T) {
	_, err := Render("{P[0]} {P[2]}", Positional{"a", "b"})
	if err == nil {
		t.Fatal("expected binding error")
	}
	if !IsBindingError(err) {
		t.Fatalf("expected BindingError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "P[2]") {
		t.Errorf("error should name the placeholder, got %q", err.Error())
	}
}

func TestRender_PositionalRejectsNames(t *testing.T) {
	if _, err := Render("{term}", Positional{"a"}); !IsBindingError(err) {
		t.Fatalf("expected BindingError, got %v", err)
	}
}

func TestRender_Named(t *testing.T) {
	b := Named{Language: "English", Term: "cat"}
	tests := []struct {
		template string
		want     string
	}{
		{"Plural of {term} in {lang}:", "Plural of cat in English:"},
		{"{language}: {term}", "English: cat"},
		{"{TERM} ({Lang})", "cat (English)"},
		{"{ term }", "cat"},
	}
	for _, tt := range tests {
		got, err := Render(tt.template, b)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.template, err)
		}
		if got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.template, got, tt.want)
		}
	}
}

func TestRender_NamedUnknown(t *testing.T) {
	for _, tpl := range []string{"{source}", "{0}", "{P[1]}"} {
		_, err := Render(tpl, Named{Language: "English", Term: "cat"})
		if !IsBindingError(err) {
			t.Errorf("%q: expected BindingError, got %v", tpl, err)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	bad := []string{
		"unterminated {0",
		"stray } brace",
		"empty {}",
		"negative {-1}",
		"bad index {P[x]}",
		"nested {a{b}",
	}
	for _, tpl := range bad {
		if _, err := Parse(tpl); err == nil {
			t.Errorf("%q: expected parse error", tpl)
		} else if IsBindingError(err) {
			t.Errorf("%q: parse errors must not be binding errors", tpl)
		}
	}
}

func TestTemplate_Idempotent(t *testing.T) {
	tpl, err := Parse("{P[0]} -> {P[1]}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row := Positional{"gat", "cat"}
	first, err := tpl.Render(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := tpl.Render(row)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again != first {
			t.Fatalf("render %d: got %q, want %q", i, again, first)
		}
	}
	if tpl.String() != "{P[0]} -> {P[1]}" {
		t.Errorf("String() = %q", tpl.String())
	}
}

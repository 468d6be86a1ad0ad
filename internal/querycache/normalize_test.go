package querycache

import "testing"

func TestNormalize(t *testing.T) {
	t.Run("Lowercases And Sorts Tokens", func(t *testing.T) {
		got := Normalize("Blinding Lights The Weeknd")
		want := "blinding lights the weeknd"
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("Word Order Independent", func(t *testing.T) {
		a := Normalize("The Weeknd Blinding Lights")
		b := Normalize("Blinding Lights The Weeknd")
		if a != b {
			t.Errorf("expected identical keys, got %q and %q", a, b)
		}
	})

	t.Run("Strips Punctuation", func(t *testing.T) {
		got := Normalize("Don't Stop Me Now!")
		want := "dont me now stop"
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("Collapses Whitespace", func(t *testing.T) {
		got := Normalize("  hello \t world\n")
		want := "hello world"
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("Drops Non ASCII Runes", func(t *testing.T) {
		got := Normalize("café 123")
		want := "123 caf"
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		once := Normalize("Mr. Brightside -- The Killers")
		twice := Normalize(once)
		if once != twice {
			t.Errorf("expected idempotence, got %q then %q", once, twice)
		}
	})

	t.Run("Empty Input", func(t *testing.T) {
		if got := Normalize("!!! ???"); got != "" {
			t.Errorf("expected empty key, got %q", got)
		}
	})
}

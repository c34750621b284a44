package chunker

import (
	"errors"
	"strings"
	"testing"
)

func TestNew_InvalidParams(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.size, tt.overlap)
			if !errors.Is(err, ErrInvalidParams) {
				t.Errorf("New(%d, %d) = %v, want ErrInvalidParams", tt.size, tt.overlap, err)
			}
		})
	}
}

func TestSplit_Empty(t *testing.T) {
	c, err := New(10, 2)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if got := c.Split(""); got != nil {
		t.Errorf("Split(\"\") = %v, want nil", got)
	}
	if got := c.Split("  \n\t "); got != nil {
		t.Errorf("Split(whitespace) = %v, want nil", got)
	}
}

func TestSplit_ShortInput(t *testing.T) {
	c, err := New(100, 20)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	got := c.Split("short text")
	if len(got) != 1 || got[0] != "short text" {
		t.Errorf("Split() = %v, want single chunk with full text", got)
	}
}

func TestSplit_ExactOverlap(t *testing.T) {
	c, err := New(10, 3)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	text := "abcdefghijklmnopqrstuvwxyz"
	chunks := c.Split(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i := 0; i < len(chunks)-1; i++ {
		cur := []rune(chunks[i])
		next := []rune(chunks[i+1])

		if len(cur) != 10 {
			t.Errorf("chunk %d has %d runes, want 10", i, len(cur))
		}

		// Consecutive chunks share exactly the overlap suffix/prefix.
		tail := string(cur[len(cur)-3:])
		head := string(next[:min(3, len(next))])
		if !strings.HasPrefix(tail, head) && tail != head {
			t.Errorf("chunk %d tail %q does not match chunk %d head %q", i, tail, i+1, head)
		}
	}
}

func TestSplit_CoversAllInput(t *testing.T) {
	c, err := New(7, 2)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	text := "the quick brown fox jumps over the lazy dog"
	chunks := c.Split(text)

	// Reassemble by dropping the overlap from every chunk after the first.
	var rebuilt strings.Builder
	for i, chunk := range chunks {
		runes := []rune(chunk)
		if i == 0 {
			rebuilt.WriteString(chunk)
			continue
		}
		rebuilt.WriteString(string(runes[2:]))
	}

	if rebuilt.String() != text {
		t.Errorf("chunks do not cover input:\ngot  %q\nwant %q", rebuilt.String(), text)
	}
}

func TestSplit_MultibyteRunes(t *testing.T) {
	c, err := New(5, 1)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	text := "dolor de pecho y presión"
	chunks := c.Split(text)

	for i, chunk := range chunks {
		if !strings.Contains(text, chunk) {
			t.Errorf("chunk %d %q is not a substring of input (broken rune boundary?)", i, chunk)
		}
	}

	// All but the last chunk are exactly 5 runes.
	for i := 0; i < len(chunks)-1; i++ {
		if n := len([]rune(chunks[i])); n != 5 {
			t.Errorf("chunk %d has %d runes, want 5", i, n)
		}
	}
}

func TestSplit_NoOverlap(t *testing.T) {
	c, err := New(4, 0)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	chunks := c.Split("abcdefgh")
	want := []string{"abcd", "efgh"}

	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

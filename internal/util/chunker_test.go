package util

import (
	"strings"
	"testing"
)

func TestChunkText(t *testing.T) {
	text := "abcdefghijklmnopqrstuvwxyz"
	chunks := ChunkText(text, 10, 2)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	if chunks[0] != "abcdefghij" {
		t.Fatalf("unexpected first chunk: %s", chunks[0])
	}
	if chunks[1][:2] != "ij" {
		t.Fatalf("expected overlap with previous chunk, got %s", chunks[1])
	}
}

func TestChunkTextBreaksOnWhitespace(t *testing.T) {
	text := "revenue grew in north while costs fell in south"
	for _, c := range ChunkText(text, 16, 0) {
		if !strings.Contains(text, c) {
			t.Fatalf("chunk %q is not a substring", c)
		}
		for _, w := range strings.Fields(c) {
			if !strings.Contains(" "+text+" ", " "+w+" ") {
				t.Fatalf("chunk %q splits a word: %q", c, w)
			}
		}
	}
}

func TestChunkTextEmpty(t *testing.T) {
	if got := ChunkText("   ", 10, 2); len(got) != 0 {
		t.Fatalf("expected no chunks for blank text, got %v", got)
	}
}

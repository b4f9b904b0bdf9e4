package tui

import (
	"strings"
	"testing"
)

func TestFitLinesPadsAndClips(t *testing.T) {
	out := fitLines("ab\ncd\nef", 4, 2)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "ab  " || lines[1] != "cd  " {
		t.Fatalf("unexpected lines: %q", lines)
	}
	out = fitLines("x", 2, 3)
	if strings.Count(out, "\n") != 2 {
		t.Fatalf("expected short content to be padded to 3 lines, got %q", out)
	}
}

func TestTruncateLine(t *testing.T) {
	if got := truncateLine("recording-0001.csv", 10); got != "recordi..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncateLine("short", 10); got != "short" {
		t.Fatalf("expected untouched line, got %q", got)
	}
	if got := truncateLine("abcdef", 2); got != "ab" {
		t.Fatalf("expected hard cut for tiny widths, got %q", got)
	}
}

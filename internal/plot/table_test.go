package plot

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Epoch", "Timestamp", "X"}
	rows := [][]string{
		{"1551693600000", "2019-03-04 10:00:00", "0.12"},
		{"1551693601500", "2019-03-04 10:00:01.5", "-1.04"},
	}
	rightAlign := map[int]bool{2: true}

	lines := FormatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Epoch          Timestamp                  X" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "1551693600000  2019-03-04 10:00:00     0.12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "1551693601500  2019-03-04 10:00:01.5  -1.04" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := FormatTable([]string{"Name", "N"}, [][]string{{"計測", "1"}}, nil)
	if lines[1] != "計測  1" {
		t.Fatalf("expected double-width runes to be padded by cell width, got %q", lines[1])
	}
}

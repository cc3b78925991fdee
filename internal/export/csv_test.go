package export

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/use-agent/leadforge/internal/leads"
)

func TestCSVExporter_WritesBOMAndHeader(t *testing.T) {
	addr := leads.NewAddress("Hauptstraße", "12", "10115", "Berlin", "")
	lead := mustLead(t, "Test GmbH", "Handwerk", addr)
	result := &leads.RunResult{Leads: []leads.Lead{*lead}}

	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	exp := NewCSVExporter(DefaultCSVOptions())
	if _, err := exp.Export(result, path); err != nil {
		t.Fatalf("Export: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(raw) < 3 || raw[0] != 0xEF || raw[1] != 0xBB || raw[2] != 0xBF {
		t.Fatalf("expected UTF-8 BOM prefix")
	}

	scanner := bufio.NewScanner(strings.NewReader(string(raw[3:])))
	if !scanner.Scan() {
		t.Fatal("expected header line")
	}
	header := scanner.Text()
	if !strings.Contains(header, "name;category") {
		t.Errorf("header = %q, want semicolon-delimited starting with name;category", header)
	}
}

func TestCSVExporter_ColumnSetSizes(t *testing.T) {
	cases := []struct {
		set  ColumnSet
		want int
	}{
		{ColumnsMinimal, 9},
		{ColumnsDefault, 17},
		{ColumnsFull, 25},
	}
	for _, c := range cases {
		got := columnsFor(c.set)
		if len(got) != c.want {
			t.Errorf("columnsFor(%v) len = %d, want %d", c.set, len(got), c.want)
		}
	}
}

func TestLeadToRow_TruncatesDescriptionAndCapsSignals(t *testing.T) {
	lead := mustLead(t, "Test GmbH", "Handwerk", leads.Address{})
	lead.Description = strings.Repeat("a", 250)
	lead.Verdict.Signals = []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7"}

	row := leadToRow(*lead, fullColumns)
	idx := func(col string) int {
		for i, c := range fullColumns {
			if c == col {
				return i
			}
		}
		t.Fatalf("column %q not found", col)
		return -1
	}

	desc := row[idx("description")]
	if len(desc) != 200 {
		t.Errorf("description length = %d, want 200", len(desc))
	}

	signals := row[idx("website_signals")]
	if strings.Count(signals, ";")+1 != 5 {
		t.Errorf("signals = %q, want 5 joined entries", signals)
	}
}

func TestFormatOpeningHours_OrdersKnownDaysFirst(t *testing.T) {
	hours := map[string]string{
		"friday": "09:00-18:00",
		"monday": "09:00-18:00",
	}
	got := formatOpeningHours(hours)
	if !strings.HasPrefix(got, "monday: 09:00-18:00; friday: 09:00-18:00") {
		t.Errorf("got %q, want monday before friday", got)
	}
}

func TestFormatOpeningHours_EmptyReturnsEmptyString(t *testing.T) {
	if got := formatOpeningHours(nil); got != "" {
		t.Errorf("got %q, want empty string", got)
	}
}

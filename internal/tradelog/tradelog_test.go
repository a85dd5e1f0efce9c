package tradelog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppendWritesDailyJournal(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADER_LOG_DIR", dir)

	err := Append(Entry{Symbol: "SBIN", Side: "BUY", Qty: 10, Price: 550.5, OrderID: "BRK-1", Strategy: "xover"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	err = Append(Entry{Symbol: "TCS", Side: "SELL", Qty: 5, Price: 3900, OrderID: "BRK-2", Strategy: "mom"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil || len(files) != 1 {
		t.Fatalf("Expected one journal file, got %v (err %v)", files, err)
	}

	b, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 journal lines, got %d", len(lines))
	}

	var e Entry
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatalf("Journal line is not valid JSON: %v", err)
	}
	if e.Symbol != "SBIN" || e.Qty != 10 || e.Time == "" {
		t.Errorf("Unexpected entry: %+v", e)
	}
}

func TestCompressOlderIgnoresZeroRetention(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	if err := CompressOlder(0); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

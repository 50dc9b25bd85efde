package common

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFeedsFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write feeds file: %v", err)
	}
	return path
}

func TestLoadFeedConfig(t *testing.T) {
	path := writeFeedsFile(t, `
feeds:
  - id: "0xef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d"
    symbol: SOL
  - id: "e62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43"
    symbol: BTC
`)

	feeds, err := LoadFeedConfig(path)
	if err != nil {
		t.Fatalf("LoadFeedConfig failed: %v", err)
	}
	if len(feeds) != 2 {
		t.Fatalf("Expected 2 feeds, got %d", len(feeds))
	}
	if feeds[0].Symbol != "SOL" || feeds[1].Symbol != "BTC" {
		t.Errorf("Unexpected symbols: %+v", feeds)
	}
}

func TestLoadFeedConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing id", content: "feeds:\n  - symbol: SOL\n"},
		{name: "missing symbol", content: "feeds:\n  - id: abc\n"},
		{name: "duplicate symbol", content: "feeds:\n  - id: a\n    symbol: SOL\n  - id: b\n    symbol: SOL\n"},
		{name: "not yaml", content: "feeds: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFeedConfig(writeFeedsFile(t, tt.content)); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}

	if _, err := LoadFeedConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

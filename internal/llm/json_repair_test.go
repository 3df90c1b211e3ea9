package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func hasStrategy(stats RepairStats, name string) bool {
	for _, s := range stats.Strategies {
		if s == name {
			return true
		}
	}
	return false
}

func TestRepairJSON_ValidJSON(t *testing.T) {
	validJSON := `{"valid": true, "trigger": "webhook", "suggestions": []}`

	repaired, stats, err := RepairJSON(validJSON)
	if err != nil {
		t.Errorf("Expected no error for valid JSON, got: %v", err)
	}
	if stats.WasRepaired {
		t.Error("Expected WasRepaired to be false for valid JSON")
	}
	if repaired != validJSON {
		t.Error("Expected repaired JSON to be identical to original for valid JSON")
	}
	if stats.OriginalBytes != len(validJSON) || stats.RepairedBytes != len(validJSON) {
		t.Error("Expected byte counts to match original")
	}
}

func TestRepairJSON_TrailingCommas(t *testing.T) {
	malformed := `{"nodes": [{"name": "Webhook", "type": "n8n-nodes-base.webhook",}]}`
	expected := `{"nodes": [{"name": "Webhook", "type": "n8n-nodes-base.webhook"}]}`

	repaired, stats, err := RepairJSON(malformed)
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if !stats.WasRepaired {
		t.Error("Expected WasRepaired to be true")
	}
	if repaired != expected {
		t.Errorf("Expected %s, got %s", expected, repaired)
	}
	if stats.ErrorsFixed != 1 || !hasStrategy(stats, "trailing_commas") {
		t.Errorf("Expected only trailing_commas, got %v", stats.Strategies)
	}
}

func TestRepairJSON_IncompleteObject(t *testing.T) {
	repaired, stats, err := RepairJSON(`{"nodes": [{"name": "Cron", "notes": "runs daily`)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !hasStrategy(stats, "completion") {
		t.Errorf("Expected completion strategy, got %v", stats.Strategies)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		t.Errorf("Repaired JSON should be valid: %v", err)
	}
}

func TestRepairJSON_CommentsKeepURLs(t *testing.T) {
	malformed := "{\n  \"url\": \"https://example.com/hook\", // endpoint\n  /* block */ \"method\": \"POST\"\n}"

	repaired, stats, err := RepairJSON(malformed)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if stats.CommentsLost != 2 {
		t.Errorf("Expected 2 comments removed, got %d", stats.CommentsLost)
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		t.Fatalf("Repaired JSON should be valid: %v", err)
	}
	if out["url"] != "https://example.com/hook" {
		t.Errorf("URL damaged: %q", out["url"])
	}
}

func TestRepairJSON_UnquotedKeysAndSingleQuotes(t *testing.T) {
	repaired, stats, err := RepairJSON(`{valid: true, feedback: 'looks fine'}`)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !hasStrategy(stats, "key_quotes") || !hasStrategy(stats, "single_quotes") {
		t.Errorf("Expected key_quotes and single_quotes, got %v", stats.Strategies)
	}
	var out struct {
		Valid    bool   `json:"valid"`
		Feedback string `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		t.Fatalf("Repaired JSON should be valid: %v", err)
	}
	if !out.Valid || out.Feedback != "looks fine" {
		t.Errorf("Unexpected values %+v", out)
	}
}

func TestRepairJSON_LibraryFallback(t *testing.T) {
	malformed := `{"trigger": "webhook", "notes": "this has "embedded" quotes"}`

	repaired, stats, err := RepairJSON(malformed)
	if err != nil {
		t.Fatalf("Expected successful repair with library fallback, got: %v", err)
	}
	if !stats.WasRepaired {
		t.Error("Expected WasRepaired to be true")
	}
	if !hasStrategy(stats, "jsonrepair_library") {
		t.Errorf("Expected jsonrepair_library strategy, got %v", stats.Strategies)
	}
	if !json.Valid([]byte(repaired)) {
		t.Error("Repaired JSON should be valid")
	}
}

func TestRepairJSON_Performance(t *testing.T) {
	large := `{"nodes": [`
	for i := 0; i < 100; i++ {
		if i > 0 {
			large += ","
		}
		large += fmt.Sprintf(`{"name": "Node %d", "position": [%d, 0]}`, i, i*200)
	}
	large += `]}`

	start := time.Now()
	repaired, _, err := RepairJSON(large)
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if d := time.Since(start); d > 100*time.Millisecond {
		t.Errorf("Repair took too long: %v", d)
	}
	if repaired != large {
		t.Error("Valid JSON should not be modified")
	}
}

func TestRepairJSON_ErrorWrapsMalformed(t *testing.T) {
	_, _, err := RepairJSON(`{"a": }}}]]`)
	if err != nil && !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
}

package llm

import "testing"

func TestParseJSONResponsePlain(t *testing.T) {
	result := ParseJSONResponse(`{"is_opportunity": true, "confidence_score": 0.8}`)
	if result == nil {
		t.Fatal("expected parsed map")
	}
	if !GetBool(result, "is_opportunity", false) {
		t.Error("expected is_opportunity true")
	}
	if GetFloat(result, "confidence_score", 0) != 0.8 {
		t.Error("expected confidence 0.8")
	}
}

func TestParseJSONResponseStripsCodeFences(t *testing.T) {
	text := "```json\n{\"priority\": \"high\"}\n```"
	result := ParseJSONResponse(text)
	if result == nil {
		t.Fatal("expected fenced JSON to parse")
	}
	if GetString(result, "priority", "") != "high" {
		t.Errorf("unexpected priority: %v", result["priority"])
	}
}

func TestParseJSONResponseBareFence(t *testing.T) {
	text := "```\n{\"priority\": \"low\"}\n```"
	if result := ParseJSONResponse(text); result == nil {
		t.Fatal("expected bare-fenced JSON to parse")
	}
}

func TestParseJSONResponseGarbage(t *testing.T) {
	if result := ParseJSONResponse("I cannot answer that."); result != nil {
		t.Errorf("expected nil for non-JSON, got %v", result)
	}
	if result := ParseJSONResponse(""); result != nil {
		t.Errorf("expected nil for empty input, got %v", result)
	}
}

func TestGetHelpers(t *testing.T) {
	m := map[string]any{
		"s":     "text",
		"btrue": "True",
		"n":     1.5,
	}
	if GetString(m, "s", "x") != "text" || GetString(m, "missing", "x") != "x" {
		t.Error("GetString mismatch")
	}
	if !GetBool(m, "btrue", false) {
		t.Error("expected string 'True' to read as true")
	}
	if GetBool(m, "missing", true) != true {
		t.Error("expected fallback bool")
	}
	if GetFloat(m, "n", 0) != 1.5 || GetFloat(m, "missing", 2) != 2 {
		t.Error("GetFloat mismatch")
	}
}

func TestGetFloatTolerantStrings(t *testing.T) {
	m := map[string]any{
		"quoted": "0.85",
		"spaced": " 0.3 ",
		"bogus":  "very confident",
	}
	if GetFloat(m, "quoted", 0) != 0.85 {
		t.Errorf("quoted number = %v, want 0.85", GetFloat(m, "quoted", 0))
	}
	if GetFloat(m, "spaced", 0) != 0.3 {
		t.Errorf("spaced number = %v, want 0.3", GetFloat(m, "spaced", 0))
	}
	if GetFloat(m, "bogus", 0.5) != 0.5 {
		t.Error("non-numeric string must fall back")
	}
}

package llm

import (
	"encoding/json"
	"log"
	"strconv"
	"strings"
)

// ParseJSONResponse parses a JSON object out of a model response. Models
// routinely wrap JSON in markdown code fences; those are stripped before
// parsing. Returns nil when no object can be recovered — callers decide the
// fallback.
func ParseJSONResponse(text string) map[string]any {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		endIdx := len(lines) - 1
		for i := len(lines) - 1; i > 0; i-- {
			if strings.TrimSpace(lines[i]) == "```" {
				endIdx = i
				break
			}
		}
		text = strings.Join(lines[1:endIdx], "\n")
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		log.Printf("Failed to parse model response as JSON: %v", err)
		return nil
	}

	return result
}

// GetString extracts a string field from a parsed response, with fallback.
func GetString(m map[string]any, key, fallback string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// GetBool extracts a boolean field, tolerating "true"/"false" strings.
func GetBool(m map[string]any, key string, fallback bool) bool {
	if v, ok := m[key]; ok {
		switch b := v.(type) {
		case bool:
			return b
		case string:
			if strings.EqualFold(b, "true") {
				return true
			}
			if strings.EqualFold(b, "false") {
				return false
			}
		}
	}
	return fallback
}

// GetFloat extracts a numeric field, tolerating numeric strings.
func GetFloat(m map[string]any, key string, fallback float64) float64 {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f
			}
		}
	}
	return fallback
}

// ABOUTME: Helpers for extracting JSON payloads from model responses that may include prose or fences.
package llm

import (
	"fmt"
	"strings"
)

// extractJSON pulls the first JSON object out of a model response, tolerating
// markdown code fences and surrounding prose.
func extractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in response")
	}
	return trimmed[start : end+1], nil
}

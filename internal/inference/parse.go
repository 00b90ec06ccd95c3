package inference

import (
	"encoding/json"
	"strings"
)

// defaultJSONConfidence stands in when a structured response omits the
// confidence field entirely.
const defaultJSONConfidence = 0.6

type modelResponse struct {
	Code       string   `json:"code"`
	Confidence *float64 `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Warnings   []string `json:"warnings"`
}

// parseResponse reads a raw completion into a translation. Strict JSON is
// preferred; a fenced code block is accepted at reduced confidence; as a
// last resort, code-looking lines are kept at low confidence.
func parseResponse(raw string) Translation {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Translation{}
	}

	if tr, ok := parseJSONResponse(raw); ok {
		return tr
	}
	if code, ok := extractFencedBlock(raw); ok {
		return Translation{
			Code:       code,
			Confidence: fencedConfidence,
			Reasoning:  "extracted a fenced code block from a non-JSON response",
			Warnings:   []string{"response was not structured JSON; verify the extracted code manually"},
		}
	}
	if code := extractCodeLines(raw); code != "" {
		return Translation{
			Code:       code,
			Confidence: heuristicConfidence,
			Reasoning:  "kept code-looking lines from an unstructured response",
			Warnings:   []string{"response had no recognizable structure; verify the extracted code manually"},
		}
	}
	return Translation{}
}

func parseJSONResponse(raw string) (Translation, bool) {
	candidate := raw
	if fenced, ok := extractFencedBlock(raw); ok && strings.HasPrefix(strings.TrimSpace(fenced), "{") {
		candidate = fenced
	}

	var resp modelResponse
	if err := json.Unmarshal([]byte(candidate), &resp); err != nil {
		return Translation{}, false
	}
	if strings.TrimSpace(resp.Code) == "" {
		return Translation{}, false
	}

	confidence := defaultJSONConfidence
	if resp.Confidence != nil {
		confidence = *resp.Confidence
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return Translation{
		Code:       resp.Code,
		Confidence: confidence,
		Reasoning:  resp.Reasoning,
		Warnings:   resp.Warnings,
	}, true
}

// extractFencedBlock returns the contents of the first ``` fence, skipping
// any language tag on the opening line.
func extractFencedBlock(raw string) (string, bool) {
	start := strings.Index(raw, "```")
	if start < 0 {
		return "", false
	}
	rest := raw[start+3:]

	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		return "", false
	}

	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	block := strings.TrimSpace(rest[:end])
	if block == "" {
		return "", false
	}
	return block, true
}

// extractCodeLines keeps lines that look like JavaScript and drops prose.
func extractCodeLines(raw string) string {
	var kept []string
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if looksLikeCode(trimmed) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func looksLikeCode(line string) bool {
	markers := []string{
		"function ", "const ", "let ", "var ", "import ", "export ",
		"=>", "};", "});",
	}
	for _, m := range markers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return strings.HasSuffix(line, ";") || strings.HasSuffix(line, "{") || line == "}"
}

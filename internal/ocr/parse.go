package ocr

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseFragmentsJSON parses the JSON fragment list returned by a vision model
func parseFragmentsJSON(text string) ([]TextFragment, error) {
	// Remove markdown code blocks if present
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON array boundaries - look for first [ and last ]
	startIdx := strings.Index(text, "[")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	endIdx := strings.LastIndex(text, "]")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON array in response")
	}

	// Extract just the JSON part
	text = text[startIdx : endIdx+1]

	var raw []TextFragment
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	// Models occasionally emit empty spans or inverted boxes; normalize them
	// so callers always see usable fragments
	fragments := make([]TextFragment, 0, len(raw))
	for _, f := range raw {
		f.Text = strings.TrimSpace(f.Text)
		if f.Text == "" {
			continue
		}
		if f.Box.Bottom < f.Box.Top {
			f.Box.Top, f.Box.Bottom = f.Box.Bottom, f.Box.Top
		}
		if f.Box.Right < f.Box.Left {
			f.Box.Left, f.Box.Right = f.Box.Right, f.Box.Left
		}
		fragments = append(fragments, f)
	}

	return fragments, nil
}

package trader

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Intent is the JSON trading instruction the model is asked to produce.
type Intent struct {
	Operation     string  `json:"operation"`
	Symbol        string  `json:"symbol"`
	TargetPortion float64 `json:"target_portion_of_balance"`
	Reason        string  `json:"reason"`
}

// ParseIntent extracts an Intent from raw model output. Models occasionally
// wrap the JSON in markdown code fences despite instructions, so those are
// stripped before decoding. Operation and symbol are normalized to lower and
// upper case respectively.
func ParseIntent(text string) (*Intent, error) {
	text = stripFences(strings.TrimSpace(text))

	var intent Intent
	if err := json.Unmarshal([]byte(text), &intent); err != nil {
		return nil, fmt.Errorf("parse intent %q: %w", truncate(text, 120), err)
	}

	intent.Operation = strings.ToLower(strings.TrimSpace(intent.Operation))
	intent.Symbol = strings.ToUpper(strings.TrimSpace(intent.Symbol))
	return &intent, nil
}

// Validate checks the intent against the supported symbol set and the portion
// cap. A hold intent needs no symbol or portion.
func (i *Intent) Validate(supported map[string]string, maxPortion float64) error {
	switch i.Operation {
	case "hold":
		return nil
	case "buy", "sell":
	default:
		return fmt.Errorf("invalid operation %q", i.Operation)
	}

	if _, ok := supported[i.Symbol]; !ok {
		return fmt.Errorf("unsupported symbol %q", i.Symbol)
	}
	if i.TargetPortion <= 0 || i.TargetPortion > maxPortion {
		return fmt.Errorf("target portion %.4f outside (0, %.2f]", i.TargetPortion, maxPortion)
	}
	return nil
}

func stripFences(text string) string {
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
		return strings.TrimSpace(text)
	}
	if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
		return strings.TrimSpace(text)
	}
	return text
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

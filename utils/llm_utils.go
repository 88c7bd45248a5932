package utils

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"medpipe_backend/models"
)

const NotProvided = "Not provided"

// KeySpec describes one fixed key of a structured model answer.
type KeySpec struct {
	Name string
	List bool
}

// ParseStructuredOutput pulls the first JSON object out of a model answer
// and makes sure every key in keys is present.
func ParseStructuredOutput(raw string, keys []KeySpec) (map[string]any, error) {
	block, ok := ExtractJSONBlock(raw)
	if !ok {
		return nil, fmt.Errorf("no json object in answer: %w", models.ErrMalformedOutput)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(block), &out); err != nil {
		return nil, fmt.Errorf("decode answer: %v: %w", err, models.ErrMalformedOutput)
	}
	FillMissingKeys(out, keys)
	return out, nil
}

// ExtractJSONBlock strips ```json fences and returns the first balanced {...} block.
func ExtractJSONBlock(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func FillMissingKeys(out map[string]any, keys []KeySpec) {
	for _, k := range keys {
		v, ok := out[k.Name]
		if k.List {
			switch t := v.(type) {
			case []any:
				if len(t) > 0 {
					continue
				}
			case string:
				if strings.TrimSpace(t) != "" {
					out[k.Name] = []any{t}
					continue
				}
			}
			out[k.Name] = []any{NotProvided}
			continue
		}
		if !ok || v == nil {
			out[k.Name] = NotProvided
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			out[k.Name] = NotProvided
		}
	}
}

// RenderPrompt replaces {name} placeholders with vars[name].
func RenderPrompt(template string, vars map[string]string) string {
	if len(vars) == 0 {
		return template
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// EstimateTokens approximates the token count as one token per four characters.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

func MaskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:4] + "****" + apiKey[len(apiKey)-4:]
}

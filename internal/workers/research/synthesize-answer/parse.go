// internal/workers/research/synthesize-answer/parse.go
package synthesizeanswer

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"research-workers/internal/models"
)

var (
	ErrNoJSONBlock     = errors.New("NO_JSON_BLOCK")
	ErrUnparseableJSON = errors.New("UNPARSEABLE_JSON")
)

var jsonFence = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// ExtractJSONBlock returns the first ```json fenced object in text.
func ExtractJSONBlock(text string) (string, error) {
	m := jsonFence.FindStringSubmatch(text)
	if m == nil {
		return "", ErrNoJSONBlock
	}
	return m[1], nil
}

// ParseModelJSON extracts the fenced object from a model completion and
// normalizes it into a SynthesizedAnswer. Strict JSON is tried first; when
// that fails the block is read as a Python-style literal (single or triple
// quotes, True/False/None, tuples, trailing commas).
func ParseModelJSON(text string) (*models.SynthesizedAnswer, error) {
	block, err := ExtractJSONBlock(text)
	if err != nil {
		return nil, err
	}

	var raw interface{}
	if jsonErr := json.Unmarshal([]byte(block), &raw); jsonErr != nil {
		raw, err = parseLiteral(block)
		if err != nil {
			return nil, fmt.Errorf("%w: json: %v; literal: %v", ErrUnparseableJSON, jsonErr, err)
		}
	}

	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: top-level value is %T, not an object", ErrUnparseableJSON, raw)
	}
	return normalize(obj), nil
}

func normalize(obj map[string]interface{}) *models.SynthesizedAnswer {
	answer := &models.SynthesizedAnswer{}

	if s, ok := obj["detailed_analysis"].(string); ok {
		answer.DetailedAnalysis = strings.TrimSpace(s)
	}

	if list, ok := obj["websites"].([]interface{}); ok {
		for _, item := range list {
			site, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			answer.Websites = append(answer.Websites, models.Website{
				FaviconURL: stringify(site["favicon_url"]),
				Link:       stringify(site["link"]),
				Snippet:    stringify(site["snippet"]),
			})
		}
	}

	if list, ok := obj["videos"].([]interface{}); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				answer.Videos = append(answer.Videos, s)
			}
		}
	}

	return answer.Normalize()
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

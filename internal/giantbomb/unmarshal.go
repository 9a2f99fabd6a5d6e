package giantbomb

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Giant Bomb answers 200 even for failed calls, the status code lives in the body
const statusOK = 1

type searchResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
	Results    []Game `json:"results"`
}

func UnmarshalSearch(data []byte) ([]Game, error) {

	var response searchResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("search response is not correctly formatted: %w", err)
	}

	if response.StatusCode != statusOK {
		return nil, fmt.Errorf("giant bomb returned status %d: %s", response.StatusCode, response.Error)
	}

	if response.Results == nil {
		return []Game{}, nil
	}
	return response.Results, nil
}

var (
	parenthesised = regexp.MustCompile(`\s*\(.*?\)\s*`)
	subtitle      = regexp.MustCompile(`\s*:\s*.*$`)
)

// CleanName drops bracketed qualifiers and subtitles: "Hades: Battle Out of Hell (2020)" becomes "Hades"
func CleanName(name string) string {
	name = parenthesised.ReplaceAllString(name, "")
	name = subtitle.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

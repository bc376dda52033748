package tabular

import (
	"encoding/json"
	"strings"

	"github.com/spacesedan/reviewflow/internal/models"
)

// DecodeList parses a list cell. The only accepted encoding is a JSON array of
// strings; an empty cell is an empty list.
func DecodeList(cell string) ([]string, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return []string{}, nil
	}
	if !strings.HasPrefix(cell, "[") {
		return nil, &models.InputError{Reason: "list cell is not a JSON array"}
	}

	var items []string
	if err := json.Unmarshal([]byte(cell), &items); err != nil {
		return nil, &models.InputError{Reason: "list cell must be a JSON array of strings: " + err.Error()}
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}

func EncodeList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		// a []string always marshals
		panic(err)
	}
	return string(b)
}

package model

import (
	"encoding"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// parseStatus accepts a state name, case-insensitively, or its integer code
func parseStatus[S ~int8](text string, names map[S]string, kind string) (S, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	for status, n := range names {
		if n == text {
			return status, nil
		}
	}
	if code, err := strconv.ParseInt(text, 10, 8); err == nil {
		if _, ok := names[S(code)]; ok {
			return S(code), nil
		}
	}
	return 0, fmt.Errorf("unknown %s status %q", kind, text)
}

// unmarshalStatusJSON decodes either a JSON string or a bare integer code
func unmarshalStatusJSON(data []byte, dst encoding.TextUnmarshaler) error {
	if string(data) == "null" {
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		text = string(data)
	}
	return dst.UnmarshalText([]byte(text))
}

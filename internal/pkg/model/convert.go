package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidValue = errors.New("model: invalid state value")

// ParseValue converts a raw transport payload into the value reported for kind.
func ParseValue(kind ValueKind, raw string) (any, error) {
	v := strings.TrimSpace(raw)
	switch kind {
	case KindBool:
		switch strings.ToLower(v) {
		case "true", "on", "1", "yes":
			return true, nil
		case "false", "off", "0", "no":
			return false, nil
		}
		return nil, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, raw)
	case KindFloat:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return f, nil
	case KindInt:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(v, 64)
			if ferr != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
			}
			i = int64(f)
		}
		return i, nil
	case KindObject:
		var obj map[string]any
		if err := json.Unmarshal([]byte(v), &obj); err != nil {
			// scene names and the like arrive as plain strings.
			return raw, nil
		}
		return obj, nil
	default:
		return raw, nil
	}
}

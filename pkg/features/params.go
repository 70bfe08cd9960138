package features

import (
	"fmt"

	apperrors "github.com/cuevascarlos/KernelMethods-DataChallenge/pkg/errors"
)

func paramError(key string, val interface{}, want string) error {
	return apperrors.NewValidationError(fmt.Sprintf("parameter %s: %v (%T) is not %s", key, val, val, want), nil)
}

func toInt(val interface{}) (int, bool) {
	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

func intParam(params map[string]interface{}, key string, def int) (int, error) {
	val, ok := params[key]
	if !ok {
		return def, nil
	}
	if v, ok := toInt(val); ok {
		return v, nil
	}
	return 0, paramError(key, val, "an integer")
}

func int64Param(params map[string]interface{}, key string, def int64) (int64, error) {
	v, err := intParam(params, key, int(def))
	return int64(v), err
}

func floatParam(params map[string]interface{}, key string, def float64) (float64, error) {
	val, ok := params[key]
	if !ok {
		return def, nil
	}
	switch v := val.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	}
	return 0, paramError(key, val, "a number")
}

func boolParam(params map[string]interface{}, key string, def bool) (bool, error) {
	val, ok := params[key]
	if !ok {
		return def, nil
	}
	if v, ok := val.(bool); ok {
		return v, nil
	}
	return false, paramError(key, val, "a boolean")
}

func stringParam(params map[string]interface{}, key string, def string) (string, error) {
	val, ok := params[key]
	if !ok {
		return def, nil
	}
	if v, ok := val.(string); ok {
		return v, nil
	}
	return "", paramError(key, val, "a string")
}

// pairParam accepts [2]int, []int or []interface{} of two integers.
func pairParam(params map[string]interface{}, key string, def [2]int) ([2]int, error) {
	val, ok := params[key]
	if !ok {
		return def, nil
	}
	switch v := val.(type) {
	case [2]int:
		return v, nil
	case []int:
		if len(v) == 2 {
			return [2]int{v[0], v[1]}, nil
		}
	case []interface{}:
		if len(v) == 2 {
			a, okA := toInt(v[0])
			b, okB := toInt(v[1])
			if okA && okB {
				return [2]int{a, b}, nil
			}
		}
	}
	return def, paramError(key, val, "a pair of integers")
}

package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Expressions are pipelines of named operators separated by '|', each with
// optional parenthesized arguments, e.g. "trim|upper" or
// "multiply(100)|round". They replace the stringified code the legacy
// system evaluated at runtime.

type step struct {
	op   string
	args []string
}

func parsePipeline(expr string) ([]step, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	parts := strings.Split(expr, "|")
	steps := make([]step, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty step in expression %q", expr)
		}

		name := part
		var args []string
		if open := strings.Index(part, "("); open >= 0 {
			if !strings.HasSuffix(part, ")") {
				return nil, fmt.Errorf("unterminated arguments in %q", part)
			}
			name = strings.TrimSpace(part[:open])
			rawArgs := part[open+1 : len(part)-1]
			if rawArgs != "" {
				for _, a := range strings.Split(rawArgs, ",") {
					args = append(args, strings.TrimSpace(a))
				}
			}
		}
		steps = append(steps, step{op: strings.ToLower(name), args: args})
	}
	return steps, nil
}

// applyFieldExpr evaluates a field-level pipeline against a single value.
func applyFieldExpr(expr string, value any) (any, error) {
	steps, err := parsePipeline(expr)
	if err != nil {
		return nil, err
	}
	for _, s := range steps {
		value, err = applyFieldStep(s, value)
		if err != nil {
			return nil, err
		}
	}
	return value, nil
}

func applyFieldStep(s step, value any) (any, error) {
	switch s.op {
	case "trim":
		return strings.TrimSpace(toString(value)), nil
	case "upper":
		return strings.ToUpper(toString(value)), nil
	case "lower":
		return strings.ToLower(toString(value)), nil
	case "title":
		return strings.Title(strings.ToLower(toString(value))), nil //nolint:staticcheck
	case "string":
		return toString(value), nil
	case "number":
		return toNumber(value)
	case "int":
		n, err := toNumber(value)
		if err != nil {
			return nil, err
		}
		return int64(n), nil
	case "bool":
		return toBool(value), nil
	case "round":
		n, err := toNumber(value)
		if err != nil {
			return nil, err
		}
		return math.Round(n), nil
	case "add", "multiply", "divide":
		if len(s.args) != 1 {
			return nil, fmt.Errorf("%s expects one argument", s.op)
		}
		operand, err := strconv.ParseFloat(s.args[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.op, err)
		}
		n, err := toNumber(value)
		if err != nil {
			return nil, err
		}
		switch s.op {
		case "add":
			return n + operand, nil
		case "multiply":
			return n * operand, nil
		default:
			if operand == 0 {
				return nil, fmt.Errorf("divide by zero")
			}
			return n / operand, nil
		}
	case "prefix":
		if len(s.args) != 1 {
			return nil, fmt.Errorf("prefix expects one argument")
		}
		return s.args[0] + toString(value), nil
	case "suffix":
		if len(s.args) != 1 {
			return nil, fmt.Errorf("suffix expects one argument")
		}
		return toString(value) + s.args[0], nil
	case "replace":
		if len(s.args) != 2 {
			return nil, fmt.Errorf("replace expects two arguments")
		}
		return strings.ReplaceAll(toString(value), s.args[0], s.args[1]), nil
	case "default":
		if len(s.args) != 1 {
			return nil, fmt.Errorf("default expects one argument")
		}
		if value == nil || toString(value) == "" {
			return s.args[0], nil
		}
		return value, nil
	default:
		return nil, fmt.Errorf("unknown operator %q", s.op)
	}
}

// applyPayloadExpr evaluates a whole-payload pipeline.
func applyPayloadExpr(expr string, payload map[string]any) (map[string]any, error) {
	steps, err := parsePipeline(expr)
	if err != nil {
		return nil, err
	}
	out := shallowCopy(payload)
	for _, s := range steps {
		out, err = applyPayloadStep(s, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func applyPayloadStep(s step, payload map[string]any) (map[string]any, error) {
	switch s.op {
	case "pick":
		out := make(map[string]any, len(s.args))
		for _, key := range s.args {
			if v, ok := payload[key]; ok {
				out[key] = v
			}
		}
		return out, nil
	case "omit":
		out := shallowCopy(payload)
		for _, key := range s.args {
			delete(out, key)
		}
		return out, nil
	case "rename":
		out := shallowCopy(payload)
		for _, arg := range s.args {
			from, to, ok := strings.Cut(arg, "=")
			if !ok {
				return nil, fmt.Errorf("rename expects from=to, got %q", arg)
			}
			if v, exists := out[from]; exists {
				delete(out, from)
				out[to] = v
			}
		}
		return out, nil
	case "set":
		out := shallowCopy(payload)
		for _, arg := range s.args {
			key, value, ok := strings.Cut(arg, "=")
			if !ok {
				return nil, fmt.Errorf("set expects key=value, got %q", arg)
			}
			out[key] = value
		}
		return out, nil
	case "wrap":
		if len(s.args) != 1 {
			return nil, fmt.Errorf("wrap expects one argument")
		}
		return map[string]any{s.args[0]: payload}, nil
	case "unwrap":
		if len(s.args) != 1 {
			return nil, fmt.Errorf("unwrap expects one argument")
		}
		inner, ok := payload[s.args[0]].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unwrap: %q is not an object", s.args[0])
		}
		return inner, nil
	default:
		return nil, fmt.Errorf("unknown payload operator %q", s.op)
	}
}

func shallowCopy(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}

func toString(v any) string {
	switch cast := v.(type) {
	case nil:
		return ""
	case string:
		return cast
	case float64:
		return strconv.FormatFloat(cast, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(cast, 10)
	case int:
		return strconv.Itoa(cast)
	case bool:
		return strconv.FormatBool(cast)
	default:
		return fmt.Sprintf("%v", cast)
	}
}

func toNumber(v any) (float64, error) {
	switch cast := v.(type) {
	case float64:
		return cast, nil
	case int64:
		return float64(cast), nil
	case int:
		return float64(cast), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(cast), 64)
	case bool:
		if cast {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to number", v)
	}
}

func toBool(v any) bool {
	switch cast := v.(type) {
	case bool:
		return cast
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(cast))
		return err == nil && parsed
	case float64:
		return cast != 0
	case int64:
		return cast != 0
	case int:
		return cast != 0
	default:
		return false
	}
}

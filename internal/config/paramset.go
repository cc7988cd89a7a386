package config

import "fmt"

// ParamKind constrains a parameter's accepted Go type.
type ParamKind string

const (
	KindInt   ParamKind = "int"
	KindFloat ParamKind = "float"
	KindBool  ParamKind = "bool"
	KindEnum  ParamKind = "enum"
)

// ParamSpec describes one key in a strategy's fixed parameter key space.
type ParamSpec struct {
	Name    string
	Kind    ParamKind
	Default any
	Enum    []string // only used when Kind == KindEnum
}

// Schema is the fixed, enumerated key space for one strategy's parameter
// set. Loading a ParameterSet against a Schema rejects unknown keys and
// fills in documented defaults for missing ones.
type Schema struct {
	StrategyID string
	Params     []ParamSpec
}

// Validate checks raw against the schema: every key in raw must be declared,
// every declared key's value (or default) must match its kind, and the
// returned map always contains every declared key.
func (s Schema) Validate(raw map[string]any) (map[string]any, error) {
	declared := make(map[string]ParamSpec, len(s.Params))
	for _, p := range s.Params {
		declared[p.Name] = p
	}

	for key := range raw {
		if _, ok := declared[key]; !ok {
			return nil, fmt.Errorf("%w: strategy %s does not declare parameter %q", ErrUnknownParam, s.StrategyID, key)
		}
	}

	out := make(map[string]any, len(s.Params))
	for _, p := range s.Params {
		v, ok := raw[p.Name]
		if !ok {
			v = p.Default
		}
		if err := checkKind(p, v); err != nil {
			return nil, fmt.Errorf("strategy %s parameter %q: %w", s.StrategyID, p.Name, err)
		}
		out[p.Name] = v
	}
	return out, nil
}

func checkKind(p ParamSpec, v any) error {
	switch p.Kind {
	case KindInt:
		switch v.(type) {
		case int, int64:
		default:
			return fmt.Errorf("expected int, got %T", v)
		}
	case KindFloat:
		switch v.(type) {
		case float64, float32, int, int64:
		default:
			return fmt.Errorf("expected float, got %T", v)
		}
	case KindBool:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
	case KindEnum:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected enum string, got %T", v)
		}
		for _, allowed := range p.Enum {
			if s == allowed {
				return nil
			}
		}
		return fmt.Errorf("value %q not in enum %v", s, p.Enum)
	}
	return nil
}

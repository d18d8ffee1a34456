package verify

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

var ErrInvalidPolicy = errors.New("invalid policy document")

// Normalize rewrites a policy document into a canonical JSON form so two
// documents granting the same thing compare equal. Scalars and
// single-element lists are the same, set order is ignored, Bool condition
// values may be booleans or strings, statement order is ignored, and a
// bare "*" principal is {"AWS": "*"}. Policies returned URL-encoded by IAM
// are decoded first.
func Normalize(doc string) (string, error) {
	if strings.HasPrefix(doc, "%7B") {
		decoded, err := url.QueryUnescape(doc)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
		}
		doc = decoded
	}

	var raw struct {
		Version   string          `json:"Version"`
		Statement json.RawMessage `json:"Statement"`
	}
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}

	var stmts []map[string]interface{}
	if err := json.Unmarshal(raw.Statement, &stmts); err != nil {
		var single map[string]interface{}
		if err := json.Unmarshal(raw.Statement, &single); err != nil {
			return "", fmt.Errorf("%w: Statement: %v", ErrInvalidPolicy, err)
		}
		stmts = []map[string]interface{}{single}
	}

	canonical := make([]string, 0, len(stmts))
	for i, s := range stmts {
		c, err := normalizeStatement(s)
		if err != nil {
			return "", fmt.Errorf("%w: statement %d: %v", ErrInvalidPolicy, i, err)
		}
		b, err := json.Marshal(c)
		if err != nil {
			return "", err
		}
		canonical = append(canonical, string(b))
	}
	sort.Strings(canonical)

	return fmt.Sprintf(`{"Version":%q,"Statement":[%s]}`, raw.Version, strings.Join(canonical, ",")), nil
}

// Equivalent reports whether two policy documents normalize to the same form.
func Equivalent(a, b string) (bool, error) {
	na, err := Normalize(a)
	if err != nil {
		return false, err
	}
	nb, err := Normalize(b)
	if err != nil {
		return false, err
	}
	return na == nb, nil
}

func normalizeStatement(s map[string]interface{}) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	for k, v := range s {
		switch k {
		case "Sid", "Effect":
			out[k] = v
		case "Action", "NotAction", "Resource", "NotResource":
			set, err := stringSet(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = set
		case "Principal", "NotPrincipal":
			p, err := normalizePrincipal(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = p
		case "Condition":
			c, err := normalizeCondition(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = c
		default:
			return nil, fmt.Errorf("unexpected field %q", k)
		}
	}
	// An empty Sid is the same as none.
	if sid, ok := out["Sid"].(string); ok && sid == "" {
		delete(out, "Sid")
	}
	return out, nil
}

func normalizePrincipal(v interface{}) (map[string][]string, error) {
	if s, ok := v.(string); ok {
		if s != "*" {
			return nil, fmt.Errorf("unexpected principal %q", s)
		}
		return map[string][]string{"AWS": {"*"}}, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected principal %T", v)
	}
	out := make(map[string][]string, len(m))
	for kind, values := range m {
		set, err := stringSet(values)
		if err != nil {
			return nil, err
		}
		out[kind] = set
	}
	return out, nil
}

func normalizeCondition(v interface{}) (map[string]map[string][]string, error) {
	ops, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected condition %T", v)
	}
	out := make(map[string]map[string][]string, len(ops))
	for op, keys := range ops {
		km, ok := keys.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("operator %s: unexpected %T", op, keys)
		}
		out[op] = make(map[string][]string, len(km))
		for key, values := range km {
			set, err := stringSet(values)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", op, key, err)
			}
			out[op][key] = set
		}
	}
	return out, nil
}

// stringSet accepts a string, a boolean, or a list of either, and returns
// the sorted distinct values as strings.
func stringSet(v interface{}) ([]string, error) {
	var values []string
	switch x := v.(type) {
	case string:
		values = []string{x}
	case bool:
		values = []string{fmt.Sprint(x)}
	case []interface{}:
		for _, e := range x {
			switch y := e.(type) {
			case string:
				values = append(values, y)
			case bool:
				values = append(values, fmt.Sprint(y))
			default:
				return nil, fmt.Errorf("unexpected value %T", e)
			}
		}
	default:
		return nil, fmt.Errorf("unexpected value %T", v)
	}

	sort.Strings(values)
	out := make([]string, 0, len(values))
	for _, s := range values {
		if len(out) == 0 || out[len(out)-1] != s {
			out = append(out, s)
		}
	}
	return out, nil
}

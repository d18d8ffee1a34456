package policy

// Statement is one entry of a policy document. Principals is empty for
// identity-based policies attached to a role.
type Statement struct {
	Sid        string
	Effect     Effect
	Principals []Principal
	Actions    []Action
	Resources  []string
	Conditions []Condition
}

// HasAction reports whether the statement lists a.
func (s Statement) HasAction(a Action) bool {
	for _, x := range s.Actions {
		if x == a {
			return true
		}
	}
	return false
}

// HasCondition reports whether the statement carries c.
func (s Statement) HasCondition(c Condition) bool {
	for _, x := range s.Conditions {
		if x == c {
			return true
		}
	}
	return false
}

// PrincipalSet returns the principal strings in construction order.
func (s Statement) PrincipalSet() []string {
	out := make([]string, 0, len(s.Principals))
	for _, p := range s.Principals {
		out = append(out, p.String())
	}
	return dedupe(out)
}

func (s Statement) clone() Statement {
	c := s
	c.Principals = append([]Principal(nil), s.Principals...)
	c.Actions = append([]Action(nil), s.Actions...)
	c.Resources = append([]string(nil), s.Resources...)
	c.Conditions = append([]Condition(nil), s.Conditions...)
	return c
}

func (s Statement) render() map[string]interface{} {
	out := map[string]interface{}{
		"Effect": string(s.Effect),
	}
	if s.Sid != "" {
		out["Sid"] = s.Sid
	}

	if len(s.Principals) > 0 {
		byKind := map[string][]string{}
		for _, p := range s.Principals {
			f := p.kind.field()
			byKind[f] = append(byKind[f], p.value)
		}
		principal := map[string]interface{}{}
		for f, values := range byKind {
			principal[f] = scalarOrList(dedupe(values))
		}
		out["Principal"] = principal
	}

	actions := make([]string, 0, len(s.Actions))
	for _, a := range s.Actions {
		actions = append(actions, string(a))
	}
	out["Action"] = scalarOrList(dedupe(actions))

	if len(s.Resources) > 0 {
		out["Resource"] = scalarOrList(dedupe(s.Resources))
	}

	if len(s.Conditions) > 0 {
		cond := map[string]interface{}{}
		for _, c := range s.Conditions {
			op, ok := cond[string(c.Operator)].(map[string]interface{})
			if !ok {
				op = map[string]interface{}{}
				cond[string(c.Operator)] = op
			}
			op[string(c.Key)] = c.rendered()
		}
		out["Condition"] = cond
	}
	return out
}

func scalarOrList(values []string) interface{} {
	if len(values) == 1 {
		return values[0]
	}
	return values
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

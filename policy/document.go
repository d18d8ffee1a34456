package policy

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the policy language version every document declares.
const Version = "2012-10-17"

var (
	ErrUnknownAction    = errors.New("unknown action")
	ErrInvalidCondition = errors.New("invalid condition")
	ErrEmptyStatement   = errors.New("statement has no actions")
	ErrInvalidEffect    = errors.New("invalid effect")
)

// Document is an ordered list of statements. Evaluation is order
// independent (an explicit Deny always wins) but rendering keeps the
// construction order so output is reproducible.
type Document struct {
	statements []Statement
}

// NewDocument copies stmts into a new document.
func NewDocument(stmts ...Statement) Document {
	d := Document{statements: make([]Statement, 0, len(stmts))}
	for _, s := range stmts {
		d.statements = append(d.statements, s.clone())
	}
	return d
}

// Statements returns a copy of the statements.
func (d Document) Statements() []Statement {
	out := make([]Statement, 0, len(d.statements))
	for _, s := range d.statements {
		out = append(out, s.clone())
	}
	return out
}

// Len is the number of statements.
func (d Document) Len() int { return len(d.statements) }

// With returns a new document with stmts appended.
func (d Document) With(stmts ...Statement) Document {
	return NewDocument(append(d.Statements(), stmts...)...)
}

// Granting returns the statements with effect and action a.
func (d Document) Granting(effect Effect, a Action) []Statement {
	var out []Statement
	for _, s := range d.statements {
		if s.Effect == effect && s.HasAction(a) {
			out = append(out, s.clone())
		}
	}
	return out
}

// Validate rejects undeclared actions and malformed conditions.
func (d Document) Validate() error {
	for i, s := range d.statements {
		if s.Effect != Allow && s.Effect != Deny {
			return fmt.Errorf("statement %d: %w: %q", i, ErrInvalidEffect, s.Effect)
		}
		if len(s.Actions) == 0 {
			return fmt.Errorf("statement %d: %w", i, ErrEmptyStatement)
		}
		for _, a := range s.Actions {
			if !a.Valid() {
				return fmt.Errorf("statement %d: %w: %q", i, ErrUnknownAction, a)
			}
		}
		for _, c := range s.Conditions {
			if !c.Valid() {
				return fmt.Errorf("statement %d: %w: %s %s=%q", i, ErrInvalidCondition, c.Operator, c.Key, c.Value)
			}
		}
	}
	return nil
}

// Map returns the generic form accepted by CloudFormation properties.
func (d Document) Map() map[string]interface{} {
	stmts := make([]interface{}, 0, len(d.statements))
	for _, s := range d.statements {
		stmts = append(stmts, s.render())
	}
	return map[string]interface{}{
		"Version":   Version,
		"Statement": stmts,
	}
}

// JSON renders the document. Object keys are sorted by encoding/json, so
// equal documents always produce equal bytes.
func (d Document) JSON() ([]byte, error) {
	return json.Marshal(d.Map())
}

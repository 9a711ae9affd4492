package pagination

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ConditionKind selects the variant held by a Condition.
type ConditionKind string

// Condition variants.
const (
	ConditionEqual ConditionKind = "eq"
	ConditionRange ConditionKind = "range"
	ConditionIn    ConditionKind = "in"
)

// Bound is one end of a range condition.
type Bound struct {
	Value     Value `json:"v"`
	Inclusive bool  `json:"inc,omitempty"`
}

// Condition restricts a single field. Exactly one variant is populated,
// selected by Kind: Value for equality, Lower/Upper for ranges, Values for
// set membership.
type Condition struct {
	Kind   ConditionKind `json:"op"`
	Value  Value         `json:"v,omitzero"`
	Lower  *Bound        `json:"lo,omitempty"`
	Upper  *Bound        `json:"hi,omitempty"`
	Values []Value       `json:"vs,omitempty"`
}

// Eq matches values equal to v.
func Eq(v Value) Condition { return Condition{Kind: ConditionEqual, Value: v} }

// In matches any of vs.
func In(vs ...Value) Condition {
	if len(vs) == 0 {
		vs = nil
	}
	return Condition{Kind: ConditionIn, Values: vs}
}

// Range matches values between lower and upper. A nil bound is open.
func Range(lower, upper *Bound) Condition {
	return Condition{Kind: ConditionRange, Lower: lower, Upper: upper}
}

// Gt matches values strictly greater than v.
func Gt(v Value) Condition { return Range(&Bound{Value: v}, nil) }

// Gte matches values greater than or equal to v.
func Gte(v Value) Condition { return Range(&Bound{Value: v, Inclusive: true}, nil) }

// Lt matches values strictly less than v.
func Lt(v Value) Condition { return Range(nil, &Bound{Value: v}) }

// Lte matches values less than or equal to v.
func Lte(v Value) Condition { return Range(nil, &Bound{Value: v, Inclusive: true}) }

// Between matches values in the closed interval [lo, hi].
func Between(lo, hi Value) Condition {
	return Range(&Bound{Value: lo, Inclusive: true}, &Bound{Value: hi, Inclusive: true})
}

// Validate checks that the populated variant matches Kind.
func (c Condition) Validate() error {
	switch c.Kind {
	case ConditionEqual:
		if !c.Value.IsValid() {
			return errors.New("equality condition requires a value")
		}
	case ConditionRange:
		if c.Lower == nil && c.Upper == nil {
			return errors.New("range condition requires at least one bound")
		}
		if c.Lower != nil && !c.Lower.Value.IsValid() {
			return errors.New("range lower bound has no value")
		}
		if c.Upper != nil && !c.Upper.Value.IsValid() {
			return errors.New("range upper bound has no value")
		}
	case ConditionIn:
		for _, v := range c.Values {
			if !v.IsValid() {
				return errors.New("set condition contains an invalid value")
			}
		}
	default:
		return fmt.Errorf("unknown condition kind %q", c.Kind)
	}
	return nil
}

// Match reports whether v satisfies the condition.
func (c Condition) Match(v Value) bool {
	switch c.Kind {
	case ConditionEqual:
		return v.Compare(c.Value) == 0
	case ConditionIn:
		for _, candidate := range c.Values {
			if v.Compare(candidate) == 0 {
				return true
			}
		}
		return false
	case ConditionRange:
		if c.Lower != nil {
			cmp := v.Compare(c.Lower.Value)
			if cmp < 0 || (cmp == 0 && !c.Lower.Inclusive) {
				return false
			}
		}
		if c.Upper != nil {
			cmp := v.Compare(c.Upper.Value)
			if cmp > 0 || (cmp == 0 && !c.Upper.Inclusive) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// UnmarshalJSON decodes a condition and rejects unknown variants.
func (c *Condition) UnmarshalJSON(data []byte) error {
	type plain Condition
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	decoded := Condition(p)
	if err := decoded.Validate(); err != nil {
		return err
	}
	*c = decoded
	return nil
}

// Filters maps a field name to the condition applied to it.
type Filters map[string]Condition

// Validate checks every condition.
func (f Filters) Validate() error {
	for field, cond := range f {
		if field == "" {
			return errors.New("filter field name is empty")
		}
		if err := cond.Validate(); err != nil {
			return fmt.Errorf("filter %q: %w", field, err)
		}
	}
	return nil
}

// Clauses flattens the filters into a list ordered by field name.
func (f Filters) Clauses() []Clause {
	clauses := make([]Clause, 0, len(f))
	for field, cond := range f {
		clauses = append(clauses, Clause{Field: field, Condition: cond})
	}
	sort.Slice(clauses, func(i, j int) bool { return clauses[i].Field < clauses[j].Field })
	return clauses
}

// Clause is a single field condition. A query may hold several clauses on
// the same field; all of them must match.
type Clause struct {
	Field     string
	Condition Condition
}

// MultiValued is implemented by records with array fields. A clause on such
// a field matches when any element matches.
type MultiValued interface {
	FieldValues(name string) ([]Value, bool)
}

// Match reports whether r satisfies every clause. A record without one of
// the referenced fields does not match.
func Match(r Record, clauses []Clause) bool {
	for _, clause := range clauses {
		if !matchField(r, clause) {
			return false
		}
	}
	return true
}

func matchField(r Record, clause Clause) bool {
	if mv, ok := r.(MultiValued); ok {
		if values, ok := mv.FieldValues(clause.Field); ok {
			for _, v := range values {
				if clause.Condition.Match(v) {
					return true
				}
			}
			return false
		}
	}
	v, ok := r.Field(clause.Field)
	return ok && clause.Condition.Match(v)
}

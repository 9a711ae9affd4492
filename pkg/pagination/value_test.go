package pagination

import (
	"encoding/json"
	"testing"
	"time"
)

func TestValue_Compare(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want int
	}{
		{"strings", StringValue("a"), StringValue("b"), -1},
		{"equal ints", IntValue(7), IntValue(7), 0},
		{"int vs float", IntValue(3), FloatValue(2.5), 1},
		{"float vs int", FloatValue(3), IntValue(3), 0},
		{"bools", BoolValue(false), BoolValue(true), -1},
		{"times", TimeValue(baseTime.Add(time.Second)), TimeValue(baseTime), 1},
		{"sub-second times", TimeValue(baseTime), TimeValue(baseTime.Add(time.Nanosecond)), -1},
		{"far future after today", TimeValue(time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)), TimeValue(baseTime), 1},
		{"distant past before today", TimeValue(time.Date(1500, 6, 1, 0, 0, 0, 0, time.UTC)), TimeValue(baseTime), -1},
		{"unrelated kinds order by kind", StringValue("z"), BoolValue(false), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Errorf("Compare() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValue_JSONKeepsKind(t *testing.T) {
	values := []Value{
		StringValue("42"),
		IntValue(42),
		FloatValue(42),
		BoolValue(true),
		TimeValue(time.Date(2024, 1, 1, 0, 0, 0, 5, time.FixedZone("X", 3600))),
		TimeValue(time.Date(3000, 1, 1, 0, 0, 0, 7, time.UTC)),
	}
	for _, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %v: %v", v, err)
		}
		var got Value
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if got != v {
			t.Errorf("round trip of %s: got %v (%s), want %v (%s)", raw, got, got.Kind(), v, v.Kind())
		}
	}
}

func TestTimeValue_OutsideNanosecondRange(t *testing.T) {
	// Given bounds that do not fit in an int64 of nanoseconds
	tests := []time.Time{
		time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC),
		time.Date(1600, 2, 29, 12, 0, 0, 0, time.UTC),
	}
	today := TimeValue(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	for _, ts := range tests {
		t.Run(ts.Format(time.DateOnly), func(t *testing.T) {
			// When the time is wrapped, filtered on and sent through a cursor
			v := TimeValue(ts)
			payload, err := DecodeCursor(mustEncode(t, CursorPayload{Value: v, Sort: "dueDate", Order: OrderAsc}))

			// Then the instant is preserved everywhere
			if !v.AsTime().Equal(ts) {
				t.Errorf("AsTime() = %v, want %v", v.AsTime(), ts)
			}
			if err != nil || payload.Value != v {
				t.Errorf("cursor round trip = %v, %v", payload.Value, err)
			}
			wantBefore := ts.After(today.AsTime())
			if got := Lt(v).Match(today); got != wantBefore {
				t.Errorf("Lt(%v).Match(today) = %v, want %v", ts, got, wantBefore)
			}
		})
	}
}

func mustEncode(t *testing.T, p CursorPayload) string {
	t.Helper()
	s, err := EncodeCursor(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return s
}

func TestValue_Native(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if got, ok := TimeValue(ts).Native().(time.Time); !ok || !got.Equal(ts) {
		t.Errorf("time native = %v", got)
	}
	if got := IntValue(3).Native(); got != int64(3) {
		t.Errorf("int native = %#v", got)
	}
	if got := (Value{}).Native(); got != nil {
		t.Errorf("invalid native = %#v", got)
	}
}

func TestCondition_Match(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		in   Value
		want bool
	}{
		{"eq hit", Eq(StringValue("x")), StringValue("x"), true},
		{"eq miss", Eq(StringValue("x")), StringValue("y"), false},
		{"in hit", In(IntValue(1), IntValue(3)), IntValue(3), true},
		{"in miss", In(IntValue(1), IntValue(3)), IntValue(2), false},
		{"empty in", In(), IntValue(2), false},
		{"gt excludes bound", Gt(IntValue(5)), IntValue(5), false},
		{"gte includes bound", Gte(IntValue(5)), IntValue(5), true},
		{"lt", Lt(IntValue(5)), IntValue(4), true},
		{"lte excludes above", Lte(IntValue(5)), IntValue(6), false},
		{"between", Between(IntValue(2), IntValue(4)), IntValue(4), true},
		{"between below", Between(IntValue(2), IntValue(4)), IntValue(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cond.Match(tt.in); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCondition_Validate(t *testing.T) {
	invalid := []Condition{
		{Kind: ConditionEqual},
		{Kind: ConditionRange},
		{Kind: ConditionRange, Lower: &Bound{}},
		{Kind: "regex"},
		{Kind: ConditionIn, Values: []Value{{}}},
	}
	for _, c := range invalid {
		if err := c.Validate(); err == nil {
			t.Errorf("expected %+v to be invalid", c)
		}
	}
	if err := In().Validate(); err != nil {
		t.Errorf("empty set should be valid: %v", err)
	}
}

func TestFilters_ClausesSorted(t *testing.T) {
	f := Filters{"b": Eq(IntValue(1)), "a": Eq(IntValue(2)), "c": Eq(IntValue(3))}
	clauses := f.Clauses()
	if len(clauses) != 3 || clauses[0].Field != "a" || clauses[1].Field != "b" || clauses[2].Field != "c" {
		t.Errorf("unexpected clause order: %+v", clauses)
	}
}

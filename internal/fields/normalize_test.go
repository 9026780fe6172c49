package fields

import (
	"errors"
	"reflect"
	"testing"
)

func num(v float64) *float64 { return &v }

func def(ft FieldType) *Definition {
	return &Definition{
		FieldKey:   "f",
		FieldLabel: "F",
		FieldType:  ft,
		IsActive:   true,
	}
}

func TestNormalize_EmptyClearsBeforeTypeCheck(t *testing.T) {
	// Empty string must clear even for non-string types.
	for _, ft := range []FieldType{TypeText, TypeNumber, TypeBoolean, TypeDate, TypeSelect, TypeMultiselect} {
		got, err := Normalize(def(ft), "")
		if err != nil {
			t.Fatalf("%s: empty string should clear, got error %v", ft, err)
		}
		if got != nil {
			t.Fatalf("%s: expected nil, got %v", ft, got)
		}
		got, err = Normalize(def(ft), nil)
		if err != nil || got != nil {
			t.Fatalf("%s: nil should clear, got (%v, %v)", ft, got, err)
		}
	}
}

func TestNormalize_Types(t *testing.T) {
	selectDef := def(TypeSelect)
	selectDef.Options = []Option{{Label: "Low", Value: "low"}, {Label: "High", Value: "high"}}

	multiDef := def(TypeMultiselect)
	multiDef.Options = []Option{{Label: "A", Value: "a"}, {Label: "B", Value: "b"}}

	patternDef := def(TypeText)
	patternDef.Validation = &Validation{Pattern: `^[A-Z]{2}[0-9]+$`}

	rangeDef := def(TypeNumber)
	rangeDef.Validation = &Validation{Min: num(1), Max: num(10)}

	lenDef := def(TypeText)
	lenDef.Validation = &Validation{Min: num(2), Max: num(4)}

	exprDef := def(TypeNumber)
	exprDef.Validation = &Validation{Expression: "value > 0 && value <= 200"}

	tests := []struct {
		name    string
		def     *Definition
		raw     any
		want    any
		wantErr bool
	}{
		{"text ok", def(TypeText), "hello", "hello", false},
		{"text rejects non-string", def(TypeText), 42.0, nil, true},
		{"textarea ok", def(TypeTextarea), "long form", "long form", false},
		{"text length too short", lenDef, "a", nil, true},
		{"text length too long", lenDef, "abcde", nil, true},
		{"text length in range", lenDef, "abc", "abc", false},
		{"text pattern ok", patternDef, "AB12", "AB12", false},
		{"text pattern fail", patternDef, "nope", nil, true},

		{"number from float", def(TypeNumber), 3.5, 3.5, false},
		{"number from string", def(TypeNumber), "42", 42.0, false},
		{"number rejects junk", def(TypeNumber), "abc", nil, true},
		{"number range low", rangeDef, 0.5, nil, true},
		{"number range high", rangeDef, 11.0, nil, true},
		{"number range ok", rangeDef, 5.0, 5.0, false},
		{"currency from int", def(TypeCurrency), 100, 100.0, false},
		{"number expression ok", exprDef, 8.0, 8.0, false},
		{"number expression fail", exprDef, 300.0, nil, true},

		{"boolean true", def(TypeBoolean), true, true, false},
		{"boolean literal string", def(TypeBoolean), "false", false, false},
		{"boolean rejects one", def(TypeBoolean), "1", nil, true},
		{"boolean rejects number", def(TypeBoolean), 1.0, nil, true},

		{"date from date string", def(TypeDate), "2024-03-05", "2024-03-05", false},
		{"date from datetime", def(TypeDate), "2024-03-05T10:30:00Z", "2024-03-05", false},
		{"date invalid", def(TypeDate), "not-a-date", nil, true},
		{"datetime canonical", def(TypeDatetime), "2024-03-05 10:30:00", "2024-03-05T10:30:00Z", false},
		{"datetime invalid", def(TypeDatetime), "2024-13-99", nil, true},

		{"select ok", selectDef, "low", "low", false},
		{"select unknown option", selectDef, "medium", nil, true},
		{"select rejects non-string", selectDef, 1.0, nil, true},
		{"select without options", def(TypeSelect), "anything", "anything", false},

		{"multiselect array", multiDef, []any{"a", "b"}, []string{"a", "b"}, false},
		{"multiselect scalar becomes array", multiDef, "a", []string{"a"}, false},
		{"multiselect bad option", multiDef, []any{"a", "z"}, nil, true},
		{"multiselect stringifies", def(TypeMultiselect), []any{1.0, true}, []string{"1", "true"}, false},

		{"unknown type", def(FieldType("mystery")), "x", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.def, tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

// Normalization must be idempotent: feeding a normalized value back through
// produces the same value for every field type.
func TestNormalize_Idempotent(t *testing.T) {
	selectDef := def(TypeSelect)
	selectDef.Options = []Option{{Label: "Low", Value: "low"}}

	cases := []struct {
		def *Definition
		raw any
	}{
		{def(TypeText), "hello"},
		{def(TypeTextarea), "block of text"},
		{def(TypeNumber), "12.5"},
		{def(TypeCurrency), 99.0},
		{def(TypeBoolean), "true"},
		{def(TypeDate), "2024-03-05T10:30:00Z"},
		{def(TypeDatetime), "2024-03-05 10:30:00"},
		{selectDef, "low"},
		{def(TypeMultiselect), "solo"},
	}

	for _, tc := range cases {
		first, err := Normalize(tc.def, tc.raw)
		if err != nil {
			t.Fatalf("%s: first pass: %v", tc.def.FieldType, err)
		}
		second, err := Normalize(tc.def, first)
		if err != nil {
			t.Fatalf("%s: second pass: %v", tc.def.FieldType, err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("%s: not idempotent: %#v != %#v", tc.def.FieldType, first, second)
		}
	}
}

func TestCheckDefinition(t *testing.T) {
	good := &Definition{FieldKey: "renewal_risk", FieldLabel: "Renewal Risk", FieldType: TypeSelect,
		Options: []Option{{Label: "Low", Value: "low"}}}
	if err := CheckDefinition(good); err != nil {
		t.Fatalf("valid definition rejected: %v", err)
	}

	bad := []*Definition{
		{FieldKey: "Bad-Key", FieldLabel: "X", FieldType: TypeText},
		{FieldKey: "ok", FieldLabel: "", FieldType: TypeText},
		{FieldKey: "ok", FieldLabel: "X", FieldType: FieldType("nope")},
		{FieldKey: "ok", FieldLabel: "X", FieldType: TypeText, Options: []Option{{Label: "A", Value: "a"}}},
		{FieldKey: "ok", FieldLabel: "X", FieldType: TypeText, Validation: &Validation{Pattern: "("}},
		{FieldKey: "ok", FieldLabel: "X", FieldType: TypeNumber, DefaultValue: "not-a-number"},
	}
	for i, d := range bad {
		err := CheckDefinition(d)
		if err == nil {
			t.Fatalf("case %d: expected rejection", i)
		}
		if !errors.Is(err, ErrInvalidDefinition) {
			t.Fatalf("case %d: rejection must carry ErrInvalidDefinition, got %v", i, err)
		}
	}
}

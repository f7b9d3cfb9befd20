package datafile

import "testing"

func TestAttributeValue_AsFloat64PromotesInteger(t *testing.T) {
	v := Integer(7)
	f, ok := v.AsFloat64()
	if !ok || f != 7.0 {
		t.Fatalf("AsFloat64() = (%v, %v), want (7, true)", f, ok)
	}
}

func TestAttributeValue_AsFloat64RejectsString(t *testing.T) {
	if _, ok := String("x").AsFloat64(); ok {
		t.Fatalf("AsFloat64() on a String value should report false")
	}
}

func TestAttributeValue_Stringify(t *testing.T) {
	cases := []struct {
		value AttributeValue
		want  string
	}{
		{Integer(42), "42"},
		{Decimal(3.5), "3.5"},
		{Boolean(true), "true"},
		{Boolean(false), "false"},
		{String("hi"), "hi"},
		{Null, ""},
	}
	for _, c := range cases {
		if got := c.value.Stringify(); got != c.want {
			t.Errorf("Stringify(%+v) = %q, want %q", c.value, got, c.want)
		}
	}
}

func TestAttributeValue_IsNull(t *testing.T) {
	if !Null.IsNull() {
		t.Fatalf("Null.IsNull() should be true")
	}
	if String("").IsNull() {
		t.Fatalf("an empty String is not Null")
	}
}

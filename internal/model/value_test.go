package model

import (
	"encoding/json"
	"testing"
)

func TestValueJSONRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		value Value
		want  string
	}{
		{"string", String("curious"), `"curious"`},
		{"int", Int(34), `34`},
		{"float", Float(0.25), `0.25`},
		{"bool", Bool(true), `true`},
		{"strings", Strings([]string{"chess", "hiking"}), `["chess","hiking"]`},
		{"traits", Traits(map[string]float64{"openness": 0.9}), `{"openness":0.9}`},
	}
	for _, tc := range cases {
		data, err := json.Marshal(tc.value)
		if err != nil {
			t.Fatalf("%s: marshal: %v", tc.name, err)
		}
		if string(data) != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, data, tc.want)
		}
		var back Value
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.name, err)
		}
		if !back.Equal(tc.value) {
			t.Fatalf("%s: round trip mismatch: %v vs %v", tc.name, back, tc.value)
		}
	}
}

func TestValueUnmarshalKeepsIntegersIntegral(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`42`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.Kind() != KindInt {
		t.Fatalf("expected int kind, got %s", v.Kind())
	}
	var f Value
	if err := json.Unmarshal([]byte(`42.5`), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Kind() != KindFloat {
		t.Fatalf("expected float kind, got %s", f.Kind())
	}
}

func TestValueUnmarshalRejectsBadShapes(t *testing.T) {
	bad := []string{`null`, `[1,2]`, `{"a":"b"}`}
	for _, payload := range bad {
		var v Value
		if err := json.Unmarshal([]byte(payload), &v); err == nil {
			t.Fatalf("expected error for %s", payload)
		}
	}
}

func TestValueCloneIsDeep(t *testing.T) {
	original := Strings([]string{"a", "b"})
	clone := original.Clone()
	items, _ := clone.AsStrings()
	items[0] = "mutated"
	back, _ := original.AsStrings()
	if back[0] != "a" {
		t.Fatal("clone shares list storage with original")
	}

	traits := Traits(map[string]float64{"openness": 0.5})
	tc := traits.Clone()
	m, _ := tc.AsTraits()
	m["openness"] = 0.9
	orig, _ := traits.AsTraits()
	if orig["openness"] != 0.5 {
		t.Fatal("clone shares trait storage with original")
	}
}

func TestGenotypeEqualAndClone(t *testing.T) {
	g := Genotype{
		Name: "Alice",
		Attributes: map[string]Value{
			AttrAge:               Int(25),
			AttrHobbies:           Strings([]string{"sketching"}),
			AttrPersonalityTraits: Traits(map[string]float64{"openness": 0.9}),
		},
	}
	clone := g.Clone()
	if !g.Equal(clone) {
		t.Fatal("clone should be attribute-equal to original")
	}

	clone.Attributes[AttrAge] = Int(26)
	if g.Equal(clone) {
		t.Fatal("age change should break equality")
	}
	if age, _ := g.Attributes[AttrAge].AsInt(); age != 25 {
		t.Fatal("clone mutation leaked into original")
	}
}

func TestTranscriptAuthoredBy(t *testing.T) {
	tr := Transcript{
		{Type: EventPost, Author: "a", Content: "p1"},
		{Type: EventPass, Author: "a", TargetAuthor: "b"},
		{Type: EventReply, Author: "a", TargetAuthor: "b", Content: "r1"},
		{Type: EventPost, Author: "b", Content: "p2"},
	}
	texts := tr.AuthoredBy("a")
	if len(texts) != 2 || texts[0] != "p1" || texts[1] != "r1" {
		t.Fatalf("unexpected authored texts: %v", texts)
	}
}

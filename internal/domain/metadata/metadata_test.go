package metadata

import (
	"testing"
)

func TestTerms(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  []string
	}{
		{"string", String("beach"), []string{"beach"}},
		{"integer number", Number(42), []string{"42"}},
		{"fractional number", Number(19.5), []string{"19.5"}},
		{"set", StringSet("summer", "winter"), []string{"summer", "winter"}},
		{"zero value", Value{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.value.Terms()
			if len(got) != len(tt.want) {
				t.Fatalf("Terms = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Terms[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestContainsFold(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		sub   string
		want  bool
	}{
		{"exact", String("beach"), "beach", true},
		{"case insensitive", String("Beach Resort"), "beach", true},
		{"substring", String("mountain village"), "tain", true},
		{"no match", String("beach"), "mountain", false},
		{"set member", StringSet("Summer", "Winter"), "winter", true},
		{"empty query never matches", String("beach"), "", false},
		{"number term", Number(42), "42", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.ContainsFold(tt.sub); got != tt.want {
				t.Errorf("ContainsFold(%q) = %v, want %v", tt.sub, got, tt.want)
			}
		})
	}
}

func TestStringSet_DefensiveCopy(t *testing.T) {
	members := []string{"summer"}
	v := StringSet(members...)
	members[0] = "mutated"
	if v.Set()[0] != "summer" {
		t.Error("StringSet shares backing array with caller")
	}
}

func TestMapClone(t *testing.T) {
	m := Map{"category": String("beach")}
	c := m.Clone()
	c["category"] = String("mountain")
	if m["category"].Str() != "beach" {
		t.Error("Clone shares storage with original")
	}

	if Map(nil).Clone() != nil {
		t.Error("Clone of nil map should be nil")
	}
}

package models

import (
	"encoding/json"
	"testing"
)

func TestPctChange_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		pct  PctChange
		want string
	}{
		{"defined value", DefinedPct(5.0), "5"},
		{"negative value", DefinedPct(-2.5), "-2.5"},
		{"undefined renders as null", UndefinedPct(), "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.pct)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestPctChange_UnmarshalJSON(t *testing.T) {
	var pct PctChange
	if err := json.Unmarshal([]byte("3.25"), &pct); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !pct.Defined || pct.Value != 3.25 {
		t.Errorf("Expected defined 3.25, got %+v", pct)
	}

	if err := json.Unmarshal([]byte("null"), &pct); err != nil {
		t.Fatalf("Unmarshal null failed: %v", err)
	}
	if pct.Defined {
		t.Errorf("Expected undefined after null, got %+v", pct)
	}
}

func TestPctChange_String(t *testing.T) {
	if got := DefinedPct(5.0).String(); got != "5.00%" {
		t.Errorf("Expected 5.00%%, got %s", got)
	}
	if got := UndefinedPct().String(); got != "—" {
		t.Errorf("Expected em dash placeholder, got %s", got)
	}
}

func TestChangeTypeOf(t *testing.T) {
	tests := []struct {
		name   string
		weekly PctChange
		want   ChangeType
	}{
		{"positive weekly", DefinedPct(1.2), ChangePositive},
		{"negative weekly", DefinedPct(-0.4), ChangeNegative},
		{"zero weekly", DefinedPct(0), ChangeNeutral},
		{"undefined weekly", UndefinedPct(), ChangeNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChangeTypeOf(tt.weekly); got != tt.want {
				t.Errorf("ChangeTypeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDirection_Opposite(t *testing.T) {
	if got := DirectionPositive.Opposite(); got != DirectionNegative {
		t.Errorf("Expected negative, got %v", got)
	}
	if got := DirectionNegative.Opposite(); got != DirectionPositive {
		t.Errorf("Expected positive, got %v", got)
	}
}

func TestDirection_Validate(t *testing.T) {
	if err := DirectionPositive.Validate(); err != nil {
		t.Errorf("positive should be valid: %v", err)
	}
	if err := Direction("sideways").Validate(); err == nil {
		t.Error("Expected error for unknown direction")
	}
}

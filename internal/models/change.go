package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// PctChange is a percentage change that may be undefined. A commodity
// without enough history for a window has an undefined change, which is
// distinct from a change of zero. Undefined values serialize as JSON
// null and render as "—".
type PctChange struct {
	Value   float64
	Defined bool
}

// DefinedPct wraps a concrete percentage value.
func DefinedPct(v float64) PctChange {
	return PctChange{Value: v, Defined: true}
}

// UndefinedPct is the sentinel for a missing value.
func UndefinedPct() PctChange {
	return PctChange{}
}

// MarshalJSON encodes the value as a number, or null when undefined.
func (p PctChange) MarshalJSON() ([]byte, error) {
	if !p.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

// UnmarshalJSON decodes a number or null.
func (p *PctChange) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = PctChange{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = PctChange{Value: v, Defined: true}
	return nil
}

// String renders the value for display, "—" when undefined.
func (p PctChange) String() string {
	if !p.Defined {
		return "—"
	}
	return strconv.FormatFloat(p.Value, 'f', 2, 64) + "%"
}

// ChangeType classifies a commodity by the sign of its weekly change.
// The weekly window is used rather than daily to keep the classification
// stable against day-to-day noise.
type ChangeType string

const (
	ChangePositive ChangeType = "Positive"
	ChangeNegative ChangeType = "Negative"
	ChangeNeutral  ChangeType = "Neutral"
)

// ChangeTypes lists the valid classifications in display order.
func ChangeTypes() []ChangeType {
	return []ChangeType{ChangePositive, ChangeNegative, ChangeNeutral}
}

// ChangeTypeOf derives the classification from a weekly change. An
// undefined weekly change is Neutral: with no value there is nothing to
// call positive or negative.
func ChangeTypeOf(weekly PctChange) ChangeType {
	switch {
	case weekly.Defined && weekly.Value > 0:
		return ChangePositive
	case weekly.Defined && weekly.Value < 0:
		return ChangeNegative
	default:
		return ChangeNeutral
	}
}

// Validate validates a ChangeType
func (c ChangeType) Validate() error {
	validTypes := map[ChangeType]bool{
		ChangePositive: true,
		ChangeNegative: true,
		ChangeNeutral:  true,
	}
	if !validTypes[c] {
		return ErrInvalidChangeType
	}
	return nil
}

// Direction is the expected movement of an impact stock.
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
)

// Opposite flips a direction.
func (d Direction) Opposite() Direction {
	if d == DirectionPositive {
		return DirectionNegative
	}
	return DirectionPositive
}

// Validate validates a Direction
func (d Direction) Validate() error {
	if d != DirectionPositive && d != DirectionNegative {
		return ErrInvalidDirection
	}
	return nil
}

package specfold

import (
	"encoding"
	"encoding/json"
	"fmt"
)

// Units identifies the representation of a spectrum's data array.
type Units int

const (
	UnitsCounts      Units = iota + 1 // raw counts per channel
	UnitsRate                         // counts per second
	UnitsRateDensity                  // counts per second per unit energy width
)

var (
	unitsNames = [...]string{
		UnitsCounts:      "counts",
		UnitsRate:        "counts/s",
		UnitsRateDensity: "counts/s/keV",
	}
	unitsByName = map[string]Units{
		"counts":       UnitsCounts,
		"counts/s":     UnitsRate,
		"counts/s/keV": UnitsRateDensity,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = Units(0)
	_ json.Marshaler           = Units(0)
	_ json.Unmarshaler         = (*Units)(nil)
	_ encoding.TextMarshaler   = Units(0)
	_ encoding.TextUnmarshaler = (*Units)(nil)
)

// IsValid reports whether u is a known units tag.
func (u Units) IsValid() bool {
	return u >= UnitsCounts && u <= UnitsRateDensity
}

// String returns the units name ("counts", "counts/s", "counts/s/keV").
// For invalid values it returns "Units(n)".
func (u Units) String() string {
	if u.IsValid() {
		return unitsNames[u]
	}
	return fmt.Sprintf("Units(%d)", int(u))
}

// MarshalText implements encoding.TextMarshaler.
func (u Units) MarshalText() ([]byte, error) {
	if !u.IsValid() {
		return nil, fmt.Errorf("specfold: invalid units: %d", int(u))
	}
	return []byte(unitsNames[u]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Units) UnmarshalText(text []byte) error {
	v, ok := unitsByName[string(text)]
	if !ok {
		return fmt.Errorf("specfold: invalid units: %q", text)
	}
	*u = v
	return nil
}

// MarshalJSON implements json.Marshaler. Units serializes as a JSON string.
func (u Units) MarshalJSON() ([]byte, error) {
	text, err := u.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (u *Units) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("specfold: invalid units: %s", data)
	}
	return u.UnmarshalText([]byte(s))
}

package geoanchor

import (
	"fmt"
	"strings"
)

// A UnitSystem is a system of linear units.
type UnitSystem int

// Unit systems.
const (
	Meters UnitSystem = iota
	Millimeters
	Centimeters
	Kilometers
	Inches
	Feet
	USSurveyFeet
	Yards
	Miles
)

var unitSystemNames = map[UnitSystem]string{
	Meters:       "meters",
	Millimeters:  "millimeters",
	Centimeters:  "centimeters",
	Kilometers:   "kilometers",
	Inches:       "inches",
	Feet:         "feet",
	USSurveyFeet: "us-survey-feet",
	Yards:        "yards",
	Miles:        "miles",
}

var metersPerUnit = map[UnitSystem]float64{
	Meters:       1,
	Millimeters:  0.001,
	Centimeters:  0.01,
	Kilometers:   1000,
	Inches:       0.0254,
	Feet:         0.3048,
	USSurveyFeet: 1200.0 / 3937.0,
	Yards:        0.9144,
	Miles:        1609.344,
}

// ParseUnitSystem parses a unit system name as returned by
// [UnitSystem.String].
func ParseUnitSystem(s string) (UnitSystem, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for unitSystem, name := range unitSystemNames {
		if s == name {
			return unitSystem, nil
		}
	}
	switch s {
	case "m", "metres":
		return Meters, nil
	case "mm":
		return Millimeters, nil
	case "cm":
		return Centimeters, nil
	case "km":
		return Kilometers, nil
	case "in":
		return Inches, nil
	case "ft":
		return Feet, nil
	case "us-ft":
		return USSurveyFeet, nil
	}
	return 0, fmt.Errorf("%s: unknown unit system", s)
}

func (u UnitSystem) String() string {
	if name, ok := unitSystemNames[u]; ok {
		return name
	}
	return fmt.Sprintf("UnitSystem(%d)", int(u))
}

// MetersPerUnit returns the length of one u in meters.
func (u UnitSystem) MetersPerUnit() (float64, error) {
	if m, ok := metersPerUnit[u]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("%s: unknown unit system", u)
}

// UnitScale returns the factor that converts lengths in from to lengths in
// to.
func UnitScale(from, to UnitSystem) (float64, error) {
	fromMeters, err := from.MetersPerUnit()
	if err != nil {
		return 0, err
	}
	toMeters, err := to.MetersPerUnit()
	if err != nil {
		return 0, err
	}
	return fromMeters / toMeters, nil
}

// LinearUnitSystem returns the unit system named by a CRS's linear unit name.
// Only feet and meters are recognized; any other name returns an error
// wrapping [ErrUnsupportedLinearUnit].
func LinearUnitSystem(name string) (UnitSystem, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	switch upper {
	case "M", "METER", "METERS", "METRE", "METRES":
		return Meters, nil
	case "FT", "FOOT", "FEET", "INTERNATIONAL FOOT":
		return Feet, nil
	case "US-FT", "FTUS", "US FOOT", "US SURVEY FOOT", "FOOT_US", "FOOT US", "US_SURVEY_FOOT":
		return USSurveyFeet, nil
	}
	if strings.Contains(upper, "FOOT") || strings.Contains(upper, "FEET") {
		if strings.Contains(upper, "US") || strings.Contains(upper, "SURVEY") {
			return USSurveyFeet, nil
		}
		return Feet, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedLinearUnit, name)
}

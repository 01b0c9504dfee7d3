// Package unitval provides scalar values tagged with a unit.
package unitval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/boxclim/internal/dynamo"
)

type Unit string

const (
	Unitless  Unit = "unitless"
	PgC       Unit = "Pg C"
	PgCPerYr  Unit = "Pg C/yr"
	PPMVCO2   Unit = "ppmv CO2"
	DegC      Unit = "degC"
	PH        Unit = "pH"
	MicroAtm  Unit = "uatm"
	MolPerKg  Unit = "mol/kg"
	Years     Unit = "yr"
	PerYear   Unit = "1/yr"
	M3PerSec  Unit = "m3/s"
	MPerSec   Unit = "m/s"
	Meters    Unit = "m"
	SquareM   Unit = "m2"
	PSU       Unit = "psu"
	PPBVCH4   Unit = "ppbv CH4"
	PPBVN2O   Unit = "ppbv N2O"
	WPerM2    Unit = "W/m2"
	NoUnit    Unit = ""
	Undefined Unit = "undefined"
)

// Value is a scalar tagged with its unit.
type Value struct {
	V    float64
	Unit Unit
}

func New(v float64, u Unit) Value {
	return Value{V: v, Unit: u}
}

// Check returns an error if v is not expressed in u.
func (v Value) Check(u Unit) error {
	if v.Unit != u {
		return fmt.Errorf("%w: unit %q, expected %q", dynamo.ErrMalformedValue, v.Unit, u)
	}
	return nil
}

func (v Value) Plus(o Value) (Value, error) {
	if err := o.Check(v.Unit); err != nil {
		return Value{}, err
	}
	return Value{V: v.V + o.V, Unit: v.Unit}, nil
}

func (v Value) Minus(o Value) (Value, error) {
	if err := o.Check(v.Unit); err != nil {
		return Value{}, err
	}
	return Value{V: v.V - o.V, Unit: v.Unit}, nil
}

func (v Value) Times(f float64) Value {
	return Value{V: v.V * f, Unit: v.Unit}
}

func (v Value) String() string {
	if v.Unit == NoUnit || v.Unit == Unitless {
		return strconv.FormatFloat(v.V, 'g', 8, 64)
	}
	return fmt.Sprintf("%s %s", strconv.FormatFloat(v.V, 'g', 8, 64), v.Unit)
}

// Parse reads a numeric string. An empty unit takes def; a non-empty unit must
// equal def unless def is NoUnit.
func Parse(s string, unit string, def Unit) (Value, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %q is not a number", dynamo.ErrMalformedValue, s)
	}
	u := Unit(strings.TrimSpace(unit))
	if u == NoUnit {
		u = def
	}
	if def != NoUnit && u != def {
		return Value{}, fmt.Errorf("%w: unit %q, expected %q", dynamo.ErrMalformedValue, u, def)
	}
	return Value{V: f, Unit: u}, nil
}

package ocean

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/boxclim/internal/dynamo"
)

func TestConstantsAt25C(t *testing.T) {
	k := NewConstants(25, 35)

	if pK1 := -math.Log10(k.K1); math.Abs(pK1-5.847) > 0.005 {
		t.Errorf("pK1 = %.4f, want ~5.847", pK1)
	}
	if pK2 := -math.Log10(k.K2); math.Abs(pK2-8.966) > 0.005 {
		t.Errorf("pK2 = %.4f, want ~8.966", pK2)
	}
	if math.Abs(k.K0-0.0284) > 0.0005 {
		t.Errorf("K0 = %.5f, want ~0.0284", k.K0)
	}
	if math.Abs(k.BT-4.16e-4) > 1e-12 {
		t.Errorf("BT = %g", k.BT)
	}
}

func TestSpeciateTypicalSeawater(t *testing.T) {
	c, err := Speciate(2.0e-3, 2.3e-3, NewConstants(20, 35))
	if err != nil {
		t.Fatalf("Speciate: %v", err)
	}

	if c.PH < 7.95 || c.PH > 8.35 {
		t.Errorf("pH = %.3f, outside typical surface range", c.PH)
	}
	if c.PCO2 < 200 || c.PCO2 > 450 {
		t.Errorf("pCO2 = %.1f uatm, outside typical range", c.PCO2)
	}
	if sum := c.CO2 + c.HCO3 + c.CO3; math.Abs(sum-c.DIC)/c.DIC > 1e-12 {
		t.Errorf("species sum %g != DIC %g", sum, c.DIC)
	}
	if c.OmegaAr >= c.OmegaCa {
		t.Errorf("aragonite saturation %g should be below calcite %g", c.OmegaAr, c.OmegaCa)
	}
	if c.OmegaCa <= 1 {
		t.Errorf("warm surface water should be calcite supersaturated, got %g", c.OmegaCa)
	}
}

func TestChemistryRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		temp float64
		dic  float64
		pco2 float64
		wind float64
	}{
		{"cold", 2, 2.15e-3, 280, 6.7},
		{"warm", 20, 1.95e-3, 280, 6.7},
		{"tropical high co2", 28, 2.0e-3, 560, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := NewConstants(tt.temp, 35)
			alk, err := SolveAlkalinity(tt.dic, tt.pco2, k)
			if err != nil {
				t.Fatalf("SolveAlkalinity: %v", err)
			}
			c, err := Speciate(tt.dic, alk, k)
			if err != nil {
				t.Fatalf("Speciate: %v", err)
			}
			if math.Abs(c.PCO2-tt.pco2)/tt.pco2 > 1e-6 {
				t.Errorf("pCO2 = %.6f, want %.6f", c.PCO2, tt.pco2)
			}

			// rebuild DIC from the solved pH and the constants alone
			h := math.Pow(10, -c.PH)
			co2 := k.K0 * c.PCO2 * 1e-6
			dic := co2 * (1 + k.K1/h + k.K1*k.K2/(h*h))
			if math.Abs(dic-tt.dic)/tt.dic > 1e-8 {
				t.Errorf("recomputed DIC = %.10g, want %.10g", dic, tt.dic)
			}

			// equilibrium means no net gas exchange
			f := GasFlux(TransferVelocity(tt.wind, tt.temp), k.K0, 1e14, tt.pco2, c.PCO2)
			if math.Abs(f) > 1e-6 {
				t.Errorf("flux at equilibrium = %g Pg C/yr", f)
			}
		})
	}
}

func TestSpeciateRejectsNonPositive(t *testing.T) {
	k := NewConstants(15, 35)
	if _, err := Speciate(0, 2.3e-3, k); !errors.Is(err, dynamo.ErrChemistryDiverged) {
		t.Errorf("expected ErrChemistryDiverged, got %v", err)
	}
	if _, err := SolveAlkalinity(2e-3, 0, k); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("expected ErrParameterBounds, got %v", err)
	}
}

func TestGasFluxDirection(t *testing.T) {
	kw := TransferVelocity(6.7, 20)
	k0 := NewConstants(20, 35).K0

	if f := GasFlux(kw, k0, 3e14, 400, 280); f <= 0 {
		t.Errorf("ocean undersaturated should take up carbon, got %g", f)
	}
	if f := GasFlux(kw, k0, 3e14, 280, 400); f >= 0 {
		t.Errorf("ocean supersaturated should outgas, got %g", f)
	}
	// ~1 Pg C/yr per 10 uatm over the low-latitude ocean
	f := GasFlux(kw, k0, 3.06e14, 290, 280)
	if f < 0.5 || f > 3 {
		t.Errorf("flux for 10 uatm = %g Pg C/yr", f)
	}
}

func TestSchmidtNumber(t *testing.T) {
	if sc := SchmidtNumber(20); math.Abs(sc-660) > 10 {
		t.Errorf("Sc(20C) = %.1f, want ~660", sc)
	}
	if SchmidtNumber(2) <= SchmidtNumber(25) {
		t.Error("Schmidt number should fall with temperature")
	}
}

func TestBrent(t *testing.T) {
	root, err := brent(func(x float64) float64 { return x*x - 2 }, 0, 2, 1e-14, 100)
	if err != nil {
		t.Fatalf("brent: %v", err)
	}
	if math.Abs(root-math.Sqrt2) > 1e-12 {
		t.Errorf("root = %.15f, want sqrt(2)", root)
	}

	_, err = brent(func(x float64) float64 { return x*x + 1 }, -1, 1, 1e-12, 100)
	if !errors.Is(err, dynamo.ErrChemistryDiverged) {
		t.Errorf("unbracketed root: expected ErrChemistryDiverged, got %v", err)
	}
}

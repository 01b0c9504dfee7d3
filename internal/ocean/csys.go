package ocean

import (
	"fmt"
	"math"

	"github.com/san-kum/boxclim/internal/dynamo"
)

const (
	SeawaterDensity = 1027.0    // kg/m3
	PgPerMol        = 12.01e-15 // Pg C per mol C
	PgPerPPM        = 2.13      // Pg C per ppmv atmospheric CO2
	SecondsPerYear  = 31557600.0
)

// Constants holds the carbonate-system equilibrium constants for one
// temperature and salinity. All K values are on the total pH scale in mol/kg.
type Constants struct {
	TempC    float64
	Salinity float64

	K0    float64 // CO2 solubility, mol/(kg atm)
	K1    float64
	K2    float64
	KB    float64
	Kw    float64
	KspCa float64
	KspAr float64
	BT    float64 // total boron
	Ca    float64 // calcium
}

func NewConstants(tempC, salinity float64) Constants {
	T := tempC + 273.15
	S := salinity
	sqrtS := math.Sqrt(S)
	lnT := math.Log(T)
	t100 := T / 100

	// Weiss (1974)
	lnK0 := -60.2409 + 93.4517/t100 + 23.3585*math.Log(t100) +
		S*(0.023517-0.023656*t100+0.0047036*t100*t100)

	// Lueker et al. (2000)
	pK1 := 3633.86/T - 61.2172 + 9.6777*lnT - 0.011555*S + 0.0001152*S*S
	pK2 := 471.78/T + 25.929 - 3.16967*lnT - 0.01781*S + 0.0001122*S*S

	// Dickson (1990)
	lnKB := (-8966.90-2890.53*sqrtS-77.942*S+1.728*S*sqrtS-0.0996*S*S)/T +
		148.0248 + 137.1942*sqrtS + 1.62142*S -
		(24.4344+25.085*sqrtS+0.2474*S)*lnT + 0.053105*sqrtS*T

	// Millero (1995)
	lnKw := 148.9652 - 13847.26/T - 23.6521*lnT +
		(118.67/T-5.977+1.0495*lnT)*sqrtS - 0.01615*S

	// Mucci (1983)
	log10T := math.Log10(T)
	logKspCa := -171.9065 - 0.077993*T + 2839.319/T + 71.595*log10T +
		(-0.77712+0.0028426*T+178.34/T)*sqrtS - 0.07711*S + 0.0041249*S*sqrtS
	logKspAr := -171.945 - 0.077993*T + 2903.293/T + 71.595*log10T +
		(-0.068393+0.0017276*T+88.135/T)*sqrtS - 0.10018*S + 0.0059415*S*sqrtS

	return Constants{
		TempC:    tempC,
		Salinity: S,
		K0:       math.Exp(lnK0),
		K1:       math.Pow(10, -pK1),
		K2:       math.Pow(10, -pK2),
		KB:       math.Exp(lnKB),
		Kw:       math.Exp(lnKw),
		KspCa:    math.Pow(10, logKspCa),
		KspAr:    math.Pow(10, logKspAr),
		BT:       4.16e-4 * S / 35,
		Ca:       0.01028 * S / 35,
	}
}

// Carbonate is the speciated carbonate system of one water mass.
type Carbonate struct {
	DIC     float64 // mol/kg
	ALK     float64 // mol/kg
	PH      float64
	PCO2    float64 // uatm
	CO2     float64 // mol/kg
	HCO3    float64 // mol/kg
	CO3     float64 // mol/kg
	OmegaCa float64
	OmegaAr float64
}

// alkalinity is the total alkalinity implied by dic at hydrogen ion
// concentration h.
func (k Constants) alkalinity(dic, h float64) float64 {
	denom := h*h + k.K1*h + k.K1*k.K2
	hco3 := dic * k.K1 * h / denom
	co3 := dic * k.K1 * k.K2 / denom
	borate := k.BT * k.KB / (k.KB + h)
	return hco3 + 2*co3 + borate + k.Kw/h - h
}

// Speciate solves for pH given DIC and alkalinity.
func Speciate(dic, alk float64, k Constants) (Carbonate, error) {
	if dic <= 0 || alk <= 0 {
		return Carbonate{}, fmt.Errorf("%w: dic=%g alk=%g", dynamo.ErrChemistryDiverged, dic, alk)
	}

	ph, err := brent(func(ph float64) float64 {
		return k.alkalinity(dic, math.Pow(10, -ph)) - alk
	}, 2, 12, 1e-12, 100)
	if err != nil {
		return Carbonate{}, fmt.Errorf("speciate dic=%g alk=%g: %w", dic, alk, err)
	}

	h := math.Pow(10, -ph)
	denom := h*h + k.K1*h + k.K1*k.K2
	c := Carbonate{
		DIC:  dic,
		ALK:  alk,
		PH:   ph,
		CO2:  dic * h * h / denom,
		HCO3: dic * k.K1 * h / denom,
		CO3:  dic * k.K1 * k.K2 / denom,
	}
	c.PCO2 = c.CO2 / k.K0 * 1e6
	c.OmegaCa = k.Ca * c.CO3 / k.KspCa
	c.OmegaAr = k.Ca * c.CO3 / k.KspAr
	return c, nil
}

// SolveAlkalinity finds the alkalinity at which water holding dic is in
// equilibrium with an atmosphere at pco2 (uatm).
func SolveAlkalinity(dic, pco2 float64, k Constants) (float64, error) {
	if dic <= 0 || pco2 <= 0 {
		return 0, fmt.Errorf("%w: dic=%g pco2=%g", dynamo.ErrParameterBounds, dic, pco2)
	}

	var inner error
	alk, err := brent(func(alk float64) float64 {
		c, err := Speciate(dic, alk, k)
		if err != nil {
			inner = err
			return math.NaN()
		}
		return c.PCO2 - pco2
	}, 0.5*dic, 2*dic, 1e-14, 200)
	if inner != nil {
		return 0, inner
	}
	if err != nil {
		return 0, fmt.Errorf("solve alkalinity dic=%g pco2=%g: %w", dic, pco2, err)
	}
	return alk, nil
}

// SchmidtNumber for CO2 in seawater, Wanninkhof (1992).
func SchmidtNumber(tempC float64) float64 {
	t := tempC
	return 2073.1 - 125.62*t + 3.6276*t*t - 0.043219*t*t*t
}

// TransferVelocity returns the CO2 gas-transfer velocity in m/yr for a wind
// speed in m/s.
func TransferVelocity(wind, tempC float64) float64 {
	cmPerHour := 0.31 * wind * wind * math.Pow(SchmidtNumber(tempC)/660, -0.5)
	return cmPerHour * 0.01 * 24 * 365.25
}

// GasFlux is the atmosphere-to-ocean carbon flux in Pg C/yr through area
// (m2) for transfer velocity kw (m/yr) and a pCO2 difference in uatm.
func GasFlux(kw, k0, area, atmPCO2, oceanPCO2 float64) float64 {
	molPerYear := kw * k0 * SeawaterDensity * (atmPCO2 - oceanPCO2) * 1e-6 * area
	return molPerYear * PgPerMol
}

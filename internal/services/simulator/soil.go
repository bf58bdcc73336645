package simulator

import (
	"math"
	"time"
)

// defaultSeed: umidità iniziale se non configurata.
const defaultSeed = 0.30 // 30%

// Soil mantiene lo stato interno della moisture e della temperatura e lo aggiorna nel tempo.
// Con acqua in uscita la moisture sale di gainPerMin, altrimenti scende di decayPerMin.
type Soil struct {
	moisture    float64 // [0..1]
	gainPerMin  float64
	decayPerMin float64
	baseTemp    float64 // °C, media giornaliera
	swingTemp   float64 // ampiezza dell'oscillazione giornaliera
}

func NewSoil(seed, gainPerMin, decayPerMin, baseTemp float64) *Soil {
	if seed <= 0 {
		seed = defaultSeed
	}
	return &Soil{
		moisture:    clamp01(seed),
		gainPerMin:  math.Max(0, gainPerMin),
		decayPerMin: math.Max(0, decayPerMin),
		baseTemp:    baseTemp,
		swingTemp:   3,
	}
}

// Advance applica dt di irrigazione (watering) o di asciugatura.
func (s *Soil) Advance(dt time.Duration, watering bool) {
	dtMin := dt.Minutes()
	if dtMin <= 0 {
		return
	}
	if watering {
		s.moisture = clamp01(s.moisture + s.gainPerMin*dtMin)
	} else {
		s.moisture = clamp01(s.moisture - s.decayPerMin*dtMin)
	}
}

// MoisturePercent: percentuale 0..100
func (s *Soil) MoisturePercent() int {
	return int(math.Round(s.moisture * 100))
}

// Temperature segue un ciclo giornaliero: minimo alle 4, massimo alle 16.
func (s *Soil) Temperature(now time.Time) float64 {
	h := float64(now.Hour()) + float64(now.Minute())/60
	t := s.baseTemp + s.swingTemp*math.Sin((h-10)/24*2*math.Pi)
	return math.Round(t*10) / 10
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

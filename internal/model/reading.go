package model

import "time"

// Pollutant names as the provider reports them. Concentrations are μg/m3.
const (
	PollutantCO   = "co"
	PollutantNO   = "no"
	PollutantNO2  = "no2"
	PollutantO3   = "o3"
	PollutantSO2  = "so2"
	PollutantPM25 = "pm2_5"
	PollutantPM10 = "pm10"
	PollutantNH3  = "nh3"
)

// Pollutants is the set of components every reading must carry.
var Pollutants = []string{
	PollutantCO,
	PollutantNO,
	PollutantNO2,
	PollutantO3,
	PollutantSO2,
	PollutantPM25,
	PollutantPM10,
	PollutantNH3,
}

// Reading is one fetched air-quality measurement. Produced fresh each cycle
// and discarded once written.
type Reading struct {
	Timestamp  time.Time
	Location   string
	AQI        int
	Components map[string]float64
}

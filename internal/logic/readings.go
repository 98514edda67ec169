package logic

import (
	"fmt"
	"strings"
)

// Calibration of the analog front-end.
const (
	SupplyVolts    = 3.3
	SoilWetVolts   = 1.0 // probe fully submerged
	WaterLowMax    = 1.5
	WaterMediumMax = 1.7
)

// SoilPercent converts the soil probe voltage into moisture, clamped to [0,100].
// The probe reads lower voltages in wetter soil.
func SoilPercent(volts float64) float64 {
	return clampPercent((1 - (volts-SoilWetVolts)/(SupplyVolts-SoilWetVolts)) * 100)
}

// LightPercent converts the photoresistor divider voltage into brightness, clamped to [0,100].
func LightPercent(volts float64) float64 {
	return clampPercent((1 - volts/SupplyVolts) * 100)
}

// ClassifyWaterLevel maps the level probe voltage to a WaterLevel.
// Boundaries are inclusive on the lower class.
func ClassifyWaterLevel(volts float64) WaterLevel {
	switch {
	case volts <= WaterLowMax:
		return WaterLow
	case volts <= WaterMediumMax:
		return WaterMedium
	default:
		return WaterHigh
	}
}

// Derive computes the published values from the channels that completed.
func Derive(raw RawReadings) DerivedReadings {
	var d DerivedReadings
	if raw.Done[ChannelSoil] {
		v := SoilPercent(raw.Volts[ChannelSoil])
		d.SoilPercent = &v
	}
	if raw.Done[ChannelLight] {
		v := LightPercent(raw.Volts[ChannelLight])
		d.LightPercent = &v
	}
	if raw.Done[ChannelWaterLevel] {
		w := ClassifyWaterLevel(raw.Volts[ChannelWaterLevel])
		d.Water = &w
	}
	return d
}

// FormatData renders the data record, e.g. "soil=100,light=100,water=MEDIUM".
// Missing fields are left out.
func FormatData(d DerivedReadings) string {
	parts := make([]string, 0, 3)
	if d.SoilPercent != nil {
		parts = append(parts, fmt.Sprintf("soil=%.0f", *d.SoilPercent))
	}
	if d.LightPercent != nil {
		parts = append(parts, fmt.Sprintf("light=%.0f", *d.LightPercent))
	}
	if d.Water != nil {
		parts = append(parts, "water="+string(*d.Water))
	}
	return strings.Join(parts, ",")
}

func clampPercent(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}

package domain

import "strconv"

const (
	FAN_SPEED_COUNT = 3

	// VOC molecular weight (g/mol) and molar volume (l) at 25°C.
	vocMolecularWeight = 120.0
	molarVolume        = 24.45
)

// RoundTo rounds on the exact binary value of the float, like Python's round.
// Exact ties go to even; 0.15 is stored below the tie and rounds to 0.1.
func RoundTo(value float64, decimals uint) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(value, 'f', int(decimals), 64), 64)
	if err != nil {
		return value
	}
	return rounded
}

func VOCToMicrogramsPerCubicMeter(ppb float64) float64 {
	return RoundTo(ppb*(vocMolecularWeight/molarVolume), 1)
}

func FanPercentageForSpeed(speed int) int {
	return int(RoundTo(float64(speed)*33.33, 0))
}

// FanSpeedForPercentage buckets a percentage into a fan speed. It is not the
// inverse of FanPercentageForSpeed: 67% maps back to "2" but so does 51%.
func FanSpeedForPercentage(percentage int) string {
	switch {
	case percentage == 100:
		return "3"
	case percentage > 50:
		return "2"
	case percentage > 20:
		return "1"
	default:
		return "0"
	}
}

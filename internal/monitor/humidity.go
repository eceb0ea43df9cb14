// SPDX-License-Identifier: MIT

package monitor

import "math"

// AbsoluteHumidity converts temperature (°C) and relative humidity (%RH)
// to absolute humidity in g/m³ using the Magnus formula.
func AbsoluteHumidity(temperature, relativeHumidity float64) float64 {
	tempK := temperature + 273.15
	// Saturation vapour pressure in hPa (Magnus, over water).
	pvs := 6.112 * math.Exp((17.62*temperature)/(243.12+temperature))
	return relativeHumidity * pvs * 2.1674 / tempK
}

// AbsoluteHumidityFixedPoint returns the absolute humidity in the 8.8
// fixed-point g/m³ encoding the SGP30 set_absolute_humidity command takes.
// Values that would overflow the 16-bit field are clamped.
func AbsoluteHumidityFixedPoint(temperature, relativeHumidity float64) uint16 {
	ah := AbsoluteHumidity(temperature, relativeHumidity) * 256
	if ah < 0 {
		return 0
	}
	if ah > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(ah)
}

// SPDX-License-Identifier: MIT

package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbsoluteHumidity(t *testing.T) {
	// 21°C at 45%RH is about 8.26 g/m³.
	ah := AbsoluteHumidity(21.0, 45.0)
	assert.InDelta(t, 8.26, ah, 0.1)

	// Saturated air at 25°C is about 23 g/m³.
	assert.InDelta(t, 23.0, AbsoluteHumidity(25.0, 100.0), 0.5)

	// Dry air.
	assert.InDelta(t, 0.0, AbsoluteHumidity(21.0, 0.0), 0.001)
}

func TestAbsoluteHumidityFixedPoint(t *testing.T) {
	fp := AbsoluteHumidityFixedPoint(21.0, 45.0)
	// 8.26 g/m³ * 256 ≈ 2115.
	assert.InDelta(t, 2115, float64(fp), 30)

	assert.Equal(t, uint16(0), AbsoluteHumidityFixedPoint(21.0, 0.0))

	// Monotone in humidity.
	assert.Greater(t,
		AbsoluteHumidityFixedPoint(21.0, 80.0),
		AbsoluteHumidityFixedPoint(21.0, 40.0))
}

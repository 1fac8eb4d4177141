/*
Copyright © 2024 the Alpine authors.
This file is part of Alpine.

Alpine is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Alpine is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Alpine.  If not, see <http://www.gnu.org/licenses/>.
*/

package alpine

import (
	"github.com/ctessum/sparse"
	"github.com/ctessum/unit"
)

// Unit conversion constants. These are universal, not tunable parameters.
const (
	secondsPerDay = 86400.  // [s d⁻¹]
	mmPerM        = 1000.   // [mm m⁻¹]
	kelvinOffset  = 273.15  // 0 °C in [K]
)

// DefaultRhoWater is the default volumetric mass density of liquid
// water [kg m⁻³].
const DefaultRhoWater = 1000.

// Dimensions of the quantities exchanged with other components.
var (
	// waterFluxDims is a mass flux density [kg m⁻² s⁻¹].
	waterFluxDims = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -2, unit.TimeDim: -1}

	// temperatureDims is an absolute temperature [K].
	temperatureDims = unit.Dimensions{unit.TemperatureDim: 1}
)

// FluxToDepthRate converts a water mass flux density [kg m⁻² s⁻¹] to the
// equivalent depth rate [mm d⁻¹], given the density of liquid water
// rhoWater [kg m⁻³].
func FluxToDepthRate(flux *sparse.DenseArray, rhoWater float64) (*sparse.DenseArray, error) {
	if rhoWater <= 0 {
		return nil, domainErrorf("FluxToDepthRate", "water density must be positive but is %g kg m-3", rhoWater)
	}
	return flux.ScaleCopy(1 / rhoWater * mmPerM * secondsPerDay), nil
}

// FluxToDepth converts a water mass flux density [kg m⁻² s⁻¹] to the depth
// [mm] accumulated over a step of dtSeconds.
func FluxToDepth(flux *sparse.DenseArray, rhoWater, dtSeconds float64) (*sparse.DenseArray, error) {
	if dtSeconds <= 0 {
		return nil, domainErrorf("FluxToDepth", "timestep must be positive but is %g s", dtSeconds)
	}
	rate, err := FluxToDepthRate(flux, rhoWater)
	if err != nil {
		return nil, err
	}
	rate.Scale(dtSeconds / secondsPerDay)
	return rate, nil
}

// DepthToFlux converts a depth [mm] accumulated over a step of dtSeconds
// back to a water mass flux density [kg m⁻² s⁻¹]. It is the inverse of
// FluxToDepth.
func DepthToFlux(depth *sparse.DenseArray, rhoWater, dtSeconds float64) (*sparse.DenseArray, error) {
	if rhoWater <= 0 {
		return nil, domainErrorf("DepthToFlux", "water density must be positive but is %g kg m-3", rhoWater)
	}
	if dtSeconds <= 0 {
		return nil, domainErrorf("DepthToFlux", "timestep must be positive but is %g s", dtSeconds)
	}
	return depth.ScaleCopy(1 / mmPerM * rhoWater / dtSeconds), nil
}

// KelvinToCelsius converts an absolute temperature grid [K] to [°C].
func KelvinToCelsius(t *sparse.DenseArray) *sparse.DenseArray {
	o := t.Copy()
	for i, v := range t.Elements {
		o.Elements[i] = v - kelvinOffset
	}
	return o
}

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

// SnowLayer is the surface-layer component of the model: a single snow
// store with degree-day accumulation and melt. It implements the mass
// balance dSn/dt = Ps − Qn (MARRMoT supplement Eq. 39), where snowfall Ps
// and melt Qn are mutually exclusive because they occur on opposite sides
// of the threshold temperature.
type SnowLayer struct {
	// ThresholdTemp (θ_tt) is the temperature at or below which
	// precipitation is assumed to be snow [°C].
	ThresholdTemp float64

	// DegreeDayFactor (θ_ddf) is the rate at which accumulated snow
	// melts per degree above the threshold [mm °C⁻¹ d⁻¹].
	DegreeDayFactor float64

	// RhoWater is the volumetric mass density of liquid water [kg m⁻³].
	RhoWater float64
}

// NewSnowLayer creates a snow component with the default water density.
func NewSnowLayer(thresholdTemp, degreeDayFactor float64) *SnowLayer {
	return &SnowLayer{
		ThresholdTemp:   thresholdTemp,
		DegreeDayFactor: degreeDayFactor,
		RhoWater:        DefaultRhoWater,
	}
}

// Name implements the Component interface.
func (c *SnowLayer) Name() string { return "snow layer" }

// Inwards implements the Component interface. The snow layer consumes no
// transfers from other components.
func (c *SnowLayer) Inwards() []VarInfo { return nil }

// Outwards implements the Component interface.
func (c *SnowLayer) Outwards() []VarInfo {
	return []VarInfo{{
		Name:        VarThroughfallAndSnowMelt,
		Units:       "kg m-2 s-1",
		Dimensions:  waterFluxDims,
		Description: "liquid water reaching the ground: direct rainfall plus snowmelt",
	}}
}

// Inputs implements the Component interface.
func (c *SnowLayer) Inputs() []VarInfo {
	return []VarInfo{
		{
			Name:        VarPrecipitationFlux,
			Units:       "kg m-2 s-1",
			Dimensions:  waterFluxDims,
			Description: "incoming precipitation, to be divided into rain and snow",
		},
		{
			Name:       VarAirTemperature,
			Units:      "K",
			Dimensions: temperatureDims,
		},
	}
}

// Outputs implements the Component interface. The snow layer declares no
// outputs of its own.
func (c *SnowLayer) Outputs() []VarInfo { return nil }

// States implements the Component interface.
func (c *SnowLayer) States() []VarInfo {
	return []VarInfo{{Name: VarSnowStore, Units: "mm"}}
}

// Initialise implements the Component interface, seeding an empty snow
// store unless a prior value was supplied.
func (c *SnowLayer) Initialise(states *StateStore) error {
	states.Declare(VarSnowStore, "mm")
	if !states.Initialised(VarSnowStore) {
		return states.Set(VarSnowStore, -1, zeros(states.Shape))
	}
	return nil
}

// Run implements the Component interface. It partitions precipitation
// into rain and snow on the threshold temperature, melts snow at the
// degree-day rate capped at the store contents, updates the store, and
// returns rain plus melt as the liquid flux reaching the ground.
func (c *SnowLayer) Run(dtSeconds float64, _, inputs ArraySet, states *StateStore) (ArraySet, ArraySet, error) {
	if dtSeconds <= 0 {
		return nil, nil, domainErrorf("SnowLayer.Run", "timestep must be positive but is %g s", dtSeconds)
	}
	dt := dtSeconds / secondsPerDay // [d]

	precip, err := inputs.get(VarPrecipitationFlux)
	if err != nil {
		return nil, nil, err
	}
	airTemp, err := inputs.get(VarAirTemperature)
	if err != nil {
		return nil, nil, err
	}

	P, err := FluxToDepthRate(precip, c.RhoWater) // [mm d⁻¹]
	if err != nil {
		return nil, nil, err
	}
	T := KelvinToCelsius(airTemp) // [°C]

	snowOld, err := states.Get(VarSnowStore, -1) // [mm]
	if err != nil {
		return nil, nil, err
	}

	// Divide precipitation into rain and snow (Eq. 40).
	Pr := where(T, func(t float64) bool { return t > c.ThresholdTemp }, P, nil)  // [mm d⁻¹]
	Ps := where(T, func(t float64) bool { return t <= c.ThresholdTemp }, P, nil) // [mm d⁻¹]

	// Melt rate, unconstrained by the store contents (Eq. 41).
	Qn := apply(T, func(t float64) float64 { // [mm d⁻¹]
		if t >= c.ThresholdTemp {
			return c.DegreeDayFactor * (t - c.ThresholdTemp)
		}
		return 0
	})

	// Depths over the step. Melt cannot exceed the available snow.
	actualPr := Pr.ScaleCopy(dt) // [mm]
	actualPs := Ps.ScaleCopy(dt) // [mm]
	actualQn := zipWith(Qn.ScaleCopy(dt), snowOld, func(melt, avail float64) float64 {
		if melt > avail {
			return avail
		}
		return melt
	}) // [mm]

	snowNew := addDense(snowOld, subDense(actualPs, actualQn))
	if err := floorStorage(snowNew, VarSnowStore, storageFloorTolerance); err != nil {
		return nil, nil, err
	}
	if err := states.Set(VarSnowStore, 0, snowNew); err != nil {
		return nil, nil, err
	}

	liquid, err := DepthToFlux(addDense(actualPr, actualQn), c.RhoWater, dtSeconds)
	if err != nil {
		return nil, nil, err
	}
	return ArraySet{VarThroughfallAndSnowMelt: liquid}, ArraySet{}, nil
}

// Finalise implements the Component interface. The snow store is simply
// left in its last-updated value for persistence.
func (c *SnowLayer) Finalise(states *StateStore) error { return nil }

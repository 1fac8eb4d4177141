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

import "github.com/ctessum/sparse"

// SoilMoisture is the subsurface component of the model: a single soil
// moisture bucket implementing the mass balance
// dSm/dt = (Pr + Qn) − Ea − Qse − Qss (MARRMoT supplement Eq. 42), with
// evaporation Ea, saturation-excess runoff Qse, and linear baseflow Qss
// all competing for the same store. When the unconstrained outflows would
// together overdraw the store, they are rescaled in proportion to their
// unconstrained magnitudes against the water actually available, so the
// store is drained exactly to zero and relative flux shares are
// preserved.
type SoilMoisture struct {
	// MaxStorage (θ_smax) is the maximum storage in the soil moisture
	// store [mm]; inflow bypasses a full store as saturation-excess
	// runoff.
	MaxStorage float64

	// RunoffCoeff (θ_tc) is the linear baseflow drainage coefficient
	// [d⁻¹].
	RunoffCoeff float64

	// RhoWater is the volumetric mass density of liquid water [kg m⁻³].
	RhoWater float64
}

// NewSoilMoisture creates a soil moisture component with the default
// water density.
func NewSoilMoisture(maxStorage, runoffCoeff float64) *SoilMoisture {
	return &SoilMoisture{
		MaxStorage:  maxStorage,
		RunoffCoeff: runoffCoeff,
		RhoWater:    DefaultRhoWater,
	}
}

// Name implements the Component interface.
func (c *SoilMoisture) Name() string { return "soil moisture" }

// Inwards implements the Component interface.
func (c *SoilMoisture) Inwards() []VarInfo {
	return []VarInfo{{
		Name:       VarThroughfallAndSnowMelt,
		Units:      "kg m-2 s-1",
		Dimensions: waterFluxDims,
	}}
}

// Outwards implements the Component interface.
func (c *SoilMoisture) Outwards() []VarInfo {
	return []VarInfo{
		{
			Name:       VarSurfaceRunoffToRivers,
			Units:      "kg m-2 s-1",
			Dimensions: waterFluxDims,
		},
		{
			Name:       VarGroundwaterToRivers,
			Units:      "kg m-2 s-1",
			Dimensions: waterFluxDims,
		},
	}
}

// Inputs implements the Component interface.
func (c *SoilMoisture) Inputs() []VarInfo {
	return []VarInfo{{
		Name:       VarPotentialEvapotranspiration,
		Units:      "kg m-2 s-1",
		Dimensions: waterFluxDims,
	}}
}

// Outputs implements the Component interface.
func (c *SoilMoisture) Outputs() []VarInfo {
	return []VarInfo{{
		Name:        VarActualEvapotranspiration,
		Units:       "kg m-2 s-1",
		Dimensions:  waterFluxDims,
		Description: "evaporation from the soil moisture store",
	}}
}

// States implements the Component interface.
func (c *SoilMoisture) States() []VarInfo {
	return []VarInfo{{Name: VarSoilStore, Units: "mm"}}
}

// Initialise implements the Component interface, seeding an empty soil
// store unless a prior value was supplied.
func (c *SoilMoisture) Initialise(states *StateStore) error {
	states.Declare(VarSoilStore, "mm")
	if !states.Initialised(VarSoilStore) {
		return states.Set(VarSoilStore, -1, zeros(states.Shape))
	}
	return nil
}

// Run implements the Component interface.
func (c *SoilMoisture) Run(dtSeconds float64, transfersIn, inputs ArraySet, states *StateStore) (ArraySet, ArraySet, error) {
	if dtSeconds <= 0 {
		return nil, nil, domainErrorf("SoilMoisture.Run", "timestep must be positive but is %g s", dtSeconds)
	}
	dt := dtSeconds / secondsPerDay // [d]

	liquidIn, err := transfersIn.get(VarThroughfallAndSnowMelt)
	if err != nil {
		return nil, nil, err
	}
	potentialET, err := inputs.get(VarPotentialEvapotranspiration)
	if err != nil {
		return nil, nil, err
	}

	PrPlusQn, err := FluxToDepthRate(liquidIn, c.RhoWater) // [mm d⁻¹]
	if err != nil {
		return nil, nil, err
	}
	Ep, err := FluxToDepthRate(potentialET, c.RhoWater) // [mm d⁻¹]
	if err != nil {
		return nil, nil, err
	}

	soilOld, err := states.Get(VarSoilStore, -1) // [mm]
	if err != nil {
		return nil, nil, err
	}

	// Outflow rates, unconstrained by the available water:
	// evaporation needs a nonzero store (Eq. 44), saturation-excess
	// runoff equals inflow once the store is full (Eq. 45), and baseflow
	// drains linearly (Eq. 46).
	Ea := where(soilOld, func(s float64) bool { return s > 0 }, Ep, nil)                 // [mm d⁻¹]
	Qse := where(soilOld, func(s float64) bool { return s >= c.MaxStorage }, PrPlusQn, nil) // [mm d⁻¹]
	Qss := soilOld.ScaleCopy(c.RunoffCoeff)                                              // [mm d⁻¹]

	// Depths over the step.
	actualIn := PrPlusQn.ScaleCopy(dt) // [mm]
	actualEa := Ea.ScaleCopy(dt)       // [mm]
	actualQse := Qse.ScaleCopy(dt)     // [mm]
	actualQss := Qss.ScaleCopy(dt)     // [mm]

	// Tentative explicit-Euler update.
	soilNew := addDense(soilOld, subDense(actualIn, addDense(actualEa, addDense(actualQse, actualQss))))

	// Where the unconstrained outflows would overdraw the store, rescale
	// them against the water actually available. Cells that were not
	// overdrawn keep their unconstrained depths exactly.
	if anyNegative(soilNew) {
		if err := rescaleOverdrawn(soilNew, soilOld, actualIn, actualEa, actualQse, actualQss); err != nil {
			return nil, nil, err
		}
		soilNew = addDense(soilOld, subDense(actualIn, addDense(actualEa, addDense(actualQse, actualQss))))
	}
	if err := floorStorage(soilNew, VarSoilStore, storageFloorTolerance*maxFloat(c.MaxStorage, 1)); err != nil {
		return nil, nil, err
	}
	if err := states.Set(VarSoilStore, 0, soilNew); err != nil {
		return nil, nil, err
	}

	// Realized depths back to intensities for the exchange bus.
	surfaceRunoff, err := DepthToFlux(actualQse, c.RhoWater, dtSeconds)
	if err != nil {
		return nil, nil, err
	}
	baseflow, err := DepthToFlux(actualQss, c.RhoWater, dtSeconds)
	if err != nil {
		return nil, nil, err
	}
	actualET, err := DepthToFlux(actualEa, c.RhoWater, dtSeconds)
	if err != nil {
		return nil, nil, err
	}

	transfersOut := ArraySet{
		VarSurfaceRunoffToRivers: surfaceRunoff,
		VarGroundwaterToRivers:   baseflow,
	}
	outputs := ArraySet{VarActualEvapotranspiration: actualET}
	return transfersOut, outputs, nil
}

// Finalise implements the Component interface. The soil store is simply
// left in its last-updated value for persistence.
func (c *SoilMoisture) Finalise(states *StateStore) error { return nil }

// anyNegative reports whether any element of a is below zero.
func anyNegative(a *sparse.DenseArray) bool {
	for _, v := range a.Elements {
		if v < 0 {
			return true
		}
	}
	return false
}

// rescaleOverdrawn rescales the three outflow depths, in place, for every
// cell where the tentative store update went negative. Each outflow keeps
// its share of the total unconstrained withdrawal, applied against the
// water actually available (the old store plus the step inflow); the
// shares sum to one, so the rescaled withdrawals drain the store exactly
// to zero. Cells with non-negative tentative storage are left untouched.
//
// A flagged cell with zero total withdrawal has no water to give back,
// which cannot happen if the tentative update truly went negative; it is
// reported as a DomainError rather than silently dividing by zero.
func rescaleOverdrawn(soilNew, soilOld, actualIn, actualEa, actualQse, actualQss *sparse.DenseArray) error {
	for i, s := range soilNew.Elements {
		if s >= 0 {
			continue
		}
		total := actualEa.Elements[i] + actualQse.Elements[i] + actualQss.Elements[i]
		if total <= 0 {
			return domainErrorf("rescaleOverdrawn",
				"cell %d is overdrawn by %g mm but has zero total withdrawal", i, -s)
		}
		avail := soilOld.Elements[i] + actualIn.Elements[i]
		actualEa.Elements[i] = actualEa.Elements[i] / total * avail
		actualQse.Elements[i] = actualQse.Elements[i] / total * avail
		actualQss.Elements[i] = actualQss.Elements[i] / total * avail
	}
	return nil
}

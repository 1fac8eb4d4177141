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
	"math"
	"testing"

	"github.com/ctessum/sparse"
)

const testTolerance = 1.e-8

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func absDifferent(a, b, tolerance float64) bool {
	if math.Abs(a-b) > tolerance {
		return true
	}
	return false
}

func testGrid(t *testing.T) *GridDef {
	g, err := NewGridDef(2, 2, 0, 0, 1000, 1000)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// constGrid returns a grid-shaped array with every element set to v.
func constGrid(g *GridDef, v float64) *sparse.DenseArray {
	a := g.Zeros()
	for i := range a.Elements {
		a.Elements[i] = v
	}
	return a
}

// testFlux returns the mass flux density [kg m⁻² s⁻¹] corresponding to a
// depth rate of mmPerDay [mm d⁻¹] at the default water density.
func testFlux(mmPerDay float64) float64 {
	return mmPerDay * DefaultRhoWater / mmPerM / secondsPerDay
}

// testModel assembles a two-component model driven by nsteps records of
// constant forcing: 10 mm d⁻¹ precipitation at 5 °C with a potential
// evapotranspiration of 1 mm d⁻¹.
func testModel(t *testing.T, nsteps int) *Alpine {
	g := testGrid(t)
	precip := make([]*sparse.DenseArray, nsteps)
	temp := make([]*sparse.DenseArray, nsteps)
	pet := make([]*sparse.DenseArray, nsteps)
	for i := 0; i < nsteps; i++ {
		precip[i] = constGrid(g, testFlux(10))
		temp[i] = constGrid(g, 278.15)
		pet[i] = constGrid(g, testFlux(1))
	}
	budget := NewWaterBudget(DefaultRhoWater)
	return &Alpine{
		Dt:   86400,
		Grid: g,
		Components: []Component{
			NewSnowLayer(0, 2),
			NewSoilMoisture(10, 0.5),
		},
		Forcing: &Forcing{
			PrecipitationFlux:               NextDataArrays(precip...),
			AirTemperature:                  NextDataArrays(temp...),
			PotentialEvapotranspirationFlux: NextDataArrays(pet...),
		},
		InitFuncs: []DomainManipulator{
			InitComponents(),
			budget.Snapshot(),
		},
		RunFuncs: []DomainManipulator{
			RunComponents(),
			budget.Check(nil),
		},
		CleanupFuncs: []DomainManipulator{
			FinaliseComponents(),
		},
	}
}

func TestModelRun(t *testing.T) {
	const nsteps = 3

	d := testModel(t, nsteps)
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if err := d.Run(); err != nil {
		t.Fatal(err)
	}
	if err := d.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if d.Step() != nsteps {
		t.Errorf("completed %d steps, want %d", d.Step(), nsteps)
	}

	results, err := d.Results(VarSnowStore, VarSoilStore,
		VarSurfaceRunoffToRivers, VarGroundwaterToRivers,
		VarActualEvapotranspiration, VarThroughfallAndSnowMelt)
	if err != nil {
		t.Fatal(err)
	}
	// At 5 °C all precipitation is rain and the snow store stays empty.
	for i, v := range results[VarSnowStore] {
		if absDifferent(v, 0, testTolerance) {
			t.Errorf("cell %d: snow store is %g mm, want 0", i, v)
		}
	}
	// The soil store fills, so baseflow must be flowing by the last step.
	for i, v := range results[VarGroundwaterToRivers] {
		if v <= 0 {
			t.Errorf("cell %d: baseflow is %g, want > 0", i, v)
		}
	}
}

func TestModelRunDeterministic(t *testing.T) {
	vars := []string{VarSnowStore, VarSoilStore, VarSurfaceRunoffToRivers,
		VarGroundwaterToRivers, VarActualEvapotranspiration}

	runs := make([]map[string][]float64, 2)
	for k := range runs {
		d := testModel(t, 4)
		if err := d.Init(); err != nil {
			t.Fatal(err)
		}
		if err := d.Run(); err != nil {
			t.Fatal(err)
		}
		r, err := d.Results(vars...)
		if err != nil {
			t.Fatal(err)
		}
		runs[k] = r
	}
	for _, v := range vars {
		for i := range runs[0][v] {
			if runs[0][v][i] != runs[1][v][i] {
				t.Errorf("%s cell %d: %g != %g between identical runs",
					v, i, runs[0][v][i], runs[1][v][i])
			}
		}
	}
}

func TestSteps(t *testing.T) {
	g := testGrid(t)
	d := &Alpine{
		Dt:   86400,
		Grid: g,
		Components: []Component{
			NewSnowLayer(0, 2),
			NewSoilMoisture(10, 0.5),
		},
		Forcing: &Forcing{
			PrecipitationFlux:               NextDataConstant(constGrid(g, testFlux(10))),
			AirTemperature:                  NextDataConstant(constGrid(g, 278.15)),
			PotentialEvapotranspirationFlux: NextDataConstant(constGrid(g, testFlux(1))),
		},
		InitFuncs: []DomainManipulator{InitComponents()},
		RunFuncs: []DomainManipulator{
			RunComponents(),
			Steps(5),
		},
	}
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if err := d.Run(); err != nil {
		t.Fatal(err)
	}
	if d.Step() != 5 {
		t.Errorf("completed %d steps, want 5", d.Step())
	}
}

func TestCheckWiringOrder(t *testing.T) {
	d := testModel(t, 1)
	// The soil moisture component consumes a transfer the snow layer
	// produces, so running it first must fail.
	d.Components = []Component{d.Components[1], d.Components[0]}
	if err := d.Init(); err == nil {
		t.Error("expected a wiring error for reversed component order")
	}
}

func TestCheckWiringDuplicate(t *testing.T) {
	d := testModel(t, 1)
	d.Components = append([]Component{NewSnowLayer(1, 3)}, d.Components...)
	if err := d.Init(); err == nil {
		t.Error("expected a wiring error for a duplicated transfer producer")
	}
}

func TestStateStoreOffsets(t *testing.T) {
	s := NewStateStore([]int{2, 2})
	s.Declare(VarSnowStore, "mm")

	if s.Initialised(VarSnowStore) {
		t.Error("freshly declared store reports initialised")
	}
	if _, err := s.Get(VarSnowStore, -1); err == nil {
		t.Error("expected an error getting an unseeded store")
	}

	seed := sparse.ZerosDense(2, 2)
	seed.Elements[3] = 7
	if err := s.Set(VarSnowStore, -1, seed); err != nil {
		t.Fatal(err)
	}
	if !s.Initialised(VarSnowStore) {
		t.Error("seeded store reports uninitialised")
	}
	if _, err := s.Get(VarSnowStore, 2); err == nil {
		t.Error("expected an error for an invalid timestep offset")
	}

	// advance requires the current step to have been written.
	if err := s.advance(); err == nil {
		t.Error("expected an error advancing a store with no current value")
	}
	cur := sparse.ZerosDense(2, 2)
	cur.Elements[0] = 3
	if err := s.Set(VarSnowStore, 0, cur); err != nil {
		t.Fatal(err)
	}
	if err := s.advance(); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(VarSnowStore, -1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Elements[0] != 3 {
		t.Errorf("advanced store has %g at cell 0, want 3", got.Elements[0])
	}
}

func TestInitialiseKeepsSuppliedState(t *testing.T) {
	g := testGrid(t)
	c := NewSnowLayer(0, 2)

	states := NewStateStore(g.Shape())
	states.Declare(VarSnowStore, "mm")
	if err := states.Set(VarSnowStore, -1, constGrid(g, 25)); err != nil {
		t.Fatal(err)
	}
	if err := c.Initialise(states); err != nil {
		t.Fatal(err)
	}
	got, err := states.Get(VarSnowStore, -1)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range got.Elements {
		if v != 25 {
			t.Errorf("cell %d: supplied state was overwritten to %g", i, v)
		}
	}
}

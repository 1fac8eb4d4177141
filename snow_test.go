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

import "testing"

// Test that precipitation below the threshold temperature accumulates
// in the snow store and produces no liquid water.
func TestSnowAccumulation(t *testing.T) {
	g := testGrid(t)
	c := NewSnowLayer(0, 2)
	states := NewStateStore(g.Shape())
	if err := c.Initialise(states); err != nil {
		t.Fatal(err)
	}

	inputs := ArraySet{
		VarPrecipitationFlux: constGrid(g, testFlux(10)),
		VarAirTemperature:    constGrid(g, 268.15), // -5 °C
	}
	transfersOut, _, err := c.Run(86400, nil, inputs, states)
	if err != nil {
		t.Fatal(err)
	}

	liquid := transfersOut[VarThroughfallAndSnowMelt]
	for i, v := range liquid.Elements {
		if absDifferent(v, 0, testTolerance) {
			t.Errorf("cell %d: liquid flux is %g below freezing, want 0", i, v)
		}
	}
	snowNew, err := states.Get(VarSnowStore, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range snowNew.Elements {
		if different(v, 10, testTolerance) {
			t.Errorf("cell %d: snow store is %g mm, want 10", i, v)
		}
	}
}

// Test that melt is capped at the available snow: at 5 °C with a
// degree-day factor of 2 mm °C⁻¹ d⁻¹ the potential melt is 10 mm, but
// only the 2 mm actually in the store may leave it.
func TestSnowMeltCap(t *testing.T) {
	g := testGrid(t)
	c := NewSnowLayer(0, 2)
	states := NewStateStore(g.Shape())
	if err := c.Initialise(states); err != nil {
		t.Fatal(err)
	}
	if err := states.Set(VarSnowStore, -1, constGrid(g, 2)); err != nil {
		t.Fatal(err)
	}

	inputs := ArraySet{
		VarPrecipitationFlux: constGrid(g, testFlux(10)),
		VarAirTemperature:    constGrid(g, 278.15), // 5 °C
	}
	transfersOut, _, err := c.Run(86400, nil, inputs, states)
	if err != nil {
		t.Fatal(err)
	}

	// All precipitation falls as rain, and the melted 2 mm joins it.
	liquid, err := FluxToDepth(transfersOut[VarThroughfallAndSnowMelt], DefaultRhoWater, 86400)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range liquid.Elements {
		if different(v, 12, testTolerance) {
			t.Errorf("cell %d: liquid depth is %g mm, want 12", i, v)
		}
	}
	snowNew, err := states.Get(VarSnowStore, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range snowNew.Elements {
		if absDifferent(v, 0, testTolerance) {
			t.Errorf("cell %d: snow store is %g mm after exhaustion, want 0", i, v)
		}
	}
}

// Test that the snow layer conserves mass across a mix of freezing and
// melting cells: the water entering as precipitation either stays in the
// store or leaves as liquid.
func TestSnowMassConservation(t *testing.T) {
	g := testGrid(t)
	c := NewSnowLayer(0, 2)
	states := NewStateStore(g.Shape())
	if err := c.Initialise(states); err != nil {
		t.Fatal(err)
	}

	snowOld := g.Zeros()
	copy(snowOld.Elements, []float64{0, 1, 2, 50})
	if err := states.Set(VarSnowStore, -1, snowOld.Copy()); err != nil {
		t.Fatal(err)
	}
	temp := g.Zeros()
	copy(temp.Elements, []float64{268.15, 273.15, 278.15, 283.15})
	inputs := ArraySet{
		VarPrecipitationFlux: constGrid(g, testFlux(5)),
		VarAirTemperature:    temp,
	}

	transfersOut, _, err := c.Run(86400, nil, inputs, states)
	if err != nil {
		t.Fatal(err)
	}

	liquid, err := FluxToDepth(transfersOut[VarThroughfallAndSnowMelt], DefaultRhoWater, 86400)
	if err != nil {
		t.Fatal(err)
	}
	snowNew, err := states.Get(VarSnowStore, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := range snowNew.Elements {
		in := snowOld.Elements[i] + 5
		out := snowNew.Elements[i] + liquid.Elements[i]
		if different(in, out, testTolerance) {
			t.Errorf("cell %d: water in is %g mm but water out is %g mm", i, in, out)
		}
		if snowNew.Elements[i] < 0 {
			t.Errorf("cell %d: snow store is negative: %g mm", i, snowNew.Elements[i])
		}
	}
}

// Test that precipitation at exactly the threshold temperature counts as
// snow, and that the melt rate there is zero.
func TestSnowThresholdBoundary(t *testing.T) {
	g := testGrid(t)
	c := NewSnowLayer(0, 2)
	states := NewStateStore(g.Shape())
	if err := c.Initialise(states); err != nil {
		t.Fatal(err)
	}

	inputs := ArraySet{
		VarPrecipitationFlux: constGrid(g, testFlux(8)),
		VarAirTemperature:    constGrid(g, 273.15), // exactly 0 °C
	}
	transfersOut, _, err := c.Run(86400, nil, inputs, states)
	if err != nil {
		t.Fatal(err)
	}

	liquid := transfersOut[VarThroughfallAndSnowMelt]
	for i, v := range liquid.Elements {
		if absDifferent(v, 0, testTolerance) {
			t.Errorf("cell %d: liquid flux is %g at the threshold, want 0", i, v)
		}
	}
	snowNew, err := states.Get(VarSnowStore, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range snowNew.Elements {
		if different(v, 8, testTolerance) {
			t.Errorf("cell %d: snow store is %g mm, want 8", i, v)
		}
	}
}

func TestSnowInvalidTimestep(t *testing.T) {
	g := testGrid(t)
	c := NewSnowLayer(0, 2)
	states := NewStateStore(g.Shape())
	if err := c.Initialise(states); err != nil {
		t.Fatal(err)
	}
	inputs := ArraySet{
		VarPrecipitationFlux: constGrid(g, 0),
		VarAirTemperature:    constGrid(g, 273.15),
	}
	if _, _, err := c.Run(0, nil, inputs, states); err == nil {
		t.Error("expected an error for a zero timestep")
	}
}

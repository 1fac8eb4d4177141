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
	"io"
	"testing"
)

func TestNextDataArrays(t *testing.T) {
	g := testGrid(t)
	nd := NextDataArrays(constGrid(g, 1), constGrid(g, 2))

	for want := 1.; want <= 2; want++ {
		arr, err := nd()
		if err != nil {
			t.Fatal(err)
		}
		if arr.Elements[0] != want {
			t.Errorf("record has value %g, want %g", arr.Elements[0], want)
		}
	}
	if _, err := nd(); err != io.EOF {
		t.Errorf("got %v after the last record, want io.EOF", err)
	}
}

func TestForcingNext(t *testing.T) {
	g := testGrid(t)
	f := &Forcing{
		PrecipitationFlux:               NextDataConstant(constGrid(g, testFlux(10))),
		AirTemperature:                  NextDataConstant(constGrid(g, 278.15)),
		PotentialEvapotranspirationFlux: NextDataConstant(constGrid(g, testFlux(1))),
	}
	inputs, err := f.next()
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{VarPrecipitationFlux, VarAirTemperature, VarPotentialEvapotranspiration} {
		if _, err := inputs.get(name); err != nil {
			t.Error(err)
		}
	}
}

func TestForcingMissingSource(t *testing.T) {
	g := testGrid(t)
	f := &Forcing{
		PrecipitationFlux: NextDataConstant(constGrid(g, 0)),
		// AirTemperature deliberately left nil.
		PotentialEvapotranspirationFlux: NextDataConstant(constGrid(g, 0)),
	}
	if _, err := f.next(); err == nil {
		t.Error("expected an error for a forcing variable with no data source")
	}
}

func TestForcingEOFPropagates(t *testing.T) {
	g := testGrid(t)
	f := &Forcing{
		PrecipitationFlux:               NextDataArrays(constGrid(g, 0)),
		AirTemperature:                  NextDataConstant(constGrid(g, 273.15)),
		PotentialEvapotranspirationFlux: NextDataConstant(constGrid(g, 0)),
	}
	if _, err := f.next(); err != nil {
		t.Fatal(err)
	}
	if _, err := f.next(); err != io.EOF {
		t.Errorf("got %v when the shortest variable ran out, want io.EOF", err)
	}
}

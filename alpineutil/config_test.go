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

package alpineutil

import "testing"

func TestGridConfigDefaults(t *testing.T) {
	grid, err := gridConfig(Cfg)
	if err != nil {
		t.Fatal(err)
	}
	if grid.Nx != 10 || grid.Ny != 10 {
		t.Errorf("default grid is %d×%d, want 10×10", grid.Nx, grid.Ny)
	}
	if grid.Dx != 1000 || grid.Dy != 1000 {
		t.Errorf("default cell size is %g×%g, want 1000×1000", grid.Dx, grid.Dy)
	}
}

func TestGridConfigInvalid(t *testing.T) {
	Cfg.Set("Grid.Nx", -1)
	defer Cfg.Set("Grid.Nx", 10)
	if _, err := gridConfig(Cfg); err == nil {
		t.Error("expected an error for a negative cell count")
	}
}

func TestCheckLogFile(t *testing.T) {
	if got := checkLogFile("", "out/results.shp"); got != "out/results.log" {
		t.Errorf("default log file is %q, want out/results.log", got)
	}
	if got := checkLogFile("my.log", "out/results.shp"); got != "my.log" {
		t.Errorf("explicit log file was replaced with %q", got)
	}
}

func TestCheckOutputVarsEmpty(t *testing.T) {
	if _, err := checkOutputVars(nil); err == nil {
		t.Error("expected an error for empty output variables")
	}
}

func TestGetStringMapString(t *testing.T) {
	// Defaults are held as a JSON string because they are bound to a
	// command-line flag.
	vars := GetStringMapString("OutputVariables", Cfg)
	if vars["SoilStore"] != "soil_store" {
		t.Errorf("OutputVariables[SoilStore] = %q, want soil_store", vars["SoilStore"])
	}
}

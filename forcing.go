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
	"fmt"
	"io"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// NextData is a cursor over successive timesteps of one gridded forcing
// variable. It returns io.EOF after the last record.
type NextData func() (*sparse.DenseArray, error)

// Forcing supplies the externally computed driving variables, one record
// per timestep. The model performs no interpolation: record k drives
// timestep k.
type Forcing struct {
	PrecipitationFlux               NextData // [kg m⁻² s⁻¹]
	AirTemperature                  NextData // [K]
	PotentialEvapotranspirationFlux NextData // [kg m⁻² s⁻¹]
}

// next gathers one record of every forcing variable. It returns io.EOF
// when any variable is exhausted.
func (f *Forcing) next() (ArraySet, error) {
	cursors := []struct {
		name string
		nd   NextData
	}{
		{VarPrecipitationFlux, f.PrecipitationFlux},
		{VarAirTemperature, f.AirTemperature},
		{VarPotentialEvapotranspiration, f.PotentialEvapotranspirationFlux},
	}
	o := make(ArraySet, len(cursors))
	for _, c := range cursors {
		if c.nd == nil {
			return nil, fmt.Errorf("alpine: forcing variable %q has no data source", c.name)
		}
		arr, err := c.nd()
		if err != nil {
			return nil, err
		}
		o[c.name] = arr
	}
	return o, nil
}

// NextDataArrays returns a cursor over a fixed sequence of grids.
func NextDataArrays(recs ...*sparse.DenseArray) NextData {
	var i int
	return func() (*sparse.DenseArray, error) {
		if i >= len(recs) {
			return nil, io.EOF
		}
		r := recs[i]
		i++
		return r, nil
	}
}

// NextDataConstant returns a cursor that supplies the same grid every
// timestep and never runs out; the run length must then be governed by a
// step limit.
func NextDataConstant(rec *sparse.DenseArray) NextData {
	return func() (*sparse.DenseArray, error) { return rec, nil }
}

// NextDataNCF returns a cursor over the successive records of variable
// varName in the NetCDF file at path. The variable's leading dimension
// must be time, with one record per model timestep.
func NextDataNCF(path, varName string) (NextData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("alpine: opening forcing file: %v", err)
	}
	ff, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("alpine: reading forcing file %s: %v", path, err)
	}
	dims := ff.Header.Lengths(varName)
	if len(dims) < 2 {
		f.Close()
		return nil, fmt.Errorf("alpine: forcing variable %s in %s must have a time dimension plus grid dimensions but has shape %v",
			varName, path, dims)
	}
	nrec := dims[0]
	var i int
	return func() (*sparse.DenseArray, error) {
		if i >= nrec {
			f.Close()
			return nil, io.EOF
		}
		data, err := readNCF(ff, varName, i)
		if err != nil {
			return nil, err
		}
		i++
		return data, nil
	}, nil
}

// readNCF reads record index of variable varName out of NetCDF file ff.
func readNCF(ff *cdf.File, varName string, index int) (*sparse.DenseArray, error) {
	dims := ff.Header.Lengths(varName)
	if len(dims) == 0 {
		return nil, fmt.Errorf("alpine: read netcdf: variable %v not in file", varName)
	}
	dims = dims[1:]
	nread := 1
	for _, dim := range dims {
		nread *= dim
	}
	start, end := make([]int, len(dims)+1), make([]int, len(dims)+1)
	start[0], end[0] = index, index+1
	r := ff.Reader(varName, start, end)
	buf := r.Zero(nread)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("alpine: read netcdf variable %s: %v", varName, err)
	}
	data := sparse.ZerosDense(dims...)
	switch v := buf.(type) {
	case []float32:
		for i, val := range v {
			data.Elements[i] = float64(val)
		}
	case []float64:
		copy(data.Elements, v)
	default:
		return nil, fmt.Errorf("alpine: read netcdf variable %s: unsupported data type %T", varName, buf)
	}
	return data, nil
}

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
	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// GridDef describes the regular computational grid. Every per-cell
// quantity in the model is a sparse.DenseArray with shape [Ny, Nx].
type GridDef struct {
	Nx, Ny int     // number of cells in the x and y directions
	X0, Y0 float64 // lower-left corner of the grid
	Dx, Dy float64 // cell edge lengths [m]
}

// NewGridDef creates a grid definition, checking that the cell counts
// and sizes are physically meaningful.
func NewGridDef(nx, ny int, x0, y0, dx, dy float64) (*GridDef, error) {
	if nx <= 0 || ny <= 0 {
		return nil, domainErrorf("NewGridDef", "grid must have positive cell counts but is %d×%d", nx, ny)
	}
	if dx <= 0 || dy <= 0 {
		return nil, domainErrorf("NewGridDef", "grid cells must have positive size but are %g×%g", dx, dy)
	}
	return &GridDef{Nx: nx, Ny: ny, X0: x0, Y0: y0, Dx: dx, Dy: dy}, nil
}

// Shape returns the array shape corresponding to the grid.
func (g *GridDef) Shape() []int { return []int{g.Ny, g.Nx} }

// Zeros returns a zero-valued array with one element per grid cell.
func (g *GridDef) Zeros() *sparse.DenseArray {
	return sparse.ZerosDense(g.Shape()...)
}

// Cells returns the cell polygons in row-major order, matching the
// element order of the model arrays.
func (g *GridDef) Cells() []geom.Polygonal {
	o := make([]geom.Polygonal, 0, g.Nx*g.Ny)
	for j := 0; j < g.Ny; j++ {
		for i := 0; i < g.Nx; i++ {
			x := g.X0 + float64(i)*g.Dx
			y := g.Y0 + float64(j)*g.Dy
			o = append(o, geom.Polygon{{
				{X: x, Y: y},
				{X: x + g.Dx, Y: y},
				{X: x + g.Dx, Y: y + g.Dy},
				{X: x, Y: y + g.Dy},
				{X: x, Y: y},
			}})
		}
	}
	return o
}

// storageFloorTolerance bounds how far floating-point rounding may drive
// a store below zero before the value is treated as a model error rather
// than an artifact [mm].
const storageFloorTolerance = 1e-9

// floorStorage clamps marginally negative store values to zero. Values
// below -tol cannot be rounding artifacts and indicate a broken mass
// balance, so they fail with a DomainError.
func floorStorage(s *sparse.DenseArray, name string, tol float64) error {
	for i, v := range s.Elements {
		if v < 0 {
			if v < -tol {
				return domainErrorf("floorStorage", "%s is %g mm at cell %d, beyond rounding tolerance %g", name, v, i, tol)
			}
			s.Elements[i] = 0
		}
	}
	return nil
}

// zeros returns a zero-valued array of the given shape.
func zeros(shape []int) *sparse.DenseArray {
	return sparse.ZerosDense(shape...)
}

// Elementwise grid operations. Per-cell branches in the model science are
// expressed as whole-grid selections rather than scalar control flow.

// where returns an array whose elements are taken from vals where
// pred(cond[i]) is true and from alt otherwise. A nil alt selects zero.
func where(cond *sparse.DenseArray, pred func(float64) bool, vals, alt *sparse.DenseArray) *sparse.DenseArray {
	o := sparse.ZerosDense(cond.Shape...)
	for i, c := range cond.Elements {
		if pred(c) {
			o.Elements[i] = vals.Elements[i]
		} else if alt != nil {
			o.Elements[i] = alt.Elements[i]
		}
	}
	return o
}

// apply returns a new array with f applied to every element of a.
func apply(a *sparse.DenseArray, f func(float64) float64) *sparse.DenseArray {
	o := a.Copy()
	for i, v := range a.Elements {
		o.Elements[i] = f(v)
	}
	return o
}

// zipWith returns a new array with f applied elementwise to a and b.
func zipWith(a, b *sparse.DenseArray, f func(a, b float64) float64) *sparse.DenseArray {
	o := a.Copy()
	for i, v := range a.Elements {
		o.Elements[i] = f(v, b.Elements[i])
	}
	return o
}

func addDense(a, b *sparse.DenseArray) *sparse.DenseArray {
	return zipWith(a, b, func(x, y float64) float64 { return x + y })
}

func subDense(a, b *sparse.DenseArray) *sparse.DenseArray {
	return zipWith(a, b, func(x, y float64) float64 { return x - y })
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

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

// Package alpine implements the Alpine1 conceptual rainfall-runoff model
// (Eder et al., 2003; https://doi.org/10.1002/hyp.1325) as a gridded,
// component-based simulation.
//
// Alpine1 is a bucket-type model originally developed for use in the
// Austrian Alps. It couples a degree-day snow accumulation and melt store
// to a soil moisture store with evaporation, saturation-excess surface
// runoff, and linear baseflow drainage, following the formulation in the
// MARRMoT model database (Knoben et al., 2019;
// https://doi.org/10.5194/gmd-12-2463-2019).
//
// The model advances with an explicit Euler step. Every flux leaving a
// store is limited by the water actually available: snowmelt is capped at
// the snow store contents, and when the competing soil outflows would
// together overdraw the soil store they are rescaled in proportion to
// their unconstrained magnitudes so that mass is conserved and storage
// never goes negative.
//
// Components exchange water as mass flux densities [kg m⁻² s⁻¹] and
// compute internally in depth units [mm]; conversion happens at the
// component boundary. Per-cell values are held in sparse.DenseArray
// grids and all per-cell branching is expressed as elementwise selection
// across the whole grid.
package alpine

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
	"time"

	"gonum.org/v1/gonum/floats"
)

// InitComponents returns a function that checks the model configuration
// and wiring and initialises every component's state. It must run before
// the first timestep.
func InitComponents() DomainManipulator {
	return func(d *Alpine) error {
		if d.Dt <= 0 {
			return domainErrorf("InitComponents", "timestep must be positive but is %g s", d.Dt)
		}
		if d.Grid == nil {
			return fmt.Errorf("alpine: model has no grid definition")
		}
		if len(d.Components) == 0 {
			return fmt.Errorf("alpine: model has no components")
		}
		if d.Forcing == nil {
			return fmt.Errorf("alpine: model has no forcing data")
		}
		if err := d.checkWiring(); err != nil {
			return err
		}
		if d.States == nil {
			d.States = NewStateStore(d.Grid.Shape())
		}
		for _, c := range d.Components {
			for _, st := range c.States() {
				d.States.Declare(st.Name, st.Units)
			}
			if err := c.Initialise(d.States); err != nil {
				return err
			}
		}
		return nil
	}
}

// RunComponents returns a function that advances every component by one
// timestep, in dependency order, routing the transfers out of earlier
// components into later ones. The simulation finishes when the forcing
// data runs out.
func RunComponents() DomainManipulator {
	return func(d *Alpine) error {
		inputs, err := d.Forcing.next()
		if err == io.EOF {
			d.Done = true
			return nil
		}
		if err != nil {
			return err
		}
		transfers := make(ArraySet)
		outputs := make(ArraySet)
		for _, c := range d.Components {
			transfersIn := make(ArraySet)
			for _, in := range c.Inwards() {
				arr, err := transfers.get(in.Name)
				if err != nil {
					return err
				}
				transfersIn[in.Name] = arr
			}
			componentIn := make(ArraySet)
			for _, in := range c.Inputs() {
				arr, err := inputs.get(in.Name)
				if err != nil {
					return err
				}
				componentIn[in.Name] = arr
			}
			transfersOut, out, err := c.Run(d.Dt, transfersIn, componentIn, d.States)
			if err != nil {
				return err
			}
			for name, arr := range transfersOut {
				if _, ok := transfers[name]; ok {
					return fmt.Errorf("alpine: transfer %q produced twice in one step", name)
				}
				transfers[name] = arr
			}
			for name, arr := range out {
				outputs[name] = arr
			}
		}
		if err := d.States.advance(); err != nil {
			return err
		}
		d.inputs, d.transfers, d.outputs = inputs, transfers, outputs
		d.step++
		return nil
	}
}

// FinaliseComponents returns a function that runs every component's
// Finalise hook; the state stores keep their last-updated values for
// persistence.
func FinaliseComponents() DomainManipulator {
	return func(d *Alpine) error {
		for _, c := range d.Components {
			if err := c.Finalise(d.States); err != nil {
				return err
			}
		}
		return nil
	}
}

// Steps returns a function that sets the simulation as finished after
// numSteps timesteps have completed. If numSteps < 1, the run length is
// governed by the forcing data alone.
func Steps(numSteps int) DomainManipulator {
	return func(d *Alpine) error {
		if numSteps > 0 && d.step >= numSteps {
			d.Done = true
		}
		return nil
	}
}

// Log writes simulation status messages to w.
func Log(w io.Writer) DomainManipulator {
	startTime := time.Now()
	timeStepTime := time.Now()

	return func(d *Alpine) error {
		fmt.Fprintf(w, "Step %-4d  walltime=%6.3gh  Δwalltime=%4.2gs  "+
			"timestep=%2.0fs  day=%.3g\n",
			d.step, time.Since(startTime).Hours(),
			time.Since(timeStepTime).Seconds(), d.Dt,
			float64(d.step)*d.Dt/secondsPerDay)
		timeStepTime = time.Now()
		return nil
	}
}

// budgetTolerance is the allowed water budget closure error per grid
// cell and step [mm].
const budgetTolerance = 1e-8

// WaterBudget audits the model-wide water balance: over every step the
// change in total storage must equal precipitation minus the fluxes
// leaving the model (evapotranspiration, surface runoff, and baseflow).
// Transfers between components cancel and do not appear in the budget.
type WaterBudget struct {
	// RhoWater is the water density used to convert boundary fluxes
	// back to depths [kg m⁻³].
	RhoWater float64

	lastTotal float64
	lastStep  int
}

// NewWaterBudget creates a water budget auditor.
func NewWaterBudget(rhoWater float64) *WaterBudget {
	return &WaterBudget{RhoWater: rhoWater}
}

// Snapshot returns a function that records the total storage at the
// start of the run. It belongs in InitFuncs, after InitComponents.
func (b *WaterBudget) Snapshot() DomainManipulator {
	return func(d *Alpine) error {
		total, err := totalStorage(d)
		if err != nil {
			return err
		}
		b.lastTotal = total
		b.lastStep = d.step
		return nil
	}
}

// Check returns a function that verifies budget closure for the step
// just completed, writing one summary line per step to w if w is not
// nil. It belongs in RunFuncs, after RunComponents.
func (b *WaterBudget) Check(w io.Writer) DomainManipulator {
	return func(d *Alpine) error {
		if d.step == b.lastStep {
			// No step has completed since the last audit. This happens
			// when the forcing runs out.
			return nil
		}
		total, err := totalStorage(d)
		if err != nil {
			return err
		}
		in, err := d.depthSum(d.inputs, VarPrecipitationFlux, b.RhoWater)
		if err != nil {
			return err
		}
		var out float64
		for _, name := range []string{VarActualEvapotranspiration,
			VarSurfaceRunoffToRivers, VarGroundwaterToRivers} {
			v, err := d.depthSum(arraySetFor(d, name), name, b.RhoWater)
			if err != nil {
				return err
			}
			out += v
		}
		bias := total - b.lastTotal - (in - out)
		ncells := float64(d.Grid.Nx * d.Grid.Ny)
		if bias > budgetTolerance*ncells || bias < -budgetTolerance*ncells {
			return fmt.Errorf("alpine: water budget closure error of %g mm at step %d", bias, d.step)
		}
		if w != nil {
			fmt.Fprintf(w, "Step %-4d  storage=%10.4g mm  in=%10.4g mm  out=%10.4g mm  bias=%10.3g mm\n",
				d.step, total, in, out, bias)
		}
		b.lastTotal = total
		b.lastStep = d.step
		return nil
	}
}

// totalStorage sums the contents of all state stores [mm·cells].
func totalStorage(d *Alpine) (float64, error) {
	var total float64
	for name, st := range d.States.Stores {
		if st.Prev == nil {
			return 0, fmt.Errorf("alpine: state %q has no value to audit", name)
		}
		total += floats.Sum(st.Prev.Elements)
	}
	return total, nil
}

// depthSum converts the named flux variable to a step depth and sums it
// over the grid [mm·cells].
func (d *Alpine) depthSum(set ArraySet, name string, rhoWater float64) (float64, error) {
	arr, err := set.get(name)
	if err != nil {
		return 0, err
	}
	depth, err := FluxToDepth(arr, rhoWater, d.Dt)
	if err != nil {
		return 0, err
	}
	return floats.Sum(depth.Elements), nil
}

func arraySetFor(d *Alpine, name string) ArraySet {
	if _, ok := d.outputs[name]; ok {
		return d.outputs
	}
	return d.transfers
}

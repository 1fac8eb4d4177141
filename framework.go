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

	"github.com/ctessum/sparse"
	"github.com/ctessum/unit"
)

// Version is the version of this software.
const Version = "0.1.0"

// Names of the variables exchanged across component boundaries.
const (
	VarPrecipitationFlux           = "precipitation_flux"
	VarAirTemperature              = "air_temperature"
	VarPotentialEvapotranspiration = "potential_water_evapotranspiration_flux"
	VarThroughfallAndSnowMelt      = "canopy_liquid_throughfall_and_snow_melt_flux"
	VarSurfaceRunoffToRivers       = "surface_runoff_flux_delivered_to_rivers"
	VarGroundwaterToRivers         = "net_groundwater_flux_to_rivers"
	VarActualEvapotranspiration    = "actual_water_evapotranspiration_flux"
	VarSnowStore                   = "snow_store"
	VarSoilStore                   = "soil_store"
)

// ArraySet is a set of gridded variables keyed by name.
type ArraySet map[string]*sparse.DenseArray

// get returns the named array, or an error if it is missing.
func (a ArraySet) get(name string) (*sparse.DenseArray, error) {
	arr, ok := a[name]
	if !ok || arr == nil {
		return nil, fmt.Errorf("alpine: missing required variable %q", name)
	}
	return arr, nil
}

// VarInfo describes one declared variable of a component boundary.
type VarInfo struct {
	Name        string
	Units       string          // physical unit string, e.g. "kg m-2 s-1"
	Dimensions  unit.Dimensions // SI dimensions of the unit
	Description string
}

// Component is the contract between the model driver and one process
// component, following the initialise-run-finalise paradigm. Components
// are pure: Run must be a deterministic function of the previous state,
// the current inputs, and the component parameters.
type Component interface {
	// Name identifies the component in logs and error messages.
	Name() string

	// Inwards lists the transfers this component consumes from other
	// components, and Outwards the transfers it produces for them.
	Inwards() []VarInfo
	Outwards() []VarInfo

	// Inputs lists the externally supplied driving variables, and
	// Outputs the component's own declared result variables.
	Inputs() []VarInfo
	Outputs() []VarInfo

	// States lists the persistent stores owned by this component.
	States() []VarInfo

	// Initialise seeds the previous-timestep value of each owned store,
	// but only where no prior (restart) value was already supplied.
	Initialise(states *StateStore) error

	// Run advances the component by one timestep of dtSeconds and
	// returns the transfers destined for other components and the
	// component's own declared outputs, all as mass flux densities.
	Run(dtSeconds float64, transfersIn, inputs ArraySet, states *StateStore) (transfersOut, outputs ArraySet, err error)

	// Finalise is called once after the last timestep.
	Finalise(states *StateStore) error
}

// State holds one persistent store. Prev is the value at relative
// timestep -1 and Cur the value at relative timestep 0; Cur becomes Prev
// when the model advances to the next step.
type State struct {
	Units string
	Prev  *sparse.DenseArray
	Cur   *sparse.DenseArray
}

// StateStore holds the persistent stores of all model components,
// keyed by name.
type StateStore struct {
	Shape  []int
	Stores map[string]*State
}

// NewStateStore creates an empty state store for grids of the given shape.
func NewStateStore(shape []int) *StateStore {
	return &StateStore{Shape: shape, Stores: make(map[string]*State)}
}

// Declare registers a store if it does not already exist. Declaring a
// store does not seed a value; a freshly declared store is uninitialised.
func (s *StateStore) Declare(name, units string) {
	if _, ok := s.Stores[name]; !ok {
		s.Stores[name] = &State{Units: units}
	}
}

// Initialised reports whether the store already holds a previous-timestep
// value, either seeded during initialisation or supplied by a restart.
func (s *StateStore) Initialised(name string) bool {
	st, ok := s.Stores[name]
	return ok && st.Prev != nil
}

func (s *StateStore) store(name string) (*State, error) {
	st, ok := s.Stores[name]
	if !ok {
		return nil, fmt.Errorf("alpine: state %q has not been declared", name)
	}
	return st, nil
}

// Get returns the value of the named store at the given relative timestep
// offset: -1 is the previous step's result and 0 is the current step's.
func (s *StateStore) Get(name string, offset int) (*sparse.DenseArray, error) {
	st, err := s.store(name)
	if err != nil {
		return nil, err
	}
	switch offset {
	case -1:
		if st.Prev == nil {
			return nil, fmt.Errorf("alpine: state %q has no value at timestep -1", name)
		}
		return st.Prev, nil
	case 0:
		if st.Cur == nil {
			return nil, fmt.Errorf("alpine: state %q has no value at timestep 0", name)
		}
		return st.Cur, nil
	default:
		return nil, fmt.Errorf("alpine: state %q: invalid timestep offset %d", name, offset)
	}
}

// Set stores a value for the named store at the given relative timestep
// offset. Setting at -1 during initialisation seeds a cold-start value.
func (s *StateStore) Set(name string, offset int, v *sparse.DenseArray) error {
	st, err := s.store(name)
	if err != nil {
		return err
	}
	switch offset {
	case -1:
		st.Prev = v
	case 0:
		st.Cur = v
	default:
		return fmt.Errorf("alpine: state %q: invalid timestep offset %d", name, offset)
	}
	return nil
}

// advance makes each store's current value its previous value, preparing
// the next timestep.
func (s *StateStore) advance() error {
	for name, st := range s.Stores {
		if st.Cur == nil {
			return fmt.Errorf("alpine: state %q was not updated during the step", name)
		}
		st.Prev = st.Cur
		st.Cur = nil
	}
	return nil
}

// DomainManipulator is a class of functions that operate on the model as
// a whole during initialisation, each timestep, or cleanup.
type DomainManipulator func(d *Alpine) error

// Alpine is the state of a model run. Components are executed in slice
// order each timestep, with the transfers out of earlier components
// available as transfers in to later ones.
type Alpine struct {
	// InitFuncs are functions to be run in order at the beginning of the
	// simulation.
	InitFuncs []DomainManipulator

	// RunFuncs are functions to be run in order during each timestep.
	RunFuncs []DomainManipulator

	// CleanupFuncs are functions to be run in order at the end of the
	// simulation.
	CleanupFuncs []DomainManipulator

	// Done specifies whether the simulation is finished.
	Done bool

	// Dt is the timestep duration [s], constant for the run.
	Dt float64

	Grid       *GridDef
	Components []Component
	Forcing    *Forcing
	States     *StateStore

	step int

	// Variables of the most recent completed step.
	inputs    ArraySet
	transfers ArraySet
	outputs   ArraySet
}

// Init initializes the simulation by running d.InitFuncs.
func (d *Alpine) Init() error {
	for _, f := range d.InitFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}

// Run carries out the simulation by running d.RunFuncs until d.Done is true.
func (d *Alpine) Run() error {
	for !d.Done {
		for _, f := range d.RunFuncs {
			if err := f(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// Cleanup finishes the simulation by running d.CleanupFuncs.
func (d *Alpine) Cleanup() error {
	for _, f := range d.CleanupFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}

// Step returns the number of completed timesteps.
func (d *Alpine) Step() int { return d.step }

// checkWiring verifies that every transfer a component consumes is
// produced by an earlier component with matching unit dimensions.
func (d *Alpine) checkWiring() error {
	avail := make(map[string]unit.Dimensions)
	for _, c := range d.Components {
		for _, in := range c.Inwards() {
			dims, ok := avail[in.Name]
			if !ok {
				return fmt.Errorf("alpine: component %s consumes transfer %q, which no earlier component produces",
					c.Name(), in.Name)
			}
			if !dims.Matches(in.Dimensions) {
				return fmt.Errorf("alpine: transfer %q: unit dimensions mismatch between producer and component %s",
					in.Name, c.Name())
			}
		}
		for _, out := range c.Outwards() {
			if _, ok := avail[out.Name]; ok {
				return fmt.Errorf("alpine: transfer %q is produced by more than one component", out.Name)
			}
			avail[out.Name] = out.Dimensions
		}
	}
	return nil
}

// Results returns the most recent values of the named model variables as
// flat per-cell slices in row-major order. Valid names are declared
// component outputs, transfers, inputs, and state stores.
func (d *Alpine) Results(vars ...string) (map[string][]float64, error) {
	o := make(map[string][]float64, len(vars))
	for _, v := range vars {
		arr, err := d.variable(v)
		if err != nil {
			return nil, err
		}
		vals := make([]float64, len(arr.Elements))
		copy(vals, arr.Elements)
		o[v] = vals
	}
	return o, nil
}

func (d *Alpine) variable(name string) (*sparse.DenseArray, error) {
	for _, set := range []ArraySet{d.outputs, d.transfers, d.inputs} {
		if arr, ok := set[name]; ok {
			return arr, nil
		}
	}
	if d.States != nil {
		if st, ok := d.States.Stores[name]; ok && st.Prev != nil {
			// After a completed step the advanced Prev slot holds the
			// step's result.
			return st.Prev, nil
		}
	}
	return nil, fmt.Errorf("alpine: unknown model variable %q", name)
}

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
	"encoding/gob"
	"fmt"
	"io"

	"github.com/ctessum/sparse"
)

// savedState is the serialized form of one store. DenseArray has
// unexported fields, so the elements and shape are saved directly.
type savedState struct {
	Units    string
	Shape    []int
	Elements []float64
}

// savedRun is the serialized form of a model checkpoint.
type savedRun struct {
	Version string
	Step    int
	Shape   []int
	States  map[string]savedState
}

// Save returns a function that saves the model stores to a gob stream
// (format description at https://golang.org/pkg/encoding/gob/). It
// belongs in CleanupFuncs, after FinaliseComponents.
func Save(w io.Writer) DomainManipulator {
	return func(d *Alpine) error {
		if d.States == nil {
			return fmt.Errorf("alpine.Alpine.Save: no state to save")
		}
		run := savedRun{
			Version: Version,
			Step:    d.step,
			Shape:   d.States.Shape,
			States:  make(map[string]savedState, len(d.States.Stores)),
		}
		for name, st := range d.States.Stores {
			if st.Prev == nil {
				return fmt.Errorf("alpine.Alpine.Save: state %q has no value", name)
			}
			run.States[name] = savedState{
				Units:    st.Units,
				Shape:    st.Prev.Shape,
				Elements: st.Prev.Elements,
			}
		}
		if err := gob.NewEncoder(w).Encode(run); err != nil {
			return fmt.Errorf("alpine.Alpine.Save: %v", err)
		}
		return nil
	}
}

// Load returns a function that loads previously Saved stores into the
// model, so that the run continues from the checkpoint instead of from
// empty stores. It belongs in InitFuncs, before InitComponents, so that
// initialisation sees the stores as already seeded.
func Load(r io.Reader) DomainManipulator {
	return func(d *Alpine) error {
		var run savedRun
		if err := gob.NewDecoder(r).Decode(&run); err != nil {
			return fmt.Errorf("alpine.Alpine.Load: %v", err)
		}
		states := NewStateStore(run.Shape)
		for name, sv := range run.States {
			arr := sparse.ZerosDense(sv.Shape...)
			if len(sv.Elements) != len(arr.Elements) {
				return fmt.Errorf("alpine.Alpine.Load: state %q has %d elements but shape %v",
					name, len(sv.Elements), sv.Shape)
			}
			copy(arr.Elements, sv.Elements)
			states.Declare(name, sv.Units)
			if err := states.Set(name, -1, arr); err != nil {
				return err
			}
		}
		d.States = states
		return nil
	}
}

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
	"bytes"
	"testing"
)

// Test that a run checkpointed after two steps and resumed for two more
// arrives at the same stores as an uninterrupted four-step run.
func TestSaveLoadResume(t *testing.T) {
	var buf bytes.Buffer

	first := testModel(t, 2)
	first.CleanupFuncs = append(first.CleanupFuncs, Save(&buf))
	if err := first.Init(); err != nil {
		t.Fatal(err)
	}
	if err := first.Run(); err != nil {
		t.Fatal(err)
	}
	if err := first.Cleanup(); err != nil {
		t.Fatal(err)
	}

	resumed := testModel(t, 2)
	resumed.InitFuncs = append([]DomainManipulator{Load(&buf)}, resumed.InitFuncs...)
	if err := resumed.Init(); err != nil {
		t.Fatal(err)
	}
	if err := resumed.Run(); err != nil {
		t.Fatal(err)
	}

	straight := testModel(t, 4)
	if err := straight.Init(); err != nil {
		t.Fatal(err)
	}
	if err := straight.Run(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{VarSnowStore, VarSoilStore} {
		a, err := resumed.States.Get(name, -1)
		if err != nil {
			t.Fatal(err)
		}
		b, err := straight.States.Get(name, -1)
		if err != nil {
			t.Fatal(err)
		}
		for i := range a.Elements {
			if absDifferent(a.Elements[i], b.Elements[i], testTolerance) {
				t.Errorf("%s cell %d: resumed run has %g mm but uninterrupted run has %g mm",
					name, i, a.Elements[i], b.Elements[i])
			}
		}
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	d := testModel(t, 1)
	if err := Load(bytes.NewReader([]byte("not a checkpoint")))(d); err == nil {
		t.Error("expected an error decoding a malformed checkpoint")
	}
}

func TestSaveRequiresState(t *testing.T) {
	d := &Alpine{}
	var buf bytes.Buffer
	if err := Save(&buf)(d); err == nil {
		t.Error("expected an error saving a model with no state")
	}
}

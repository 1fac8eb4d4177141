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
	"math"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
)

// Outputter holds the configuration for retrieving and processing model
// results. Each output variable is either the name of a model variable
// or an expression combining model variables, evaluated cell by cell.
// Functions available in expressions are defined in NewOutputter.
type Outputter struct {
	fileName        string
	outputVariables map[string]string
	modelVariables  []string
	outputFunctions map[string]govaluate.ExpressionFunction
}

// NewOutputter initializes a new Outputter holder and adds a set of
// default output functions:
//
// 'exp(x)' applies the exponential function e^x.
//
// 'log(x)' applies the natural logarithm.
//
// 'min(x, y)' and 'max(x, y)' take the elementwise minimum and maximum
// of two variables.
func NewOutputter(fileName string, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	defaultOutputFuncs := map[string]govaluate.ExpressionFunction{
		"exp": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("alpine: got %d arguments for function 'exp', but needs 1", len(arg))
			}
			return (float64)(math.Exp(arg[0].(float64))), nil
		},
		"log": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("alpine: got %d arguments for function 'log', but needs 1", len(arg))
			}
			return (float64)(math.Log(arg[0].(float64))), nil
		},
		"min": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 2 {
				return nil, fmt.Errorf("alpine: got %d arguments for function 'min', but needs 2", len(arg))
			}
			return (float64)(math.Min(arg[0].(float64), arg[1].(float64))), nil
		},
		"max": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 2 {
				return nil, fmt.Errorf("alpine: got %d arguments for function 'max', but needs 2", len(arg))
			}
			return (float64)(math.Max(arg[0].(float64), arg[1].(float64))), nil
		},
	}

	for key, val := range outputFunctions {
		defaultOutputFuncs[key] = val
	}

	o := Outputter{
		fileName:        fileName,
		outputVariables: outputVariables,
		outputFunctions: defaultOutputFuncs,
	}

	if err := o.findModelVariables(); err != nil {
		return nil, err
	}
	return &o, nil
}

// findModelVariables identifies the unique model variables required to
// calculate the requested output variables.
func (o *Outputter) findModelVariables() error {
	o.modelVariables = make([]string, 0, len(o.outputVariables))
	seen := make(map[string]struct{})
	for key, val := range o.outputVariables {
		expression, err := govaluate.NewEvaluableExpressionWithFunctions(val, o.outputFunctions)
		if err != nil {
			return fmt.Errorf("alpine: output variable %s: %v", key, err)
		}
		for _, v := range expression.Vars() {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				o.modelVariables = append(o.modelVariables, v)
			}
		}
	}
	return nil
}

// OutputOptions returns the names of the model variables that can be
// requested for output.
func (d *Alpine) OutputOptions() []string {
	var names []string
	for _, c := range d.Components {
		for _, group := range [][]VarInfo{c.Outputs(), c.Outwards(), c.Inputs(), c.States()} {
			for _, v := range group {
				names = append(names, v.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// checkModelVars checks whether the model variables required to
// calculate the requested output variables exist in the model.
func (d *Alpine) checkModelVars(g ...string) error {
	options := make(map[string]struct{})
	for _, n := range d.OutputOptions() {
		options[n] = struct{}{}
	}
	for _, v := range g {
		if _, ok := options[v]; !ok {
			return fmt.Errorf("alpine: undefined variable name '%s'", v)
		}
	}
	return nil
}

// checkOutputNames checks (1) if any output variable names exceed 10
// characters and (2) if any output variable names include characters
// that are unsupported in shapefile field names.
func checkOutputNames(o map[string]string) error {
	for key := range o {
		long := len(key) > 10
		noCharError, err := regexp.MatchString("^[A-Za-z]\\w*$", key)
		if err != nil {
			panic(err)
		}
		if long && !noCharError {
			return fmt.Errorf("alpine: output variable name '%s' exceeds 10 characters and includes unsupported character(s)", key)
		} else if long {
			return fmt.Errorf("alpine: output variable name '%s' exceeds 10 characters", key)
		} else if !noCharError {
			return fmt.Errorf("alpine: output variable name '%s' includes unsupported characters", key)
		}
	}
	return nil
}

// CheckOutputVars returns a function that ensures the output variables
// can be calculated. It belongs in InitFuncs so that misconfiguration is
// caught before the simulation runs.
func (o *Outputter) CheckOutputVars() DomainManipulator {
	return func(d *Alpine) error {
		if err := d.checkModelVars(o.modelVariables...); err != nil {
			return err
		}
		return checkOutputNames(o.outputVariables)
	}
}

// Output returns a function that evaluates the output expressions
// against the final model results and writes them to a shapefile, one
// record per grid cell.
func (o *Outputter) Output() DomainManipulator {
	return func(d *Alpine) error {
		results, err := d.Results(o.modelVariables...)
		if err != nil {
			return err
		}
		ncells := d.Grid.Nx * d.Grid.Ny

		vars := make([]string, 0, len(o.outputVariables))
		for v := range o.outputVariables {
			vars = append(vars, v)
		}
		sort.Strings(vars)

		out := make(map[string][]float64, len(vars))
		params := make(map[string]interface{}, len(o.modelVariables))
		for _, v := range vars {
			expression, err := govaluate.NewEvaluableExpressionWithFunctions(o.outputVariables[v], o.outputFunctions)
			if err != nil {
				return fmt.Errorf("alpine: output variable %s: %v", v, err)
			}
			vals := make([]float64, ncells)
			for i := 0; i < ncells; i++ {
				for _, mv := range o.modelVariables {
					params[mv] = results[mv][i]
				}
				result, err := expression.Evaluate(params)
				if err != nil {
					return fmt.Errorf("alpine: evaluating output variable %s: %v", v, err)
				}
				vals[i] = result.(float64)
			}
			out[v] = vals
		}

		fields := make([]goshp.Field, len(vars))
		for i, v := range vars {
			fields[i] = goshp.FloatField(v, 14, 8)
		}

		// remove extension and replace it with .shp
		fileBase := strings.TrimSuffix(o.fileName, filepath.Ext(o.fileName))
		fileName := fileBase + ".shp"
		shape, err := shp.NewEncoderFromFields(fileName, goshp.POLYGON, fields...)
		if err != nil {
			return fmt.Errorf("error creating output shapefile: %v", err)
		}
		for i, c := range d.Grid.Cells() {
			outFields := make([]interface{}, len(vars))
			for j, v := range vars {
				outFields[j] = out[v][i]
			}
			if err := shape.EncodeFields(c, outFields...); err != nil {
				return fmt.Errorf("error writing output shapefile: %v", err)
			}
		}
		shape.Close()
		return nil
	}
}

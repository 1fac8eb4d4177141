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

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/alpine"
	"github.com/spf13/cobra"
)

// newLogger creates a logger writing to w.
func newLogger(w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.Out = w
	logger.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableSorting:  true,
	}
	return logger
}

// Run runs the model.
//
// CobraCommand is the cobra.Command instance where Run is called from.
//
// LogFile is the path to the desired logfile location.
//
// OutputFile is the path to the desired output shapefile location.
//
// OutputVariables specifies which model variables should be included in the
// output file.
//
// Grid describes the regular computational grid.
//
// ForcingFile is the path to the NetCDF forcing data, and precipVar,
// tempVar, and petVar name the variables within it, each with one record
// per model timestep.
//
// Dt is the timestep duration in seconds and numSteps the number of
// timesteps to simulate; if numSteps < 1, the simulation runs until the
// forcing data is exhausted.
//
// thresholdTemp, degreeDayFactor, maxStorage, and runoffCoeff are the
// tunable parameters of the snow and soil components, and rhoWater the
// water density used in all unit conversions.
//
// If checkBudget is true, the model-wide water balance is audited after
// every timestep.
//
// initialConditions, if non-blank, is a checkpoint from a previous run to
// resume from, and saveFile, if non-blank, is where the final stores
// should be checkpointed.
func Run(CobraCommand *cobra.Command, LogFile, OutputFile string, OutputVariables map[string]string,
	Grid *alpine.GridDef, ForcingFile, precipVar, tempVar, petVar string,
	Dt float64, numSteps int,
	thresholdTemp, degreeDayFactor, maxStorage, runoffCoeff, rhoWater float64,
	checkBudget bool, initialConditions, saveFile string) error {

	startTime := time.Now()

	logfile, err := os.Create(LogFile)
	if err != nil {
		return fmt.Errorf("alpine: problem creating log file: %v", err)
	}
	defer logfile.Close()
	mw := io.MultiWriter(CobraCommand.OutOrStdout(), logfile)
	logger := newLogger(mw)

	o, err := alpine.NewOutputter(OutputFile, OutputVariables, nil)
	if err != nil {
		return err
	}
	logger.Info("Parsing output variable expressions...")

	forcing := &alpine.Forcing{}
	cursors := []struct {
		varName string
		dst     *alpine.NextData
	}{
		{precipVar, &forcing.PrecipitationFlux},
		{tempVar, &forcing.AirTemperature},
		{petVar, &forcing.PotentialEvapotranspirationFlux},
	}
	for _, c := range cursors {
		nd, err := alpine.NextDataNCF(ForcingFile, c.varName)
		if err != nil {
			return err
		}
		*c.dst = nd
	}

	snow := alpine.NewSnowLayer(thresholdTemp, degreeDayFactor)
	snow.RhoWater = rhoWater
	soil := alpine.NewSoilMoisture(maxStorage, runoffCoeff)
	soil.RhoWater = rhoWater

	var initFuncs []alpine.DomainManipulator
	if initialConditions != "" {
		logger.Infof("Loading initial conditions from %s...", initialConditions)
		f, err := os.Open(initialConditions)
		if err != nil {
			return fmt.Errorf("alpine: problem opening initial conditions: %v", err)
		}
		defer f.Close()
		initFuncs = append(initFuncs, alpine.Load(f))
	}
	initFuncs = append(initFuncs,
		alpine.InitComponents(),
		o.CheckOutputVars(),
	)

	runFuncs := []alpine.DomainManipulator{alpine.RunComponents()}
	if checkBudget {
		budget := alpine.NewWaterBudget(rhoWater)
		initFuncs = append(initFuncs, budget.Snapshot())
		runFuncs = append(runFuncs, budget.Check(logfile))
	}
	runFuncs = append(runFuncs, alpine.Log(mw), alpine.Steps(numSteps))

	cleanupFuncs := []alpine.DomainManipulator{
		alpine.FinaliseComponents(),
		o.Output(),
	}
	if saveFile != "" {
		w, err := os.Create(saveFile)
		if err != nil {
			return fmt.Errorf("alpine: problem creating checkpoint file: %v", err)
		}
		defer w.Close()
		cleanupFuncs = append(cleanupFuncs, alpine.Save(w))
	}

	d := &alpine.Alpine{
		Dt:           Dt,
		Grid:         Grid,
		Components:   []alpine.Component{snow, soil},
		Forcing:      forcing,
		InitFuncs:    initFuncs,
		RunFuncs:     runFuncs,
		CleanupFuncs: cleanupFuncs,
	}

	logger.Info("Initializing model...")
	if err := d.Init(); err != nil {
		return fmt.Errorf("alpine: problem initializing model: %v", err)
	}
	logger.Info("Running simulation...")
	if err := d.Run(); err != nil {
		return fmt.Errorf("alpine: problem running simulation: %v", err)
	}
	if err := d.Cleanup(); err != nil {
		return fmt.Errorf("alpine: problem shutting down model: %v", err)
	}

	logger.Infof("Completed %d steps.", d.Step())
	logger.Infof("Elapsed time: %f hours", time.Since(startTime).Hours())
	return nil
}

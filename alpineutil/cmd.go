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
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/alpine"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to Alpine.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Steps",
			usage: `
              Steps specifies the number of timesteps to simulate. If < 1, the
              simulation runs until the forcing data is exhausted.`,
			shorthand:  "n",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Timestep",
			usage: `
              Timestep is the duration of one model timestep in seconds. It must
              match the record interval of the forcing data.`,
			defaultVal: 86400.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "RhoWater",
			usage: `
              RhoWater is the volumetric mass density of liquid water in kg m⁻³,
              used to convert between mass fluxes and water depths.`,
			defaultVal: 1000.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Grid.Nx",
			usage: `
              Grid.Nx specifies the number of grid cells in the X direction.`,
			defaultVal: 10,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Grid.Ny",
			usage: `
              Grid.Ny specifies the number of grid cells in the Y direction.`,
			defaultVal: 10,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Grid.Xo",
			usage: `
              Grid.Xo specifies the X coordinate of the lower-left corner of the
              model grid.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Grid.Yo",
			usage: `
              Grid.Yo specifies the Y coordinate of the lower-left corner of the
              model grid.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Grid.Dx",
			usage: `
              Grid.Dx specifies the X edge lengths of grid cells, in the units
              of the grid spatial projection--typically meters.`,
			defaultVal: 1000.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Grid.Dy",
			usage: `
              Grid.Dy specifies the Y edge lengths of grid cells, in the units
              of the grid spatial projection--typically meters.`,
			defaultVal: 1000.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Snow.ThresholdTemp",
			usage: `
              Snow.ThresholdTemp is the temperature in °C at or below which
              precipitation is assumed to fall as snow.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Snow.DegreeDayFactor",
			usage: `
              Snow.DegreeDayFactor is the rate at which accumulated snow melts
              per degree above the threshold temperature, in mm °C⁻¹ d⁻¹.`,
			defaultVal: 3.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Soil.MaxStorage",
			usage: `
              Soil.MaxStorage is the maximum storage of the soil moisture store
              in mm. Inflow to a full store leaves immediately as surface runoff.`,
			defaultVal: 150.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Soil.RunoffCoeff",
			usage: `
              Soil.RunoffCoeff is the linear baseflow drainage coefficient of
              the soil moisture store, in d⁻¹.`,
			defaultVal: 0.1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "ForcingFile",
			usage: `
              ForcingFile is the path to the NetCDF file holding the gridded
              forcing data, with one record per model timestep. The path can
              include environment variables.`,
			defaultVal: "alpine_forcing.ncf",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Forcing.PrecipitationVar",
			usage: `
              Forcing.PrecipitationVar is the name of the precipitation mass
              flux variable in ForcingFile, in kg m⁻² s⁻¹.`,
			defaultVal: "precipitation_flux",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Forcing.AirTemperatureVar",
			usage: `
              Forcing.AirTemperatureVar is the name of the air temperature
              variable in ForcingFile, in K.`,
			defaultVal: "air_temperature",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Forcing.EvapotranspirationVar",
			usage: `
              Forcing.EvapotranspirationVar is the name of the potential
              evapotranspiration mass flux variable in ForcingFile, in
              kg m⁻² s⁻¹.`,
			defaultVal: "potential_water_evapotranspiration_flux",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "InitialConditions",
			usage: `
              InitialConditions is the path to a checkpoint written by a
              previous run, to resume from. If blank, the simulation starts
              from empty stores. The path can include environment variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "SaveFile",
			usage: `
              SaveFile is the path where the final model stores should be
              checkpointed for a later resumed run. If blank, no checkpoint is
              written. The path can include environment variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path to the desired output shapefile location.
              It can include environment variables.`,
			defaultVal: "alpine_output.shp",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. It can include
              environment variables. If LogFile is left blank, the logfile will be
              saved in the same location as the OutputFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies which model variables should be included
              in the output file. Expressions combining variables are allowed.`,
			defaultVal: map[string]string{
				"SnowStore": "snow_store",
				"SoilStore": "soil_store",
				"Runoff":    "surface_runoff_flux_delivered_to_rivers + net_groundwater_flux_to_rivers",
				"Evap":      "actual_water_evapotranspiration_flux",
			},
			flagsets: []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "CheckBudget",
			usage: `
              CheckBudget specifies whether to audit the model-wide water
              balance after every timestep, failing the run if it does not
              close.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("ALPINE")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("alpine: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "alpine",
	Short: "A conceptual rainfall-runoff model.",
	Long: `Alpine is a gridded conceptual rainfall-runoff model with a degree-day
snow store and a single soil moisture bucket.

Refer to the subcommand documentation for configuration options and default
settings. Configuration can be changed by using a configuration file (and
providing the path to the file using the --config flag), by using command-line
arguments, or by setting environment variables in the format 'ALPINE_var'
where 'var' is the name of the variable to be set. Many configuration
variables are additionally allowed to contain environment variables within
them. Refer to https://github.com/spf13/viper for additional configuration
information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of Alpine.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("Alpine v%s\n", alpine.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the model.",
	Long: `run performs an Alpine simulation: it reads the gridded forcing data,
steps the snow and soil moisture stores through time, and writes the
results to a shapefile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		grid, err := gridConfig(Cfg)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		outputVars, err := checkOutputVars(GetStringMapString("OutputVariables", Cfg))
		if err != nil {
			return err
		}
		return Run(
			cmd,
			checkLogFile(Cfg.GetString("LogFile"), outputFile),
			outputFile,
			outputVars,
			grid,
			os.ExpandEnv(Cfg.GetString("ForcingFile")),
			Cfg.GetString("Forcing.PrecipitationVar"),
			Cfg.GetString("Forcing.AirTemperatureVar"),
			Cfg.GetString("Forcing.EvapotranspirationVar"),
			Cfg.GetFloat64("Timestep"),
			Cfg.GetInt("Steps"),
			Cfg.GetFloat64("Snow.ThresholdTemp"),
			Cfg.GetFloat64("Snow.DegreeDayFactor"),
			Cfg.GetFloat64("Soil.MaxStorage"),
			Cfg.GetFloat64("Soil.RunoffCoeff"),
			Cfg.GetFloat64("RhoWater"),
			Cfg.GetBool("CheckBudget"),
			os.ExpandEnv(Cfg.GetString("InitialConditions")),
			os.ExpandEnv(Cfg.GetString("SaveFile")),
		)
	},
	DisableAutoGenTag: true,
}

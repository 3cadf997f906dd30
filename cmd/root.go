/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	profiler interface{ Stop() }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gomoduli",
	Short: "Directional elastic moduli from VTK stress and strain fields",
	Long: `
Computes the directional Young's moduli E_11, E_22 and E_33 of a material from
the element stress and strain tensors of three uniaxial load cases, written as
legacy VTK files by a crystal plasticity simulation.

gomoduli moduli -D ./results -p mks_alphaTi -m random --simulations 10`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		var mode string
		if mode, err = cmd.Flags().GetString("profile"); err != nil {
			return
		}
		profiler, err = startProfile(mode)
		return
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		stopProfile()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		stopProfile()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gomoduli.yaml)")
	rootCmd.PersistentFlags().String("profile", "", "write a profile of the run: cpu, mem or trace")
	rootCmd.PersistentFlags().Bool("perf", false, "count CPU instructions spent computing (Linux only)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".gomoduli" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".gomoduli")
	}

	viper.SetEnvPrefix("gomoduli")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func startProfile(mode string) (p interface{ Stop() }, err error) {
	var opt func(*profile.Profile)
	switch mode {
	case "":
		return
	case "cpu":
		opt = profile.CPUProfile
	case "mem":
		opt = profile.MemProfile
	case "trace":
		opt = profile.TraceProfile
	default:
		err = fmt.Errorf("unknown profile mode %q, use cpu, mem or trace", mode)
		return
	}
	p = profile.Start(opt, profile.ProfilePath("."), profile.NoShutdownHook)
	return
}

func stopProfile() {
	if profiler != nil {
		profiler.Stop()
		profiler = nil
	}
}

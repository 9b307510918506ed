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

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "weakform",
	Short: "Sparsity driven evaluation of weak form integrands",
	Long: `
Classifies every functional and spatial derivative of a symbolic integrand as zero,
constant or varying over a cell batch, then evaluates and integrates only the nonzero ones.

weakform eval -I run.yaml
weakform sparsity -I run.yaml`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.weakform.yaml)")
	rootCmd.PersistentFlags().StringP("inputConditionsFile", "I", "", "YAML file describing the mesh, fields, functions and expression")
	rootCmd.PersistentFlags().IntP("verbosity", "v", 0, "log verbosity: 1 = pass summaries, 2 = supersets, 4 = per entry values")
	rootCmd.PersistentFlags().String("profile", "", "write a cpu or mem profile to the working directory")
	for _, name := range []string{"inputConditionsFile", "verbosity", "profile"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
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
		// Search config in home directory with name ".weakform" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".weakform")
	}
	viper.SetEnvPrefix("weakform")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger maps verbosity n onto zap level -n, so V(n) messages show when n <= verbosity
func newLogger(verbosity int) (log logr.Logger, err error) {
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))
	zc.DisableStacktrace = true
	var zl *zap.Logger
	if zl, err = zc.Build(); err != nil {
		return
	}
	log = zapr.NewLogger(zl)
	return
}

type stopper interface{ Stop() }

type noProfile struct{}

func (noProfile) Stop() {}

func startProfile(kind string) (s stopper, err error) {
	switch kind {
	case "":
		return noProfile{}, nil
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook), nil
	case "mem":
		return profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook), nil
	}
	return nil, fmt.Errorf("unknown profile %q, use cpu or mem", kind)
}

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
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/weakform/InputParameters"
	"github.com/notargets/weakform/assembly"
	"github.com/notargets/weakform/expr"
	"github.com/notargets/weakform/utils"
)

// EvalCmd represents the eval command
var EvalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate and integrate every nonzero derivative of the expression over the mesh",
	Long: `
Builds the mesh, fields, functions and expression of the run file, then integrates every
entry of the sparsity superset over every cell and prints the totals.

weakform eval -I run.yaml --workers 4`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			rp  *InputParameters.RunParameters
			log logr.Logger
			out = cmd.OutOrStdout()
		)
		if rp, log, err = processInput(); err != nil {
			return
		}
		if w := viper.GetInt("workers"); w > 0 {
			rp.Workers = w
		}
		rp.Print(out)
		var prof stopper
		if prof, err = startProfile(viper.GetString("profile")); err != nil {
			return
		}
		defer prof.Stop()

		var run *InputParameters.Run
		if run, err = rp.Build(); err != nil {
			return
		}
		batches := make([]assembly.Batch, len(run.Batches))
		for i, b := range run.Batches {
			batches[i] = b
		}
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		d := &assembly.Driver{
			Cache:      expr.NewCache(log),
			Root:       run.Root,
			Context:    run.Context,
			Variations: run.Variations,
			Workers:    rp.Workers,
			MaxBuffers: viper.GetInt("maxBuffers"),
			Log:        log,
		}
		var res *assembly.Result
		if res, err = d.Assemble(ctx, batches, run.Mesh.NumCells()); err != nil {
			return
		}
		log.V(1).Info("assembled", "pass", res.PassID.String(), "memory", utils.GetMemUsage())
		fmt.Fprintf(out, "%s\n", run.Root)
		res.Print(out)
		return
	},
}

func init() {
	rootCmd.AddCommand(EvalCmd)
	EvalCmd.Flags().IntP("workers", "w", 0, "number of assembly workers, overrides Workers in the run file")
	EvalCmd.Flags().Int("maxBuffers", 0, "per worker limit on live evaluation buffers, 0 is unlimited")
	for _, name := range []string{"workers", "maxBuffers"} {
		if err := viper.BindPFlag(name, EvalCmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func processInput() (rp *InputParameters.RunParameters, log logr.Logger, err error) {
	var (
		fileName = viper.GetString("inputConditionsFile")
		data     []byte
	)
	if len(fileName) == 0 {
		exampleFile := `
########################################
Title: "Mass matrix"
SpatialDim: 2
Mesh: {XMin: 0, XMax: 1, YMin: 0, YMax: 1, Nx: 8, Ny: 8}
QuadratureOrder: 2
MaxDiffOrder: 2
Fields:
  p0: {Kind: linear, C: 1}
Functions:
  u: {Role: unknown, EvalPoint: p0}
  v: {Role: test}
Variations: [{Function: u}, {Function: v}]
Expression: {op: "*", args: [{func: u}, {func: v}]}
########################################
`
		err = fmt.Errorf("must supply a run file (-I, --inputConditionsFile), example file:%s", exampleFile)
		return
	}
	if data, err = os.ReadFile(fileName); err != nil {
		return
	}
	rp = &InputParameters.RunParameters{}
	if err = rp.Parse(data); err != nil {
		return nil, log, fmt.Errorf("%s: %w", fileName, err)
	}
	log, err = newLogger(viper.GetInt("verbosity"))
	return
}

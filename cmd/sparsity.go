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

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/weakform/InputParameters"
	"github.com/notargets/weakform/expr"
)

// SparsityCmd represents the sparsity command
var SparsityCmd = &cobra.Command{
	Use:   "sparsity",
	Short: "Print the sparsity classification of the expression without evaluating it",
	Long: `
Prints, for the root of the expression (and with --all for every subexpression), which
derivatives are structurally nonzero and whether they are constant or varying on a cell.

weakform sparsity -I run.yaml --all`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			rp  *InputParameters.RunParameters
			run *InputParameters.Run
			log logr.Logger
			out = cmd.OutOrStdout()
		)
		if rp, log, err = processInput(); err != nil {
			return
		}
		if run, err = rp.Build(); err != nil {
			return
		}
		cache := expr.NewCache(log)
		if err = cache.Setup(run.Root, run.Context, run.Variations); err != nil {
			return
		}
		nodes := []expr.Expr{run.Root}
		if viper.GetBool("all") {
			nodes = expr.PostOrder(run.Root)
		}
		for _, n := range nodes {
			var ss *expr.SparsitySuperset
			if ss, err = cache.Classify(n, run.Context); err != nil {
				return
			}
			fmt.Fprintf(out, "%s: %d constant, %d varying\n%s", n, ss.NumConstant(), ss.NumVarying(), ss)
		}
		return
	},
}

func init() {
	rootCmd.AddCommand(SparsityCmd)
	SparsityCmd.Flags().BoolP("all", "a", false, "classify every subexpression, children first")
	if err := viper.BindPFlag("all", SparsityCmd.Flags().Lookup("all")); err != nil {
		panic(err)
	}
}

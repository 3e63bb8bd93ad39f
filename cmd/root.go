// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

// Package cmd wires the differencing engine to a command line, in the
// style of cucaracha's own cmd/root.go: a cobra root command configured
// by viper, with one RunE that hands straight off to engine.Run.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xsplice/objdiff/diag"
	"github.com/xsplice/objdiff/engine"
	"github.com/xsplice/objdiff/kernellookup"
)

var (
	cfgFile     string
	flagDebug   bool
	flagResolve bool
)

// RootCmd is the objdiff command: diff two relocatable builds of the
// same source and emit a live-patch object. It takes exactly the four
// positional arguments spec.md §6 names.
var RootCmd = &cobra.Command{
	Use:   "objdiff [flags] original.o patched.o kernel-object output.o",
	Short: "Build a live-patch object from two builds of the same source",
	Long: `objdiff correlates, compares, and diffs two relocatable object files
compiled from the same source with per-function/per-data-item section
partitioning - a base build and a patched build - and emits a third
relocatable object containing only the functions and data whose
semantics changed, annotated with the metadata a live-patch loader
needs to locate and apply them against a running kernel image.`,
	Args:         cobra.ExactArgs(4),
	SilenceUsage: true,
	RunE:         runDiff,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.objdiff.yaml)")
	RootCmd.Flags().BoolVar(&flagDebug, "debug", false, "enable verbose diagnostic logging")
	RootCmd.Flags().BoolVar(&flagResolve, "resolve", false, "resolve old_addr against kernel-object eagerly instead of leaving it for the loader")
	cobra.OnInitialize(initConfig)
}

// initConfig reads in config file and ENV variables if set, the way
// cucaracha's root command does; objdiff has no persistent settings of
// its own today, but this keeps the same operator-facing surface
// (OBJDIFF_DEBUG=1 objdiff ... works the same as --debug).
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".objdiff")
	}
	viper.SetEnvPrefix("objdiff")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
	if !flagDebug && viper.GetBool("debug") {
		flagDebug = true
	}
	if !flagResolve && viper.GetBool("resolve") {
		flagResolve = true
	}
}

func runDiff(cmd *cobra.Command, args []string) error {
	originalPath, patchedPath, kernelPath, outputPath := args[0], args[1], args[2], args[3]

	originalF, err := os.Open(originalPath)
	if err != nil {
		return diag.Errorf("%v", err)
	}
	defer originalF.Close()

	patchedF, err := os.Open(patchedPath)
	if err != nil {
		return diag.Errorf("%v", err)
	}
	defer patchedF.Close()

	kernelF, err := os.Open(kernelPath)
	if err != nil {
		return diag.Errorf("%v", err)
	}
	defer kernelF.Close()
	lookup, err := kernellookup.Open(kernelF)
	if err != nil {
		return diag.Errorf("opening kernel object: %v", err)
	}

	outputF, err := os.CreateTemp(filepath.Dir(outputPath), ".objdiff-*")
	if err != nil {
		return diag.Errorf("%v", err)
	}
	tmpPath := outputF.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	runErr := engine.Run(originalF, patchedF, outputF, engine.Options{
		Resolve: flagResolve,
		Lookup:  lookup,
		Log:     newStderrLogger(flagDebug),
	})
	if closeErr := outputF.Close(); closeErr != nil && runErr == nil {
		runErr = diag.Errorf("%v", closeErr)
	}

	if runErr == diag.ErrNoChanges {
		fmt.Fprintln(os.Stderr, "no functional change")
		return runErr
	}
	if runErr != nil {
		return runErr
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return diag.Errorf("%v", err)
	}
	return nil
}

// Execute runs RootCmd and returns the process exit code per spec §6/
// §4.8: 0 success, 1 ERROR, 2 DIFF_FATAL, 3 no changes detected. Cobra
// usage errors (bad flags, wrong arg count) fall through diag.ExitCode's
// default case to 1, matching its "unexpected invariant violation"
// bucket for anything that isn't a recognized diag.Error or
// ErrNoChanges.
func Execute() int {
	return diag.ExitCode(RootCmd.Execute())
}

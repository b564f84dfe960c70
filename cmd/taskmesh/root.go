package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gautammanak1/taskmesh"
	"github.com/gautammanak1/taskmesh/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "taskmesh",
	Short: "Route tasks to specialists and stream their output",
	Long: `taskmesh routes free-text requests to the best matching specialist,
runs them with a streaming executor and relays progress events.

Specialists come from the config file or, when none are configured, from the
built-in research, travel and coding personas.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	addConfigFlag(rootCmd.PersistentFlags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(specialistsCmd)
}

func addConfigFlag(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&configPath, "config", "c", "", "path to a YAML, JSON or JSONC config file")
}

// buildCoordinator loads the config and wires a coordinator from it. Logs go
// to logOut so command output stays clean.
func buildCoordinator(logOut io.Writer) (*config.Config, *taskmesh.Coordinator, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := cfg.NewLogger(logOut)

	reg, err := cfg.BuildRegistry()
	if err != nil {
		return nil, nil, err
	}

	resolver, err := cfg.BuildResolver(logger)
	if err != nil {
		return nil, nil, err
	}

	coordinator, err := taskmesh.New(reg, resolver, cfg.CoordinatorOptions(logger))
	if err != nil {
		return nil, nil, err
	}

	return cfg, coordinator, nil
}

func printStatus(w io.Writer, symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var routeCmd = &cobra.Command{
	Use:   "route <text>",
	Short: "Show which specialist a request routes to, and why",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRoute,
}

func runRoute(cmd *cobra.Command, args []string) error {
	_, coordinator, err := buildCoordinator(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	text := strings.Join(args, " ")

	decision, err := coordinator.Route(text)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SPECIALIST\tPRIORITY\tMATCHES\tKEYWORDS")
	for _, s := range coordinator.Explain(text) {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", s.Specialist.Name, s.Specialist.Priority, s.MatchCount(), strings.Join(s.Matched, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	msg := fmt.Sprintf("selected %s", decision.Specialist.Name)
	if decision.Fallback {
		msg += " (fallback)"
	}
	printStatus(out, "→", msg, color.FgGreen)

	return nil
}

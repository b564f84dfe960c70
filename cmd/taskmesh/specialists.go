package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gautammanak1/taskmesh/wire"
)

var specialistsFormat string

var specialistsCmd = &cobra.Command{
	Use:   "specialists",
	Short: "List the registered specialists",
	Args:  cobra.NoArgs,
	RunE:  runSpecialists,
}

func init() {
	specialistsCmd.Flags().StringVarP(&specialistsFormat, "format", "f", "table", "output format: table or yaml")
}

func runSpecialists(cmd *cobra.Command, _ []string) error {
	_, coordinator, err := buildCoordinator(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	switch specialistsFormat {
	case "yaml":
		return wire.WriteSpecialistsYAML(out, coordinator.Specialists())
	case "table":
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tPRIORITY\tDEFAULT\tENDPOINT\tSPECIALTIES")
		for d := range coordinator.Specialists() {
			endpoint := d.Endpoint
			if endpoint == "" {
				endpoint = "-"
			}
			fmt.Fprintf(tw, "%s\t%d\t%t\t%s\t%s\n", d.Name, d.Priority, d.Default, endpoint, strings.Join(d.Specialties, ", "))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q", specialistsFormat)
	}
}

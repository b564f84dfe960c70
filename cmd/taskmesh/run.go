package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gautammanak1/taskmesh"
	"github.com/gautammanak1/taskmesh/core"
	"github.com/gautammanak1/taskmesh/wire"
)

const formatText = "text"

var (
	runFormat    string
	runTaskID    string
	runContextID string
)

var runCmd = &cobra.Command{
	Use:   "run <text>",
	Short: "Route one request and stream its events",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runFormat, "format", "f", formatText, "output format: text, json or cbor")
	runCmd.Flags().StringVar(&runTaskID, "task-id", "", "task id (generated when empty)")
	runCmd.Flags().StringVar(&runContextID, "context-id", "", "context id (generated when empty)")
}

func runRun(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	var encoder wire.Encoder
	if runFormat != formatText {
		enc, err := wire.NewEncoder(runFormat, out)
		if err != nil {
			return err
		}
		encoder = enc
	}

	_, coordinator, err := buildCoordinator(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	task, events, err := coordinator.Submit(cmd.Context(), taskmesh.Request{
		Text:      strings.Join(args, " "),
		TaskID:    runTaskID,
		ContextID: runContextID,
	})
	if err != nil {
		return err
	}

	if encoder != nil {
		for ev := range events {
			if err := encoder.Encode(ev); err != nil {
				return fmt.Errorf("encode event: %w", err)
			}
		}
		return nil
	}

	printStatus(out, "→", fmt.Sprintf("routed to %s (task %s)", task.Specialist.Name, task.ID), color.FgCyan)

	final := renderText(out, events)
	if final != core.TaskStateCompleted {
		return fmt.Errorf("task %s ended %s", task.ID, final)
	}

	return nil
}

// renderText prints fragments as they arrive and the terminal status last.
// It returns the terminal state.
func renderText(w io.Writer, events <-chan core.Event) core.TaskState {
	var (
		final   core.TaskState
		written bool
	)

	for ev := range events {
		switch ev.Kind {
		case core.EventKindPartial:
			if ev.Artifact == core.ArtifactFinalResult {
				continue
			}
			fmt.Fprint(w, ev.Fragment)
			written = true
		case core.EventKindError:
			if written {
				fmt.Fprintln(w)
				written = false
			}
			printStatus(w, "!", ev.Message, color.FgRed)
		case core.EventKindStatus:
			if !ev.Final {
				continue
			}
			if written {
				fmt.Fprintln(w)
				written = false
			}
			final = ev.State
			printStatus(w, stateSymbol(ev.State), describeStatus(ev), stateColor(ev.State))
		}
	}

	return final
}

func describeStatus(ev core.Event) string {
	if ev.Message == "" {
		return string(ev.State)
	}
	return fmt.Sprintf("%s: %s", ev.State, ev.Message)
}

func stateSymbol(s core.TaskState) string {
	switch s {
	case core.TaskStateCompleted:
		return "✓"
	case core.TaskStateCanceled:
		return "-"
	default:
		return "✗"
	}
}

func stateColor(s core.TaskState) color.Attribute {
	switch s {
	case core.TaskStateCompleted:
		return color.FgGreen
	case core.TaskStateCanceled:
		return color.FgYellow
	default:
		return color.FgRed
	}
}

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"respec/internal/apperr"
	"respec/internal/document"
	"respec/internal/feedback"
)

func newLoopCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loop",
		Short: "Create and drive refinement loops",
	}
	cmd.AddCommand(
		loopCreateCmd(a),
		loopShowCmd(a),
		loopFeedbackCmd(a),
		loopIncrementCmd(a),
		loopDecideCmd(a),
		loopListCmd(a),
		loopHistoryCmd(a),
		loopLinkCmd(a),
		loopUnlinkCmd(a),
		loopDeleteCmd(a),
	)
	return cmd
}

func loopCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create <type>",
		Short: "Start a loop (plan, analyst, roadmap, spec, build_plan, build_code)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.store.CreateLoop(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		},
	}
}

func loopShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a loop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.store.GetLoop(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		},
	}
}

func loopFeedbackCmd(a *app) *cobra.Command {
	var (
		score    int
		criteria string
		file     string
		recent   int
	)
	cmd := &cobra.Command{
		Use:   "feedback <id>",
		Short: "Record critic feedback as a score, criteria or markdown",
		Long: `Record critic feedback for a loop.

Exactly one of --score, --criteria or --file must be given. --file reads
Critic Feedback markdown; use - for stdin.

Examples:
  respec loop feedback 1f0c... --score 72
  respec loop feedback 1f0c... --criteria completeness=8,clarity=6
  respec loop feedback 1f0c... --file review.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, id := cmd.Context(), args[0]
			set := 0
			for _, name := range []string{"score", "criteria", "file"} {
				if cmd.Flags().Changed(name) {
					set++
				}
			}
			if set != 1 {
				return apperr.Validation("loop feedback", "exactly one of --score, --criteria or --file is required")
			}

			switch {
			case cmd.Flags().Changed("score"):
				if _, err := a.store.RecordScore(ctx, id, score); err != nil {
					return err
				}
			case cmd.Flags().Changed("criteria"):
				parsed, err := parseCriteria(criteria)
				if err != nil {
					return err
				}
				if _, err := a.store.RecordCriteria(ctx, id, parsed); err != nil {
					return err
				}
			default:
				text, err := readInput(cmd, file)
				if err != nil {
					return err
				}
				if _, err := a.store.AddFeedbackText(ctx, id, text); err != nil {
					return err
				}
			}

			d, err := a.store.Decide(ctx, id)
			if err != nil {
				return err
			}
			if recent > 0 {
				history, err := a.store.GetRecentFeedback(ctx, id, recent)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"decision": d, "recent": history})
			}
			return printJSON(cmd, d)
		},
	}
	cmd.Flags().IntVar(&score, "score", 0, "Overall score 0-100")
	cmd.Flags().StringVar(&criteria, "criteria", "", "Comma separated name=value sub-scores 0-10")
	cmd.Flags().StringVar(&file, "file", "", "Critic Feedback markdown file (- for stdin)")
	cmd.Flags().IntVar(&recent, "recent", 0, "Also print this many recent feedback entries")
	return cmd
}

// parseCriteria reads "completeness=8,clarity=6".
func parseCriteria(raw string) (map[string]int, error) {
	out := make(map[string]int)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, apperr.Validation("loop feedback", "criterion %q is not name=value", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, apperr.Validation("loop feedback", "criterion %q has a non-integer value", pair)
		}
		out[strings.TrimSpace(name)] = n
	}
	if len(out) == 0 {
		return nil, apperr.Validation("loop feedback", "no criteria given")
	}
	return out, nil
}

func loopIncrementCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "increment <id>",
		Short: "Advance a loop to its next iteration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.store.IncrementIteration(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		},
	}
}

func loopDecideCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decide <id>",
		Short: "Print what the orchestrator should do next",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.store.Decide(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, d)
		},
	}
}

func loopListCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active loops",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list := a.store.ListActiveLoops
			if all {
				list = a.store.ListLoops
			}
			loops, err := list(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, st := range loops {
				last := "-"
				if score, ok := st.LastScore(); ok {
					last = strconv.Itoa(score)
				}
				fmt.Fprintf(out, "%s\t%s\titeration=%d\tstatus=%s\tscore=%s\n",
					st.ID, st.Type, st.Iteration, st.Status, last)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include completed and exhausted loops")
	return cmd
}

func loopHistoryCmd(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Print a loop's audit trail and recent feedback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := a.repo.Events(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			recent, err := a.store.GetRecentFeedback(cmd.Context(), args[0], count)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"events": events, "recent_feedback": recent})
		},
	}
	cmd.Flags().IntVar(&count, "count", feedback.DefaultRecentCount, "Number of recent feedback entries")
	return cmd
}

func loopLinkCmd(a *app) *cobra.Command {
	var container string
	cmd := &cobra.Command{
		Use:   "link <id> <kind> <name>",
		Short: "Link a loop to the document it refines",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := document.KindFromString(args[1])
			if err != nil {
				return err
			}
			ref := document.Ref{Kind: kind, Container: container, Name: args[2]}
			if err := a.store.LinkLoopToDocument(cmd.Context(), args[0], ref); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "linked %s to %s\n", args[0], ref)
			return nil
		},
	}
	cmd.Flags().StringVar(&container, "container", "", "Owning project for nested documents")
	return cmd
}

func loopUnlinkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <id>",
		Short: "Clear a loop's document link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.UnlinkLoop(cmd.Context(), args[0])
		},
	}
}

func loopDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a loop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.DeleteLoop(cmd.Context(), args[0])
		},
	}
}

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"raisebar/internal/domain"
	"raisebar/internal/judge"
)

func newJudgeCommand(ctx *commandContext) *cobra.Command {
	var (
		p1, p2           string
		p1Words, p2Words []string
		jsonOutput       bool
	)

	cmd := &cobra.Command{
		Use:   "judge",
		Short: "Run the judge panel on two transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(p1) == "" && strings.TrimSpace(p2) == "" {
				return fmt.Errorf("at least one of --p1 or --p2 is required")
			}

			logger := newLogger(cfg.Logging, os.Stderr)
			panel, err := newPanel(cfg, logger)
			if err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			in := judge.Input{
				P1: judge.Entry{Transcript: domain.FinalizeTranscript(p1, ""), Words: p1Words},
				P2: judge.Entry{Transcript: domain.FinalizeTranscript(p2, ""), Words: p2Words},
			}
			decision := panel.Evaluate(cmd.Context(), in, func(line string) {
				fmt.Fprintln(stderr, line)
			})

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, decision)
			}
			fmt.Fprintln(out, renderVerdicts(decision))
			fmt.Fprintf(out, "Final: P1 %d vs P2 %d, winner %s\n",
				decision.Score.P1Total, decision.Score.P2Total, decision.Score.Winner)
			return nil
		},
	}

	cmd.Flags().StringVar(&p1, "p1", "", "Player 1 transcript")
	cmd.Flags().StringVar(&p2, "p2", "", "Player 2 transcript")
	cmd.Flags().StringSliceVar(&p1Words, "p1-words", nil, "Player 1 target words")
	cmd.Flags().StringSliceVar(&p2Words, "p2-words", nil, "Player 2 target words")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the decision as JSON")
	return cmd
}

func renderVerdicts(decision judge.Decision) string {
	headers := []string{"Judge", "Type", "Weight", "P1", "P2", "Comment"}
	rows := make([][]string, 0, len(decision.Verdicts)+1)
	for _, v := range decision.Verdicts {
		weight, p1, p2 := "-", "-", "-"
		if v.IsScorer() {
			weight = strconv.FormatFloat(v.Weight, 'f', 1, 64)
			p1 = strconv.Itoa(v.ScoreP1)
			p2 = strconv.Itoa(v.ScoreP2)
		}
		comment := v.Comment
		if v.Advice != "" {
			comment += "\n" + v.Advice
		}
		rows = append(rows, []string{
			strings.TrimSpace(v.Avatar + " " + v.Name),
			string(v.Type),
			weight, p1, p2,
			comment,
		})
	}
	rows = append(rows, []string{
		"Word bonus", "", "",
		"+" + strconv.Itoa(decision.Score.P1Bonus),
		"+" + strconv.Itoa(decision.Score.P2Bonus),
		fmt.Sprintf("P1 %d / P2 %d matched", len(decision.P1Matched), len(decision.P2Matched)),
	})
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}
	return renderTable(headers, rows, aligns)
}

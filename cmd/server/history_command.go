package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"raisebar/internal/store"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived match sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			archive, err := openArchive(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if archive == nil {
				return errors.New("session archive disabled (DB_PATH is empty)")
			}
			defer archive.Close()

			sessions, err := archive.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				if sessions == nil {
					sessions = []store.Session{}
				}
				return writeJSON(out, sessions)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions archived yet.")
				return nil
			}
			fmt.Fprintln(out, renderSessions(sessions))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultRecentLimit, "Maximum sessions to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print sessions as JSON")
	return cmd
}

func renderSessions(sessions []store.Session) string {
	headers := []string{"ID", "Created", "Grade", "Transcript"}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		grade := s.Grade
		if !s.Graded() {
			grade = "pending"
		}
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.CreatedAt.Local().Format(time.DateTime),
			grade,
			strings.ReplaceAll(s.Text, "\n", " "),
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignRight})
}

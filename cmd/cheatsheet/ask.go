package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sozercan/cheatsheet-ai/apimodels"
)

func newAskCmd(configPath *string) *cobra.Command {
	var req apimodels.QueryRequest

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question and save the cheatsheet",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			question := strings.Join(args, " ")
			req.Question = &question

			resp, err := a.pipeline.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, strings.Join(resp.Results, "\n\n"))
			fmt.Fprintln(out)
			if resp.File != "" {
				fmt.Fprintf(out, "saved: %s\n", resp.File)
			}
			fmt.Fprintf(out, "thread: %s\n", resp.ThreadID)
			for _, w := range resp.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Language, "language", "", "answer language (defaults to PROMPT_DEFAULT_LANGUAGE)")
	cmd.Flags().StringVar(&req.ThreadID, "thread", "", "continue an existing thread")
	cmd.Flags().StringVar(&req.OutputFolder, "output", "", "folder to write the cheatsheet to")
	return cmd
}

package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

func AskCmd(opts *options) *cobra.Command {
	var showUsage bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return errors.New("question is empty")
			}

			bot, closeFn, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer closeFn()

			r := newREPL(bot, opts.session, nil, cmd.OutOrStdout())
			r.showSources = opts.showSources
			r.showUsage = showUsage
			return r.turn(cmd.Context(), question)
		},
	}

	cmd.Flags().BoolVar(&showUsage, "usage", false, "print token usage and cost")
	return cmd
}

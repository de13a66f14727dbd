package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/set-night/chatbot/internal/config"
	"github.com/set-night/chatbot/internal/service"
	"github.com/spf13/cobra"
)

type options struct {
	envFile     string
	session     string
	sources     []string
	stream      bool
	showSources bool
}

func RootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "chat",
		Short:         "Console chatbot with memory and optional document search",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bot, closeFn, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer closeFn()

			r := newREPL(bot, opts.session, cmd.InOrStdin(), cmd.OutOrStdout())
			r.stream = opts.stream
			r.showSources = opts.showSources
			return r.run(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "environment file to load when present")
	root.PersistentFlags().StringVar(&opts.session, "session", "", "history key (default: a new UUID)")
	root.PersistentFlags().StringSliceVar(&opts.sources, "source", nil, "URL or file to index before chatting (repeatable)")
	root.PersistentFlags().BoolVar(&opts.showSources, "sources", false, "print the documents each answer used")
	root.Flags().BoolVar(&opts.stream, "stream", false, "print the answer as it is generated")

	root.AddCommand(AskCmd(opts))
	return root
}

// setup loads configuration and builds the chatbot shared by all commands.
func setup(cmd *cobra.Command, opts *options) (*service.Chatbot, func(), error) {
	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("load env file %s: %w", opts.envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	// Logs go to stderr so they never mix with the conversation.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	for _, s := range opts.sources {
		if s = strings.TrimSpace(s); s != "" {
			cfg.RetrieverSources = append(cfg.RetrieverSources, s)
		}
	}
	if opts.session == "" {
		opts.session = uuid.NewString()
	}

	bot, closeFn, err := service.Build(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("chat session", "session", opts.session, "model", bot.ModelName())
	return bot, closeFn, nil
}

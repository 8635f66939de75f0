package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tbxark/formpilot/config"
)

type rootFlags struct {
	envFile  string
	catalog  string
	store    string
	redisURL string
	logLevel string
	model    string
	grader   string
}

// overrides returns the config keys for flags set on the command line.
func (f *rootFlags) overrides(cmd *cobra.Command) map[string]any {
	out := map[string]any{}
	for flag, entry := range map[string]struct {
		key string
		val string
	}{
		"catalog":   {"catalog", f.catalog},
		"store":     {"store.driver", f.store},
		"redis-url": {"store.redis_url", f.redisURL},
		"log-level": {"log.level", f.logLevel},
		"model":     {"llm.model", f.model},
		"grader":    {"grader.mode", f.grader},
	} {
		if cmd.Flags().Changed(flag) {
			out[entry.key] = entry.val
		}
	}
	return out
}

func (f *rootFlags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{EnvFile: f.envFile, Overrides: f.overrides(cmd)})
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log)
	return cfg, nil
}

func setupLogging(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	var conversation string
	root := &cobra.Command{
		Use:   "formpilot",
		Short: "Guided form filling for elderly Vietnamese speakers",
		Long:  "formpilot walks through an administrative form one field at a time, checking each answer and asking again when a value looks wrong.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, flags, conversation, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the environment")
	pf.StringVar(&flags.catalog, "catalog", "", "form catalog file or directory")
	pf.StringVar(&flags.store, "store", "", "session store: memory or redis")
	pf.StringVar(&flags.redisURL, "redis-url", "", "redis connection URL")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&flags.model, "model", "", "chat model name")
	pf.StringVar(&flags.grader, "grader", "", "answer grading: local, llm or off (default llm with an API key, else local)")

	chat := &cobra.Command{
		Use:   "chat [form]",
		Short: "Fill a form interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, flags, conversation, args)
		},
	}
	for _, c := range []*cobra.Command{root, chat} {
		c.Flags().StringVar(&conversation, "conversation", "cli", "conversation id, resumes its session with the redis store")
	}

	root.AddCommand(
		chat,
		&cobra.Command{
			Use:   "forms",
			Short: "List the available forms",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runForms(cmd, flags)
			},
		},
		&cobra.Command{
			Use:   "preview <session-id>",
			Short: "Show the summary of a completed session",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPreview(cmd, flags, args[0])
			},
		},
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorText(err.Error()))
		os.Exit(1)
	}
}

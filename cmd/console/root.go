package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"signage-studio/internal/config"
	"signage-studio/internal/console"
	"signage-studio/internal/database"
	"signage-studio/internal/gateway"
	"signage-studio/internal/logger"
)

type options struct {
	configFile string
	cfg        *config.Console
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "studio",
		Short: "Signage campaign console",
		Long: `studio edits the timelines of a signage campaign: it places blocks on
channels, edits their on-air length and orders the campaign's timelines.

Without a subcommand it starts an interactive console.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConsole(cmd.Flags(), opts.configFile)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			slog.SetDefault(slog.New(logger.NewPrettyHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default is ./.studio.yaml or $HOME/.studio.yaml)")
	config.ConsoleFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "repl",
			Short: "Start the interactive console",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runREPL(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "resequence",
			Short: "Rewrite the sequence index of every timeline in the campaign",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runOnce(cmd.Context(), opts.cfg, func(ctx context.Context, s *console.Studio) (string, error) {
					return s.Exec(ctx, "resequence")
				})
			},
		},
		&cobra.Command{
			Use:   "select-timeline <timeline-id>",
			Short: "Select a timeline and print its id, or -1 when it is not sequenced",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
					return fmt.Errorf("invalid timeline id %q", args[0])
				}
				return runOnce(cmd.Context(), opts.cfg, func(ctx context.Context, s *console.Studio) (string, error) {
					return s.Exec(ctx, "select-timeline "+args[0])
				})
			},
		},
	)

	return root
}

func newGateway(cfg *config.Console) (gateway.Gateway, error) {
	if !cfg.Offline {
		return gateway.NewClient(cfg.ServerURL), nil
	}

	mem := gateway.NewMemory()
	if cfg.SeedFile == "" {
		slog.Info("running offline with an empty in-memory gateway")
		return mem, nil
	}

	seed, err := database.LoadSeedFile(cfg.SeedFile)
	if err != nil {
		return nil, err
	}
	timelines, blocks, err := seed.Models()
	if err != nil {
		return nil, err
	}
	for _, t := range timelines {
		mem.PutTimeline(t)
	}
	for _, b := range blocks {
		mem.PutBlock(b)
	}
	slog.Info("running offline from seed file", "path", cfg.SeedFile, "timelines", len(timelines), "blocks", len(blocks))
	return mem, nil
}

func runREPL(cmd *cobra.Command, opts *options) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	gw, err := newGateway(opts.cfg)
	if err != nil {
		return err
	}
	studio := console.New(ctx, opts.cfg, gw)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return studio.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		if err := studio.Do(ctx, func() error { return studio.Bootstrap(ctx) }); err != nil {
			slog.Error("failed to load campaign", "campaign_id", opts.cfg.CampaignID, "error", err)
		}
		err := studio.REPL(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		_ = studio.Do(context.WithoutCancel(ctx), func() error {
			studio.Close()
			return nil
		})
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runOnce loads the campaign, runs fn on the loop, prints its result and waits
// for the writes it issued.
func runOnce(ctx context.Context, cfg *config.Console, fn func(context.Context, *console.Studio) (string, error)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gw, err := newGateway(cfg)
	if err != nil {
		return err
	}
	studio := console.New(ctx, cfg, gw)
	done := make(chan error, 1)
	go func() { done <- studio.Run(ctx) }()

	var out string
	err = studio.Do(ctx, func() error {
		if err := studio.Bootstrap(ctx); err != nil {
			return err
		}
		var err error
		out, err = fn(ctx, studio)
		return err
	})
	studio.Flush()
	cancel()
	if runErr := <-done; err == nil {
		err = runErr
	}
	if err != nil {
		return err
	}

	fmt.Println(out)
	return nil
}

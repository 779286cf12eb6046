package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/bacopilot-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/bacopilot-go/internal/config"
	httpserver "github.com/0xcro3dile/bacopilot-go/internal/infrastructure/http"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API (and the inbox watcher when configured)",
		Long: `Start the HTTP API over the requirement workflow and knowledge base.

When knowledge.inbox_dir is set, files dropped there are added to the
knowledge base while the server runs.`,
		RunE: runWithApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv := httpserver.NewServer(a.workflow, a.knowledge, a.enhancer, a.reviewer, a.loader, a.router, addr)

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Start(ctx) })
			if dir := a.cfg.Knowledge.InboxDir; dir != "" {
				g.Go(func() error { return runInbox(ctx, a, dir) })
			}
			return g.Wait()
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Add files dropped into a directory to the knowledge base",
		Args:  cobra.MaximumNArgs(1),
		RunE: runWithApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			dir := a.cfg.Knowledge.InboxDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return fmt.Errorf("no inbox directory: pass one or set knowledge.inbox_dir")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "watching %s (ctrl-c to stop)\n", dir)
			return runInbox(ctx, a, dir)
		}),
	}
}

func runInbox(ctx context.Context, a *app, dir string) error {
	watcher, err := filewatcher.NewFSNotifyWatcher(a.loader.SupportedExtensions())
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Stop()

	inbox := filewatcher.NewInbox(dir, watcher, a.loader, a.knowledge, 0)
	log.Info().Str("dir", dir).Msg("inbox watcher started")
	return inbox.Run(ctx)
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the available completion backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, release, err := loadConfig()
			if err != nil {
				return err
			}
			defer release()

			router, err := newRouter(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range router.Models() {
				marker := " "
				if m.Name == router.DefaultModel() {
					marker = okStyle.Render("*")
				}
				fmt.Fprintf(out, "%s %-10s %s\n", marker, m.Name, labelStyle.Render(m.Description))
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to --config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s exists, use --force to overwrite", configPath)
			}
			if err := config.Default().Save(configPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("wrote ")+configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (API keys redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, release, err := loadConfig()
			if err != nil {
				return err
			}
			defer release()

			redacted := *cfg
			redacted.LLM.OpenAI.APIKey = redact(cfg.LLM.OpenAI.APIKey)
			redacted.LLM.Anthropic.APIKey = redact(cfg.LLM.Anthropic.APIKey)
			data, err := redacted.YAML()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.AddCommand(initCmd, show)
	return cmd
}

func redact(key string) string {
	if key == "" {
		return ""
	}
	return "********"
}

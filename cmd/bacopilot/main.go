// Command bacopilot is a requirements assistant: it turns rough
// requirement statements into structured documents, refines them in
// clarification turns and reviews them against a knowledge base.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/bacopilot-go/internal/config"
	"github.com/0xcro3dile/bacopilot-go/internal/logging"
)

var Version = "dev"

var (
	configPath string
	modelFlag  string
	logLevel   string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bacopilot",
		Short:         "Requirements analysis assistant backed by a knowledge base",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "bacopilot.yaml", "config file")
	root.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "completion backend (openai, anthropic, ollama, demo)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(serveCmd())
	root.AddCommand(watchCmd())
	root.AddCommand(sessionCmd())
	root.AddCommand(turnCmds()...)
	root.AddCommand(kbCmd())
	root.AddCommand(modelsCmd())
	root.AddCommand(configCmd())

	return root
}

// loadConfig reads the config file and installs the logger. The returned
// function releases the log file.
func loadConfig() (*config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	closer, err := logging.Setup(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("setting up logging: %w", err)
	}
	return cfg, func() { closer.Close() }, nil
}

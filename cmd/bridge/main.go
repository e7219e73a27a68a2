// Package main is the entry point for the LiteClaw messaging bridge.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Aquillum/LiteClaw/cmd/bridge/modules"
	"github.com/Aquillum/LiteClaw/internal/config"
	"github.com/Aquillum/LiteClaw/internal/version"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "bridge",
		Short:         "Bridge WhatsApp, Telegram and Slack to one backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return serve(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to config.toml")
	root.AddCommand(
		serveCmd(&configPath),
		versionCmd(),
		configCmd(&configPath),
	)
	return root
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge (default)",
		RunE: func(_ *cobra.Command, _ []string) error {
			return serve(*configPath)
		},
	}
}

func serve(configPath string) error {
	app := fx.New(
		fx.Supply(modules.ConfigPath(configPath)),
		modules.InfraModule,
		modules.ChannelModule,
		modules.ServerModule,
		fx.WithLogger(modules.FxLogger),
	)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

func versionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and build info",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printVersion(cmd.OutOrStdout(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func printVersion(w io.Writer, asJSON bool) error {
	info := version.Get()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	_, err := fmt.Fprintf(w, "LiteClaw bridge %s\ngo: %s\nplatform: %s\n", info, info.GoVersion, info.Platform)
	return err
}

func configCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg.Masked())
		},
	}
}

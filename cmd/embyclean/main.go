// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/embyclean/embyclean/internal/buildinfo"
	"github.com/embyclean/embyclean/internal/config"
	"github.com/embyclean/embyclean/internal/services/cleanup"
)

func main() {
	config.InitDefaultLogger(buildinfo.Version)

	var rootCmd = &cobra.Command{
		Use:   "embyclean",
		Short: "Remove watched media from qBittorrent",
		Long: `embyclean - listens for Emby playback events and deletes the matching
torrent, and optionally its data, from qBittorrent.`,
	}

	rootCmd.Version = buildinfo.Version

	rootCmd.AddCommand(RunServeCommand())
	rootCmd.AddCommand(RunVersionCommand(buildinfo.Version))
	rootCmd.AddCommand(RunGenerateConfigCommand())
	rootCmd.AddCommand(RunResolveCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func RunServeCommand() *cobra.Command {
	var (
		configDir string
		logPath   string
	)

	var command = &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server",
	}

	command.Flags().StringVar(&configDir, "config-dir", "", "config directory path (default is OS-specific: ~/.config/embyclean/ or %APPDATA%\\embyclean\\). Can also be a direct path to a .toml file")
	command.Flags().StringVar(&logPath, "log-path", "", "log file path (default is stdout)")

	command.RunE = func(cmd *cobra.Command, args []string) error {
		app := NewApplication(configDir, logPath)
		return app.runServer()
	}

	return command
}

func RunVersionCommand(version string) *cobra.Command {
	var command = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of embyclean",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
			if buildinfo.Commit != "" {
				fmt.Printf("commit: %s\n", buildinfo.Commit)
			}
			if buildinfo.Date != "" {
				fmt.Printf("built: %s\n", buildinfo.Date)
			}
		},
	}

	return command
}

func RunGenerateConfigCommand() *cobra.Command {
	var configDir string

	command := &cobra.Command{
		Use:   "generate-config",
		Short: "Generate a default configuration file",
		Long: `Generate a default configuration file without starting the server.

If no --config-dir is specified, uses the OS-specific default location:
- Linux/macOS: ~/.config/embyclean/config.toml
- Windows: %APPDATA%\embyclean\config.toml

You can specify either a directory path or a direct file path:
- Directory: embyclean generate-config --config-dir /path/to/config/
- File: embyclean generate-config --config-dir /path/to/myconfig.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var configPath string
			if configDir != "" {
				if strings.HasSuffix(strings.ToLower(configDir), ".toml") {
					configPath = configDir
				} else if info, err := os.Stat(configDir); err == nil && !info.IsDir() {
					configPath = configDir
				} else {
					configPath = filepath.Join(configDir, "config.toml")
				}
			} else {
				configPath = filepath.Join(config.GetDefaultConfigDir(), "config.toml")
			}

			if _, err := os.Stat(configPath); err == nil {
				cmd.Printf("Configuration file already exists at: %s\n", configPath)
				cmd.Println("Skipping generation to avoid overwriting existing configuration.")
				return nil
			}

			if err := config.WriteDefaultConfig(configPath); err != nil {
				return fmt.Errorf("failed to create configuration file: %w", err)
			}

			cmd.Printf("Configuration file created successfully at: %s\n", configPath)
			return nil
		},
	}

	command.Flags().StringVar(&configDir, "config-dir", "",
		"config directory or file path (defaults to OS-specific location)")

	return command
}

// RunResolveCommand looks up the torrent a media file belongs to without deleting anything.
func RunResolveCommand() *cobra.Command {
	var configDir string

	command := &cobra.Command{
		Use:   "resolve <file path>",
		Short: "Show which torrent a media file resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(configDir, buildinfo.Version)
			if err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			svc := cleanup.NewService(
				cleanup.Config{RequestTimeout: cfg.RequestTimeout()},
				cleanup.SettingsFromConfig(cfg.Current()),
				newConnector(cfg),
				nil,
				nil,
			)

			result := svc.Match(context.Background(), args[0])
			switch result.Status {
			case cleanup.MatchFound:
				cmd.Printf("match (%s): %s\n", result.Stage, result.Torrent.Name)
				cmd.Printf("hash: %s\n", result.Torrent.Hash)
			case cleanup.MatchClientUnavailable:
				return fmt.Errorf("%s", result.Reason)
			default:
				cmd.Println(result.Reason)
			}
			return nil
		},
	}

	command.Flags().StringVar(&configDir, "config-dir", "",
		"config directory or file path (defaults to OS-specific location)")

	return command
}

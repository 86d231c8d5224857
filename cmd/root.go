/*
Copyright © 2024-2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/blacktop/robohashy/internal/config"
	"github.com/blacktop/robohashy/internal/logging"
	"github.com/blacktop/robohashy/internal/photos"
	"github.com/blacktop/robohashy/internal/pipeline"
	"github.com/blacktop/robohashy/internal/robohash"
)

var (
	// flags
	logger     *log.Logger
	verbose    bool
	configFile string
	// viper keys bound to flags
	flagKeys = map[string]string{
		"host":     "service.base_url",
		"seed":     "pipeline.seed",
		"set":      "pipeline.set",
		"debounce": "pipeline.debounce",
		"library":  "library.kind",
		"output":   "library.folder",
		"database": "library.database",
		"protocol": "display.protocol",
		"log-file": "logging.file",
	}
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "robohashy",
	Short:         "Robohash avatar picker TUI",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		for flag, key := range flagKeys {
			if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
				return fmt.Errorf("failed to bind flag %s: %w", flag, err)
			}
		}
		cfg, err := config.Load(v, configFile)
		if err != nil {
			return err
		}
		// flags
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

func run(ctx context.Context, cfg *config.Config) error {
	fileLogger, closer, err := logging.Setup(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer closer.Close()

	style, err := robohash.ParseStyleSet(cfg.Pipeline.Set)
	if err != nil {
		return err
	}

	store, err := photos.Open(photos.Kind(cfg.Library.Kind), cfg.Location(), fileLogger)
	if err != nil {
		return err
	}
	defer store.Close()

	client := robohash.NewClient(
		robohash.WithBaseURL(cfg.Service.BaseURL),
		robohash.WithUserAgent(cfg.Service.UserAgent),
		robohash.WithLogger(fileLogger),
	)
	p := pipeline.New(client, store,
		pipeline.WithDebounce(cfg.Pipeline.Debounce),
		pipeline.WithStyle(style),
		pipeline.WithLogger(fileLogger),
	)

	fileLogger.Info("Starting robohashy",
		"host", client.BaseURL(),
		"set", style,
		"library", cfg.Library.Kind,
		"location", cfg.Location(),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	in := newIntents()
	input := in.input()
	m := newModel(ctx, fileLogger, p.Output(), in, display{
		protocol: protocolFor(cfg.Display.Protocol),
		width:    cfg.Display.Width,
		height:   cfg.Display.Height,
	}, style, cfg.Pipeline.Seed)

	g.Go(func() error {
		if err := p.Run(ctx, input); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		defer in.close()
		_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("error running program: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("robohashy failed", "err", err)
		os.Exit(1)
	}
}

func init() {
	logger = logging.New(os.Stderr, "info")

	defaults := config.Default()
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "V", false, "Verbose output")
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Config file (default is ~/.config/robohashy/config.yaml)")
	rootCmd.Flags().StringP("seed", "s", "", "Seed to generate on startup")
	rootCmd.Flags().String("set", defaults.Pipeline.Set, fmt.Sprintf("Robohash style set (%s)", strings.Join(robohash.StyleNames(), ", ")))
	rootCmd.Flags().String("host", defaults.Service.BaseURL, "Robohash service base URL")
	rootCmd.Flags().Duration("debounce", defaults.Pipeline.Debounce, "Quiet window applied to generate requests")
	rootCmd.Flags().StringP("library", "l", defaults.Library.Kind, "Photo library backend (dir or bolt)")
	rootCmd.Flags().StringP("output", "o", defaults.Library.Folder, "Output folder for the dir library")
	rootCmd.Flags().String("database", defaults.Library.Database, "Database file for the bolt library")
	rootCmd.Flags().StringP("protocol", "p", defaults.Display.Protocol, "Preview protocol (auto, kitty, iterm2, sixel, or halfblocks)")
	rootCmd.Flags().String("log-file", defaults.Logging.File, "Log file")
	rootCmd.MarkFlagDirname("output")
	rootCmd.MarkFlagFilename("config", "yaml", "yml")
}


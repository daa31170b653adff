package main

import (
	"fmt"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/samdwyer/roomsep/internal/app"
	"github.com/samdwyer/roomsep/internal/config"
	"github.com/samdwyer/roomsep/internal/logging"
	"github.com/samdwyer/roomsep/internal/ui"
)

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Watch the layout relax in the terminal",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			path, _ := cmd.Flags().GetString("log-file")
			logger, closeLog, err := newViewLogger(path, cfg)
			if err != nil {
				return err
			}
			defer closeOutput(closeLog, &err)
			defer setupTelemetry(cmd, logger)()

			screen, err := ui.NewScreen()
			if err != nil {
				return err
			}

			a := app.New(cfg, logger, screen)
			defer a.Close()
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().String("log-file", "", "Append logs to this file (the terminal is taken over by the view)")
	return cmd
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newViewLogger returns the viewer's logger. The terminal belongs to the view,
// so logs are dropped unless path names a file to append them to.
func newViewLogger(path string, cfg config.Config) (*charmlog.Logger, io.Closer, error) {
	if path == "" {
		return logging.Discard(), nopCloser{}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger, err := logging.New(f, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return logger, f, nil
}

package main

import (
	"context"
	"fmt"
	"io"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/samdwyer/roomsep/internal/config"
	"github.com/samdwyer/roomsep/internal/logging"
	"github.com/samdwyer/roomsep/internal/presets"
	"github.com/samdwyer/roomsep/internal/telemetry"
)

var version = "0.1.0-dev"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "roomsep",
		Short: "Procedural room layout by spawn-and-relax",
		Long: `roomsep scatters rectangular rooms over a disk and pushes overlapping
rooms apart with a fixed-timestep repulsion simulation until none overlap.

Configuration is layered: preset, then --config file, then ROOMSEP_* env
vars, then flags.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "YAML config file")
	flags.String("preset", presets.DefaultID, "Layout preset (see 'roomsep presets')")
	flags.Int64("seed", 0, "Random seed (0 = time-based)")
	flags.Int("rooms", 0, "Number of rooms")
	flags.Float32("min-side", 0, "Smallest room side length")
	flags.Float32("max-side", 0, "Largest room side length")
	flags.Float32("radius", 0, "Spawn disk radius")
	flags.Float32("stiffness", 0, "Penetration-to-acceleration scale")
	flags.Float32("max-force", 0, "Acceleration magnitude cap")
	flags.Float32("drag", 0, "Linear velocity damping per second")
	flags.Int("tick-rate", 0, "Fixed ticks per second")
	flags.Uint64("max-ticks", 0, "Stop after this many ticks (0 keeps the configured cap)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text, json, logfmt")
	flags.Bool("telemetry", false, "Export traces even without OTEL_EXPORTER_OTLP_ENDPOINT")

	rootCmd.AddCommand(
		newVersionCmd(),
		newPresetsCmd(),
		newViewCmd(),
		newGenerateCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "roomsep version %s\n", version)
		},
	}
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in layout presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := presets.LoadRegistry()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range registry.All() {
				fmt.Fprintf(out, "%-8s %4d rooms  sides %g-%g  radius %g  %s\n",
					p.ID, p.RoomCount, p.MinSide, p.MaxSide, p.SpawnRadius, p.Description)
			}
			return nil
		},
	}
}

// loadConfig layers preset, file, environment and flags, then validates.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	flags := cmd.Flags()

	presetID, _ := flags.GetString("preset")
	registry, err := presets.LoadRegistry()
	if err != nil {
		return cfg, err
	}
	preset, err := registry.Lookup(presetID)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyPreset(preset)

	if path, _ := flags.GetString("config"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return cfg, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}

	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("rooms") {
		cfg.RoomCount, _ = flags.GetInt("rooms")
	}
	if flags.Changed("min-side") {
		cfg.MinSide, _ = flags.GetFloat32("min-side")
	}
	if flags.Changed("max-side") {
		cfg.MaxSide, _ = flags.GetFloat32("max-side")
	}
	if flags.Changed("radius") {
		cfg.SpawnRadius, _ = flags.GetFloat32("radius")
	}
	if flags.Changed("stiffness") {
		cfg.Stiffness, _ = flags.GetFloat32("stiffness")
	}
	if flags.Changed("max-force") {
		cfg.MaxForce, _ = flags.GetFloat32("max-force")
	}
	if flags.Changed("drag") {
		cfg.Drag, _ = flags.GetFloat32("drag")
	}
	if flags.Changed("tick-rate") {
		cfg.TickRate, _ = flags.GetInt("tick-rate")
	}
	if flags.Changed("max-ticks") {
		cfg.MaxTicks, _ = flags.GetUint64("max-ticks")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// setupTelemetry starts tracing when configured. Failure is not fatal.
func setupTelemetry(cmd *cobra.Command, logger *charmlog.Logger) func() {
	force, _ := cmd.Flags().GetBool("telemetry")
	if !force && !telemetry.Configured() {
		return func() {}
	}

	ctx := cmd.Context()
	telemetry.Version = version
	shutdown, err := telemetry.Setup(ctx)
	if err != nil {
		logger.Warn("telemetry setup failed, running without traces", "err", err)
		return func() {}
	}
	return func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("telemetry shutdown failed", "err", err)
		}
	}
}

// newLogger builds the logger for cfg writing to w.
func newLogger(w io.Writer, cfg config.Config) (*charmlog.Logger, error) {
	return logging.New(w, cfg.LogLevel, cfg.LogFormat)
}

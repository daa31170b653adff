package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/samdwyer/roomsep/internal/export"
	"github.com/samdwyer/roomsep/internal/sim"
	"github.com/samdwyer/roomsep/internal/world"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Relax a layout headlessly and write the result",
		Long: `generate spawns a layout, runs the simulation until it settles or the
tick cap is reached, and writes the final room positions. With --every N it
also writes a frame every N ticks.`,
		RunE: runGenerate,
	}
	cmd.Flags().String("format", "json", "Output format: json or yaml")
	cmd.Flags().StringP("out", "o", "", "Output file (default stdout)")
	cmd.Flags().Uint64("every", 0, "Also write a frame every N ticks")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	defer setupTelemetry(cmd, logger)()

	formatName, _ := cmd.Flags().GetString("format")
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}
	every, _ := cmd.Flags().GetUint64("every")

	var out io.Writer = cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("out"); path != "" {
		f, cerr := os.Create(path)
		if cerr != nil {
			return fmt.Errorf("create output: %w", cerr)
		}
		defer closeOutput(f, &err)
		out = f
	}

	ctx := cmd.Context()
	seed := cfg.ResolveSeed()
	store, err := world.Spawn(ctx, rand.New(rand.NewSource(seed)), cfg.SpawnParams(seed))
	if err != nil {
		return err
	}
	driver, err := sim.NewDriver(store, cfg.Separation(), cfg.DT(),
		sim.WithLogger(logger.With("seed", seed)))
	if err != nil {
		return err
	}

	colors := export.Colors(store.All())
	writer := export.NewWriter(out, format)
	frame := func() error {
		return writer.Write(export.NewLayout(seed, driver.Tick(), driver.Settled(), driver.Snapshot(), colors))
	}

	logger.Info("relaxing layout", "rooms", store.Len(), "overlaps", world.CountOverlaps(store.Snapshot()))
	start := time.Now()

	var progress func(uint64) error
	if every > 0 {
		if err := frame(); err != nil {
			return err
		}
		// Settled and capped runs get their frame below.
		progress = func(tick uint64) error {
			if driver.Settled() || (cfg.MaxTicks > 0 && tick >= cfg.MaxTicks) {
				return nil
			}
			return frame()
		}
	}
	if _, err := driver.RunEvery(ctx, cfg.MaxTicks, every, progress); err != nil {
		return err
	}
	if err := frame(); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	if driver.Settled() {
		logger.Info("layout written", "ticks", driver.Tick(), "elapsed", time.Since(start).Round(time.Millisecond))
	} else {
		logger.Warn("tick cap reached before settling", "ticks", driver.Tick(),
			"overlaps", world.CountOverlaps(driver.Snapshot()))
	}
	return nil
}

// closeOutput closes c and reports its error through errp unless an earlier
// error is already there.
func closeOutput(c io.Closer, errp *error) {
	if cerr := c.Close(); cerr != nil && *errp == nil {
		*errp = fmt.Errorf("close output: %w", cerr)
	}
}

package app

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samdwyer/roomsep/internal/config"
	"github.com/samdwyer/roomsep/internal/sim"
	"github.com/samdwyer/roomsep/internal/telemetry"
	"github.com/samdwyer/roomsep/internal/ui"
	"github.com/samdwyer/roomsep/internal/world"
)

// App holds the viewer state. Only the Run goroutine touches the driver.
type App struct {
	cfg      config.Config
	logger   *log.Logger
	screen   *ui.Screen
	renderer *ui.Renderer
	driver   *sim.Driver
	seed     int64
	state    State
	running  bool
	overlaps int
	span     trace.Span // Viewer session; receives the settlement events
}

// New creates a viewer drawing to screen. cfg must already be validated.
func New(cfg config.Config, logger *log.Logger, screen *ui.Screen) *App {
	return &App{
		cfg:      cfg,
		logger:   logger,
		screen:   screen,
		renderer: ui.NewRenderer(screen),
		state:    StateRunning,
		running:  true,
		span:     trace.SpanFromContext(context.Background()),
	}
}

// Run spawns a layout and drives it until the user quits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, span := telemetry.Tracer("app").Start(ctx, "layout.view")
	defer span.End()
	a.span = span

	if err := a.spawn(ctx, a.cfg.ResolveSeed()); err != nil {
		return err
	}

	events := make(chan tcell.Event, 16)
	stop := make(chan struct{})
	defer close(stop)
	go a.pollEvents(events, stop)

	ticker := time.NewTicker(a.cfg.TickInterval())
	defer ticker.Stop()

	a.render()
	for a.running {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			a.handleEvent(ctx, ev)
		case <-ticker.C:
			if a.state == StateRunning {
				a.step()
			}
		}
		a.render()
	}
	return nil
}

// pollEvents forwards terminal events until the screen closes or stop fires.
func (a *App) pollEvents(events chan<- tcell.Event, stop <-chan struct{}) {
	for {
		ev := a.screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case events <- ev:
		case <-stop:
			return
		}
	}
}

// spawn replaces the current layout with a fresh one from seed.
func (a *App) spawn(ctx context.Context, seed int64) error {
	ctx, span := telemetry.Tracer("app").Start(ctx, "layout.spawn_view")
	defer span.End()

	store, err := world.Spawn(ctx, rand.New(rand.NewSource(seed)), a.cfg.SpawnParams(seed))
	if err != nil {
		return fmt.Errorf("spawn rooms: %w", err)
	}

	driver, err := sim.NewDriver(store, a.cfg.Separation(), a.cfg.DT(),
		sim.WithLogger(a.logger.With("seed", seed)),
		sim.WithSettledHook(func(ev sim.SettledEvent) { a.recordSettled(seed, ev) }))
	if err != nil {
		return fmt.Errorf("build driver: %w", err)
	}

	a.driver = driver
	a.seed = seed
	a.state = StateRunning
	a.overlaps = world.CountOverlaps(store.Snapshot())
	a.renderer.SetPalette(store.All())

	span.SetAttributes(
		attribute.Int64("layout.seed", seed),
		attribute.Int("layout.overlapping_pairs_initial", a.overlaps),
	)
	a.logger.Debug("spawned layout", "seed", seed, "rooms", store.Len(), "overlaps", a.overlaps)
	return nil
}

// recordSettled marks the one-time settlement of the layout from seed on the
// viewer session span.
func (a *App) recordSettled(seed int64, ev sim.SettledEvent) {
	a.span.AddEvent("layout.settled", trace.WithAttributes(
		attribute.Int64("layout.seed", seed),
		attribute.Int64("layout.tick", int64(ev.Tick)),
		attribute.Int("layout.room_count", ev.Rooms),
		attribute.Int64("layout.elapsed_ms", ev.Elapsed.Milliseconds()),
	))
}

// step advances one tick and updates the viewer state.
func (a *App) step() {
	if a.state == StateSettled {
		return
	}
	if limit := a.cfg.MaxTicks; limit > 0 && a.driver.Tick() >= limit {
		a.state = StatePaused
		a.logger.Warn("tick cap reached before settling", "ticks", a.driver.Tick())
		return
	}
	stats := a.driver.Step()
	a.overlaps = stats.OverlappingPairs
	if a.driver.Settled() {
		a.state = StateSettled
		a.overlaps = 0
	}
}

func (a *App) render() {
	a.renderer.Render(ui.Frame{
		Rooms:    a.driver.Snapshot(),
		Tick:     a.driver.Tick(),
		Overlaps: a.overlaps,
		Settled:  a.state == StateSettled,
		Paused:   a.state == StatePaused,
		Seed:     a.seed,
	})
}

// handleEvent processes a single input event.
func (a *App) handleEvent(ctx context.Context, ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		a.handleKeyEvent(ctx, ev)
	case *tcell.EventResize:
		a.screen.Sync()
	}
}

// handleKeyEvent processes keyboard input.
func (a *App) handleKeyEvent(ctx context.Context, ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		a.running = false

	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			a.running = false
		case ' ':
			a.togglePause()
		case 's', 'S':
			if a.state == StatePaused {
				a.state = StateRunning
				a.step()
				if a.state == StateRunning {
					a.state = StatePaused
				}
			}
		case 'r', 'R':
			if err := a.spawn(ctx, rand.Int63()); err != nil {
				a.logger.Error("respawn failed", "err", err)
			}
		}
	}
}

func (a *App) togglePause() {
	switch a.state {
	case StateRunning:
		a.state = StatePaused
	case StatePaused:
		a.state = StateRunning
	}
}

// Seed returns the seed of the current layout.
func (a *App) Seed() int64 {
	return a.seed
}

// State returns the current viewer state.
func (a *App) State() State {
	return a.state
}

// Close cleans up viewer resources.
func (a *App) Close() {
	if a.screen != nil {
		a.screen.Close()
	}
}

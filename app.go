package phasor

import (
	"fmt"
	"time"

	"github.com/pkg/profile"
)

// Standard schedule labels installed by Default.
const (
	PreStartup  = "PreStartup"
	Startup     = "Startup"
	PostStartup = "PostStartup"

	PreShutdown  = "PreShutdown"
	Shutdown     = "Shutdown"
	PostShutdown = "PostShutdown"

	BetweenFrames = "BetweenFrames"

	BeginFrame = "BeginFrame"
	Update     = "Update"
	Render     = "Render"
	EndFrame   = "EndFrame"
)

// Exit is the exit convention: a system inserting this resource during the
// step loop makes Run terminate with the given code after the shutdown
// schedules complete.
type Exit struct {
	Code int
}

// App is the composition root: one world, a schedule DAG, and the plugins
// that populated them.
type App struct {
	world     *World
	schedules *ScheduleManager
	plugins   []Plugin
	unique    map[string]bool
	cfg       Config
	hasCfg    bool
}

// NewApp constructs an app with an empty schedule graph.
func NewApp() *App {
	w := NewWorld()
	return &App{
		world:     w,
		schedules: NewScheduleManager(w),
		unique:    make(map[string]bool),
	}
}

// Default constructs an app pre-populated with the standard schedule
// skeleton:
//
//	PreStartup -> Startup -> PostStartup
//	PreShutdown -> Shutdown -> PostShutdown
//	BetweenFrames
//	BeginFrame -> Update -> Render -> EndFrame
func Default() *App {
	a := NewApp()
	labels := []string{
		PreStartup, Startup, PostStartup,
		PreShutdown, Shutdown, PostShutdown,
		BetweenFrames,
		BeginFrame, Update, Render, EndFrame,
	}
	for _, l := range labels {
		if _, err := a.schedules.Add(l); err != nil {
			panic(err)
		}
	}
	orderings := [][2]string{
		{PreStartup, Startup}, {Startup, PostStartup},
		{PreShutdown, Shutdown}, {Shutdown, PostShutdown},
		{BeginFrame, Update}, {Update, Render}, {Render, EndFrame},
	}
	for _, o := range orderings {
		if err := a.schedules.AddOrdering(o[0], o[1]); err != nil {
			panic(err)
		}
	}
	return a
}

// DefaultWithConfig is Default plus environment-driven settings: log level,
// default event and sub-app channel capacities, profiling.
func DefaultWithConfig(cfg Config) *App {
	a := Default()
	a.cfg = cfg
	a.hasCfg = true
	SetLogLevel(cfg.logLevel())
	return a
}

// World returns the app's world.
func (a *App) World() *World { return a.world }

// Schedules returns the schedule manager.
func (a *App) Schedules() *ScheduleManager { return a.schedules }

// Config returns the app's configuration and whether one was supplied.
func (a *App) Config() (Config, bool) { return a.cfg, a.hasCfg }

// AddSystems appends systems to the named schedule in order.
func (a *App) AddSystems(schedule string, fns ...any) error {
	sched, ok := a.schedules.Get(schedule)
	if !ok {
		return fmt.Errorf("%w: %s", ErrScheduleNotFound, schedule)
	}
	for _, fn := range fns {
		if err := sched.Add(fn); err != nil {
			return err
		}
	}
	return nil
}

// AddEvent registers an Events[T] resource. A capacity of 0 falls back to
// the configured default.
func AddEvent[T any](a *App, capacity int) {
	if capacity <= 0 {
		capacity = a.eventCapacity()
	}
	RegisterEvents[T](a.world, capacity)
}

func (a *App) eventCapacity() int {
	if a.hasCfg && a.cfg.EventCapacity > 0 {
		return a.cfg.EventCapacity
	}
	return defaultEventCapacity
}

// AddPlugin registers a plugin and runs its Build hook. Unique plugins (the
// default) are rejected when one with the same name is already present.
func (a *App) AddPlugin(p Plugin) error {
	name := pluginName(p)
	if pluginUnique(p) {
		if a.unique[name] {
			return fmt.Errorf("%w: %s", ErrPluginAlreadyAdded, name)
		}
		a.unique[name] = true
	}
	a.plugins = append(a.plugins, p)
	return p.Build(a)
}

// runFrom runs schedules reachable from start in dependency order, feeding
// per-schedule durations to the metrics resource when one is installed.
func (a *App) runFrom(start string) error {
	it, err := a.schedules.Iterator(start)
	if err != nil {
		return err
	}
	metrics, hasMetrics := GetResource[Metrics](a.world.resources)
	for {
		sched, ok := it.Next()
		if !ok {
			return nil
		}
		began := time.Now()
		err := sched.Run(a.world)
		if hasMetrics {
			metrics.observeSchedule(sched.Label(), time.Since(began))
		}
		if err != nil {
			return err
		}
	}
}

// Step runs one frame: the schedules reachable from BeginFrame, then, when
// no Exit resource appeared, the BetweenFrames schedules (event-reader
// maintenance, phase transitions, and the like).
func (a *App) Step() error {
	if err := a.runFrom(BeginFrame); err != nil {
		return err
	}
	if HasResource[Exit](a.world.resources) {
		return nil
	}
	return a.runFrom(BetweenFrames)
}

// Run sweeps the startup schedules, steps until a system inserts Exit,
// sweeps the shutdown schedules, and returns the exit code.
func (a *App) Run() (int, error) {
	if a.hasCfg && a.cfg.Profile {
		p := profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
		defer p.Stop()
	}
	if err := a.runFrom(PreStartup); err != nil {
		return 0, err
	}
	for !HasResource[Exit](a.world.resources) {
		if err := a.Step(); err != nil {
			return 0, err
		}
	}
	exit, _ := GetResource[Exit](a.world.resources)
	if err := a.runFrom(PreShutdown); err != nil {
		return exit.Code, err
	}
	return exit.Code, nil
}

// Close tears the app down: plugin cleanups (logged, never raised), system
// unregistration, then world destruction.
func (a *App) Close() {
	for i := len(a.plugins) - 1; i >= 0; i-- {
		if c, ok := a.plugins[i].(CleanupPlugin); ok {
			if err := c.Cleanup(a); err != nil {
				log().Error().Err(err).Str("plugin", pluginName(a.plugins[i])).Msg("plugin cleanup failed")
			}
		}
	}
	a.plugins = nil
	a.schedules.Close()
	a.world.Close()
}

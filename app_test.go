package phasor

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScheduleSkeletonOrder(t *testing.T) {
	app := Default()
	defer app.Close()
	InsertResource(app.World().Resources(), tickLog{})

	require.NoError(t, app.AddSystems(Startup, appendLog("startup")))
	require.NoError(t, app.AddSystems(BeginFrame, appendLog("begin")))
	require.NoError(t, app.AddSystems(Update, appendLog("update")))
	require.NoError(t, app.AddSystems(Render, appendLog("render")))
	require.NoError(t, app.AddSystems(EndFrame, appendLog("end")))
	require.NoError(t, app.AddSystems(Shutdown, appendLog("shutdown")))
	require.NoError(t, app.AddSystems(EndFrame, func(c *Commands) {
		CommandsInsertResource(c, Exit{Code: 3})
	}))

	code, err := app.Run()
	require.NoError(t, err)
	assert.Equal(t, 3, code)

	l, _ := GetResource[tickLog](app.World().Resources())
	assert.Equal(t, []string{"startup", "begin", "update", "render", "end", "shutdown"}, l.Entries)
}

func TestStepRunsBetweenFramesUntilExit(t *testing.T) {
	app := Default()
	defer app.Close()
	InsertResource(app.World().Resources(), tickLog{})
	require.NoError(t, app.AddSystems(BetweenFrames, appendLog("between")))

	require.NoError(t, app.Step())
	l, _ := GetResource[tickLog](app.World().Resources())
	assert.Equal(t, []string{"between"}, l.Entries)

	InsertResource(app.World().Resources(), Exit{Code: 0})
	require.NoError(t, app.Step())
	l, _ = GetResource[tickLog](app.World().Resources())
	assert.Equal(t, []string{"between"}, l.Entries, "BetweenFrames skipped once Exit is set")
}

type testPlugin struct {
	built   *int
	cleaned *int
	fail    bool
}

func (p testPlugin) Build(app *App) error {
	if p.built != nil {
		*p.built++
	}
	return nil
}

func (p testPlugin) Cleanup(app *App) error {
	if p.cleaned != nil {
		*p.cleaned++
	}
	if p.fail {
		return errors.New("cleanup failed")
	}
	return nil
}

type repeatablePlugin struct{}

func (repeatablePlugin) Build(app *App) error { return nil }
func (repeatablePlugin) NonUnique()           {}

func TestPluginUniqueness(t *testing.T) {
	app := Default()
	defer app.Close()
	built := 0
	require.NoError(t, app.AddPlugin(testPlugin{built: &built}))
	assert.ErrorIs(t, app.AddPlugin(testPlugin{built: &built}), ErrPluginAlreadyAdded)
	assert.Equal(t, 1, built)

	require.NoError(t, app.AddPlugin(repeatablePlugin{}))
	require.NoError(t, app.AddPlugin(repeatablePlugin{}))
}

func TestPluginCleanupRunsAndSwallowsErrors(t *testing.T) {
	app := Default()
	cleaned := 0
	require.NoError(t, app.AddPlugin(testPlugin{cleaned: &cleaned, fail: true}))
	app.Close()
	assert.Equal(t, 1, cleaned, "cleanup error is logged, not raised")
}

func TestAddEventDefaultCapacity(t *testing.T) {
	app := Default()
	defer app.Close()
	AddEvent[collision](app, 0)
	ev, ok := GetResource[Events[collision]](app.World().Resources())
	require.True(t, ok)
	assert.Equal(t, defaultEventCapacity, ev.Channel().Cap())
}

func TestAddSystemsUnknownSchedule(t *testing.T) {
	app := Default()
	defer app.Close()
	assert.ErrorIs(t, app.AddSystems("nope", systemAlpha), ErrScheduleNotFound)
}

func TestMetricsPlugin(t *testing.T) {
	app := Default()
	reg := prometheus.NewRegistry()
	require.NoError(t, app.AddPlugin(MetricsPlugin{Registerer: reg}))
	_, ok := GetResource[Metrics](app.World().Resources())
	require.True(t, ok)

	_, err := app.World().DB().CreateEntity(position{})
	require.NoError(t, err)
	require.NoError(t, app.Step())

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["phasor_entities"])
	assert.True(t, names["phasor_schedule_run_seconds"])
	app.Close()
}

func TestRunPropagatesScheduleErrors(t *testing.T) {
	app := Default()
	defer app.Close()
	boom := errors.New("boom")
	require.NoError(t, app.AddSystems(Update, func(c *Commands) error { return boom }))
	_, err := app.Run()
	assert.ErrorIs(t, err, boom)
}

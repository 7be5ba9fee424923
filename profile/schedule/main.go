// Profiling:
// go build ./profile/schedule
// go tool pprof -http=":8000" -nodefraction=0.001 ./schedule cpu.pprof

package main

import (
	"github.com/b33j0r/phasor"
	"github.com/pkg/profile"
)

type counter struct {
	Ticks int
}

func main() {
	p := profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	defer p.Stop()

	app := phasor.Default()
	phasor.InsertResource(app.World().Resources(), counter{})
	if err := app.AddSystems(phasor.Update, func(c *phasor.ResMut[counter], cmd *phasor.Commands) {
		c.Get().Ticks++
		if c.Get().Ticks >= 100000 {
			phasor.CommandsInsertResource(cmd, phasor.Exit{Code: 0})
		}
	}); err != nil {
		panic(err)
	}
	if _, err := app.Run(); err != nil {
		panic(err)
	}
	app.Close()
}

// Profiling:
// go build ./profile/entities
// go tool pprof -http=":8000" -nodefraction=0.001 ./entities mem.pprof

package main

import (
	"github.com/b33j0r/phasor"
	"github.com/pkg/profile"
)

type position struct {
	X, Y float64
}

type velocity struct {
	DX, DY float64
}

func main() {
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(50, 1000, 1000)
	p.Stop()
}

func run(rounds, iters, numEntities int) {
	for r := 0; r < rounds; r++ {
		db := phasor.NewDatabase()
		for i := 0; i < iters; i++ {
			ids, err := db.CreateEntities(numEntities, position{}, velocity{DX: 1})
			if err != nil {
				panic(err)
			}
			q := phasor.NewQuerySpec(phasor.Include[position](), phasor.Include[velocity]()).Execute(db)
			it := q.Iterator()
			for it.Next() {
				pos, _ := phasor.GetComponent[position](it.Entity())
				vel, _ := phasor.GetComponent[velocity](it.Entity())
				pos.X += vel.DX
				pos.Y += vel.DY
			}
			for _, id := range ids {
				if err := db.RemoveEntity(id); err != nil {
					panic(err)
				}
			}
		}
	}
}

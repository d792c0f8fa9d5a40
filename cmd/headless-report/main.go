package main

import (
	"flag"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/Garsondee/tilestage/internal/actor"
	"github.com/Garsondee/tilestage/internal/engine"
	"github.com/Garsondee/tilestage/internal/event"
	"github.com/Garsondee/tilestage/internal/grid"
	"github.com/Garsondee/tilestage/internal/world"
)

const (
	tickSecs           = 1.0 / 60
	maxAttemptsPerTick = 8
)

type runStats struct {
	runIndex int
	seed     int64

	walls    int
	walkers  int
	blockers int

	trips        int
	unreachable  int
	refused      int
	tripTicks    []int
	firstArrival int
	maxWaiting   int
	pathLens     []int
	stuck        map[string]struct{}
}

func main() {
	var runs int
	var ticks int
	var seedBase int64
	var seedStep int64
	var scenario string
	var cols, rows, walkers int
	var wallDensity float64
	var async bool

	flag.IntVar(&runs, "runs", 5, "number of headless runs")
	flag.IntVar(&ticks, "ticks", 3600, "ticks per run")
	flag.Int64Var(&seedBase, "seed-base", 42, "base RNG seed for run 1")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between runs")
	flag.StringVar(&scenario, "scenario", "patrol", "scenario name")
	flag.IntVar(&cols, "cols", 24, "map columns")
	flag.IntVar(&rows, "rows", 16, "map rows")
	flag.IntVar(&walkers, "walkers", 6, "actors patrolling the map")
	flag.Float64Var(&wallDensity, "walls", 0.18, "fraction of tiles that are walls")
	flag.BoolVar(&async, "async", false, "spread path searches over ticks")
	flag.Parse()

	if runs <= 0 {
		fmt.Println("error: -runs must be > 0")
		return
	}
	if ticks <= 0 {
		fmt.Println("error: -ticks must be > 0")
		return
	}
	if scenario != "patrol" {
		fmt.Printf("error: unsupported scenario %q (supported: patrol)\n", scenario)
		return
	}

	fmt.Printf("=== Headless Movement Report ===\n")
	fmt.Printf("scenario=%s runs=%d ticks=%d map=%dx%d walkers=%d walls=%.2f async=%t seed_base=%d seed_step=%d\n\n",
		scenario, runs, ticks, cols, rows, walkers, wallDensity, async, seedBase, seedStep)

	all := make([]runStats, 0, runs)
	for i := 0; i < runs; i++ {
		seed := seedBase + int64(i)*seedStep
		stats := runPatrol(i+1, seed, ticks, cols, rows, walkers, wallDensity, async)
		all = append(all, stats)
		printRun(stats)
	}
	printAggregate(all)
}

// patrolGrid lays out random walls, keeping the border row open so most of
// the map stays connected.
func patrolGrid(rng *rand.Rand, cols, rows int, density float64) ([]string, int) {
	out := make([]string, rows)
	walls := 0
	for y := range rows {
		var b strings.Builder
		for x := range cols {
			if y > 0 && y < rows-1 && x > 0 && x < cols-1 && rng.Float64() < density {
				b.WriteByte('#')
				walls++
				continue
			}
			b.WriteByte('.')
		}
		out[y] = b.String()
	}
	return out, walls
}

func openTiles(layout []string) []grid.Tile {
	var out []grid.Tile
	for y, row := range layout {
		for x, c := range row {
			if c != '#' {
				out = append(out, grid.Tile{X: x, Y: y})
			}
		}
	}
	return out
}

func runPatrol(runIndex int, seed int64, ticks, cols, rows, walkers int, density float64, async bool) runStats {
	rng := rand.New(rand.NewSource(seed)) // #nosec G404 -- reproducible report
	layout, walls := patrolGrid(rng, cols, rows, density)
	open := openTiles(layout)

	rs := runStats{runIndex: runIndex, seed: seed, walls: walls, walkers: walkers, firstArrival: -1, stuck: map[string]struct{}{}}
	opts := []engine.TestOption{
		engine.WithGrid(layout...),
		engine.WithPlayerAt(0, 0),
		engine.WithConfig(func(c *world.GameConfig) {
			c.Pathfinder.Sync = !async
			c.Pathfinder.IterationsPerTick = 200
		}),
	}
	for i := range walkers {
		blocking := i%3 == 2
		if blocking {
			rs.blockers++
		}
		opts = append(opts, engine.WithActor(world.ActorConfig{
			ID:       fmt.Sprintf("walker-%02d", i),
			Tile:     open[rng.Intn(len(open))],
			Speed:    64 + float64(rng.Intn(64)),
			Blocking: blocking,
		}))
	}
	tg := engine.NewTestGame(opts...)

	started := map[string]int{}
	attempts := map[string]int{} // requests per actor this tick
	var send func(a *actor.Actor)
	send = func(a *actor.Actor) {
		id := a.ID()
		if attempts[id]++; attempts[id] > maxAttemptsPerTick {
			rs.stuck[id] = struct{}{}
			return
		}
		target := open[rng.Intn(len(open))]
		started[id] = tg.Ticks()
		ok := a.MoveToThen(target, nil, func() {
			rs.unreachable++
			rs.stuck[id] = struct{}{}
			send(a)
		})
		if !ok {
			rs.refused++
			return
		}
		if p := a.Path(); len(p) > 0 {
			rs.pathLens = append(rs.pathLens, len(p)+1)
		}
	}
	tg.Events().On(event.ActorReachedTarget, func(ev event.Event) {
		for _, id := range ev.Actors {
			a, ok := tg.GetActor(id)
			if !ok || id == tg.Player().ID() {
				continue
			}
			rs.trips++
			rs.tripTicks = append(rs.tripTicks, tg.Ticks()-started[id])
			if rs.firstArrival < 0 {
				rs.firstArrival = tg.Ticks()
			}
			send(a)
		}
	})

	for _, a := range tg.Actors() {
		if a != tg.Player() {
			send(a)
		}
	}
	for range ticks {
		clear(attempts)
		tg.Tick(tickSecs)
		rs.maxWaiting = max(rs.maxWaiting, waiting(tg))
	}
	return rs
}

// waiting counts walkers standing still, either waiting on a path search or
// given up on.
func waiting(tg *engine.TestGame) int {
	n := 0
	for _, a := range tg.Actors() {
		if a != tg.Player() && a.State() == actor.StateIdle {
			n++
		}
	}
	return n
}

func printRun(rs runStats) {
	fmt.Printf("--- Run %d (seed=%d) ---\n", rs.runIndex, rs.seed)
	fmt.Printf("layout: walls=%d walkers=%d blockers=%d\n", rs.walls, rs.walkers, rs.blockers)
	fmt.Printf("trips: completed=%d unreachable=%d refused=%d first_arrival=%d\n",
		rs.trips, rs.unreachable, rs.refused, rs.firstArrival)
	fmt.Printf("timing: avg_trip_ticks=%s avg_path_len=%s max_waiting=%d\n",
		avgTickString(rs.tripTicks), avgTickString(rs.pathLens), rs.maxWaiting)
	fmt.Printf("stuck_labels: %s\n", joinSet(rs.stuck))
	if congested, reason := detectCongestion(rs); congested {
		fmt.Printf("verdict: congested (%s)\n", reason)
	} else {
		fmt.Printf("verdict: flowing (%s)\n", reason)
	}
	fmt.Println()
}

func printAggregate(all []runStats) {
	totalTrips := 0
	totalUnreachable := 0
	totalRefused := 0
	var tripTicks, arrivals []int
	stuckGlobal := map[string]struct{}{}
	congested := 0

	for _, rs := range all {
		totalTrips += rs.trips
		totalUnreachable += rs.unreachable
		totalRefused += rs.refused
		tripTicks = append(tripTicks, rs.tripTicks...)
		if rs.firstArrival >= 0 {
			arrivals = append(arrivals, rs.firstArrival)
		}
		for label := range rs.stuck {
			stuckGlobal[label] = struct{}{}
		}
		if ok, _ := detectCongestion(rs); ok {
			congested++
		}
	}

	fmt.Println("=== Aggregate ===")
	fmt.Printf("runs=%d congested_runs=%d\n", len(all), congested)
	fmt.Printf("avg_per_run: trips=%.1f unreachable=%.1f refused=%.1f\n",
		avg(totalTrips, len(all)), avg(totalUnreachable, len(all)), avg(totalRefused, len(all)))
	fmt.Printf("avg_ticks: trip=%s first_arrival=%s\n", avgTickString(tripTicks), avgTickString(arrivals))
	fmt.Printf("unique_stuck_labels=%d [%s]\n", len(stuckGlobal), joinSet(stuckGlobal))
}

// detectCongestion flags runs where walkers spent more of their requests on
// unreachable targets than on completed trips, or completed almost nothing.
func detectCongestion(rs runStats) (bool, string) {
	if rs.walkers == 0 {
		return false, "no_walkers"
	}
	perWalker := float64(rs.trips) / float64(rs.walkers)
	switch {
	case rs.unreachable > rs.trips:
		return true, fmt.Sprintf("unreachable_exceeds_trips %d>%d", rs.unreachable, rs.trips)
	case perWalker < 1:
		return true, fmt.Sprintf("low_trips_per_walker %.2f", perWalker)
	}
	return false, fmt.Sprintf("trips_per_walker %.2f", perWalker)
}

func avg(sum int, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func avgTickString(vals []int) string {
	if len(vals) == 0 {
		return "n/a"
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(len(vals)))
}

func joinSet(s map[string]struct{}) string {
	if len(s) == 0 {
		return "none"
	}
	labels := make([]string, 0, len(s))
	for k := range s {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return strings.Join(labels, ",")
}

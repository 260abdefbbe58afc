package cli

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync/atomic"
	"time"

	"github.com/aretw0/animgraph"
	"github.com/aretw0/animgraph/internal/runtime"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/ecs"
	"github.com/aretw0/animgraph/pkg/observability"
	"github.com/aretw0/animgraph/pkg/scheduler"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

// CrowdOptions configures the crowd command.
type CrowdOptions struct {
	Controller string
	Count      int
	Ticks      int
	DT         float32
	// Params are applied to every animator before the first tick.
	Params map[string]float32
	// ECS ticks the crowd as donburi entities instead of on the worker pool.
	ECS     bool
	Workers int
}

// CrowdReport summarizes a crowd run.
type CrowdReport struct {
	Animators   int
	Ticks       int
	Elapsed     time.Duration
	Transitions int64
	TimeEvents  int64
	// States counts the animators per current base layer state.
	States map[string]int
}

// PerTick is the mean wall time of one tick of the whole crowd.
func (r *CrowdReport) PerTick() time.Duration {
	if r.Ticks == 0 {
		return 0
	}
	return r.Elapsed / time.Duration(r.Ticks)
}

// Markdown renders the report for tui.Print.
func (r *CrowdReport) Markdown() string {
	md := fmt.Sprintf("## Crowd\n\n| animators | ticks | elapsed | per tick | transitions | time events |\n|---|---|---|---|---|---|\n| %d | %d | %s | %s | %d | %d |\n\n",
		r.Animators, r.Ticks, r.Elapsed.Round(time.Microsecond), r.PerTick().Round(time.Microsecond), r.Transitions, r.TimeEvents)
	md += "| state | animators |\n|---|---|\n"
	for _, s := range slices.Sorted(maps.Keys(r.States)) {
		md += fmt.Sprintf("| %s | %d |\n", s, r.States[s])
	}
	return md
}

type crowdCounters struct {
	transitions atomic.Int64
	timeEvents  atomic.Int64
}

// Crowd ticks many animators of one controller and measures the cost.
func Crowd(ctx context.Context, engine *animgraph.Engine, opts CrowdOptions, metrics *observability.Metrics, logger *slog.Logger) (*CrowdReport, error) {
	if opts.Count <= 0 {
		return nil, fmt.Errorf("crowd needs at least one animator")
	}
	if opts.DT <= 0 {
		opts.DT = 1.0 / 30
	}
	if metrics == nil {
		metrics = observability.NewMetrics(nil)
	}

	if opts.ECS {
		return crowdECS(ctx, engine, opts, metrics)
	}
	return crowdPool(ctx, engine, opts, metrics, logger)
}

func (c *crowdCounters) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(context.Context, *domain.TransitionEvent) { c.transitions.Add(1) },
		OnTimeEvent:  func(context.Context, *domain.TimeEventFired) { c.timeEvents.Add(1) },
	}
}

func setParams(a *runtime.Animator, params map[string]float32) error {
	for name, v := range params {
		if err := a.SetParameter(name, v); err != nil {
			return err
		}
	}
	return nil
}

func crowdPool(ctx context.Context, engine *animgraph.Engine, opts CrowdOptions, metrics *observability.Metrics, logger *slog.Logger) (*CrowdReport, error) {
	schedOpts := []scheduler.Option{scheduler.WithLogger(logger), scheduler.WithMetrics(metrics)}
	if opts.Workers > 0 {
		schedOpts = append(schedOpts, scheduler.WithWorkers(opts.Workers))
	}
	sched := scheduler.New(schedOpts...)

	counters := &crowdCounters{}
	var releases []func()
	defer func() {
		for _, release := range releases {
			release()
		}
	}()

	for i := range opts.Count {
		a, release, err := engine.NewAnimatorWithHooks(opts.Controller, counters.hooks())
		if err != nil {
			return nil, err
		}
		releases = append(releases, release)
		if err := setParams(a, opts.Params); err != nil {
			return nil, err
		}
		if err := sched.Add(fmt.Sprintf("%s-%d", opts.Controller, i), a); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	ticks := 0
	for ; ticks < opts.Ticks; ticks++ {
		if err := sched.Tick(ctx, opts.DT); err != nil {
			break
		}
	}
	report := &CrowdReport{
		Animators:   sched.Len(),
		Ticks:       ticks,
		Elapsed:     time.Since(start),
		Transitions: counters.transitions.Load(),
		TimeEvents:  counters.timeEvents.Load(),
		States:      map[string]int{},
	}
	for _, id := range sched.IDs() {
		if a, ok := sched.Get(id); ok {
			report.States[a.CurrentState(0)]++
		}
	}
	return report, ctx.Err()
}

func crowdECS(ctx context.Context, engine *animgraph.Engine, opts CrowdOptions, metrics *observability.Metrics) (*CrowdReport, error) {
	world := donburi.NewWorld()
	system := ecs.NewSystem()

	var transitions, timeEvents int64
	ecs.TransitionEventType.Subscribe(world, func(donburi.World, ecs.TransitionEvent) { transitions++ })
	ecs.TimeEventType.Subscribe(world, func(donburi.World, ecs.TimeEvent) { timeEvents++ })

	var releases []func()
	defer func() {
		for _, release := range releases {
			release()
		}
	}()

	for range opts.Count {
		_, err := ecs.Spawn(world, func(hooks domain.LifecycleHooks) (*runtime.Animator, error) {
			a, release, err := engine.NewAnimatorWithHooks(opts.Controller, hooks)
			if err != nil {
				return nil, err
			}
			releases = append(releases, release)
			return a, setParams(a, opts.Params)
		})
		if err != nil {
			return nil, err
		}
	}
	ecs.ProcessEvents(world)

	start := time.Now()
	ticks := 0
	for ; ticks < opts.Ticks && ctx.Err() == nil; ticks++ {
		metrics.Time(func() { system.UpdateContext(ctx, world, opts.DT) })
	}
	report := &CrowdReport{
		Animators:   system.Count(world),
		Ticks:       ticks,
		Elapsed:     time.Since(start),
		Transitions: transitions,
		TimeEvents:  timeEvents,
		States:      map[string]int{},
	}
	donburi.NewQuery(filter.Contains(ecs.Animator)).Each(world, func(e *donburi.Entry) {
		report.States[ecs.Animator.Get(e).Animator.CurrentState(0)]++
	})
	return report, ctx.Err()
}

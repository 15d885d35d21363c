package systems

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/deform"
	"github.com/spaghettifunk/dent/engine/physics"
)

type DeformationSystemConfig struct {
	// Workers is the size of the job pool running scheduled impacts, and the
	// concurrency limit of ApplyBatch.
	Workers   int
	QueueSize int
	Settings  deform.Settings
}

// BatchResult is the fate of one event passed to ApplyBatch.
type BatchResult struct {
	Event  deform.ImpactEvent
	Result deform.ImpactResult
	Err    error
}

// DeformationSystem owns one orchestrator per registered deformable and
// reports every impact through the event system and the metrics.
type DeformationSystem struct {
	world *physics.World
	jobs  *JobSystem

	mu            sync.RWMutex
	workers       int
	settings      deform.Settings
	orchestrators map[*deform.DeformableMesh]*deform.Orchestrator

	observers sync.WaitGroup
}

func NewDeformationSystem(world *physics.World, config DeformationSystemConfig) (*DeformationSystem, error) {
	jobs, err := NewJobSystem(config.Workers, config.QueueSize)
	if err != nil {
		return nil, err
	}
	if err := core.MetricsInitialize(); err != nil {
		return nil, err
	}
	return &DeformationSystem{
		world:         world,
		jobs:          jobs,
		workers:       config.Workers,
		settings:      config.Settings,
		orchestrators: make(map[*deform.DeformableMesh]*deform.Orchestrator),
	}, nil
}

func (ds *DeformationSystem) World() *physics.World {
	return ds.world
}

// Register starts tracking mesh. Its collision proxy joins the world if it
// is not registered yet.
func (ds *DeformationSystem) Register(mesh *deform.DeformableMesh) (*deform.Orchestrator, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if _, exists := ds.orchestrators[mesh]; exists {
		return nil, fmt.Errorf("deformable '%s' is already registered", mesh.Name())
	}
	if proxy := mesh.Proxy(); proxy != nil && proxy.ID() == physics.InvalidID {
		ds.world.Add(proxy)
	}
	o := deform.NewOrchestrator(mesh, ds.world, ds.settings, ds.jobs)
	ds.orchestrators[mesh] = o
	core.LogInfo("deformable '%s' registered (%d vertices)", mesh.Name(), mesh.VertexCount())
	return o, nil
}

func (ds *DeformationSystem) Unregister(mesh *deform.DeformableMesh) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if _, exists := ds.orchestrators[mesh]; !exists {
		return fmt.Errorf("%w: '%s'", core.ErrUnknownDeformable, mesh.Name())
	}
	delete(ds.orchestrators, mesh)
	if proxy := mesh.Proxy(); proxy != nil && proxy.ID() != physics.InvalidID {
		return ds.world.Remove(proxy)
	}
	return nil
}

func (ds *DeformationSystem) Get(mesh *deform.DeformableMesh) (*deform.Orchestrator, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	o, ok := ds.orchestrators[mesh]
	return o, ok
}

// Meshes returns the registered deformables.
func (ds *DeformationSystem) Meshes() []*deform.DeformableMesh {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	out := make([]*deform.DeformableMesh, 0, len(ds.orchestrators))
	for mesh := range ds.orchestrators {
		out = append(out, mesh)
	}
	return out
}

// FindByProxy returns the registered mesh whose collision proxy is c.
func (ds *DeformationSystem) FindByProxy(c physics.Collider) (*deform.DeformableMesh, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	for mesh := range ds.orchestrators {
		if proxy := mesh.Proxy(); proxy != nil && physics.Collider(proxy) == c {
			return mesh, true
		}
	}
	return nil, false
}

// UpdateSettings applies to impacts started afterwards.
func (ds *DeformationSystem) UpdateSettings(settings deform.Settings) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.settings = settings
	for _, o := range ds.orchestrators {
		o.SetSettings(settings)
	}
}

func (ds *DeformationSystem) Settings() deform.Settings {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.settings
}

// StartImpact schedules event on the job pool. An impact still computing on
// the same mesh is cancelled.
func (ds *DeformationSystem) StartImpact(event deform.ImpactEvent) (*deform.ImpactTask, error) {
	if event.Mesh == nil {
		return nil, fmt.Errorf("%w: impact %s has no mesh", core.ErrUnknownDeformable, event.ID)
	}
	o, ok := ds.Get(event.Mesh)
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", core.ErrUnknownDeformable, event.Mesh.Name())
	}

	ds.fire(core.EVENT_CODE_IMPACT_STARTED, event, nil)
	task := o.StartImpact(event)

	ds.observers.Add(1)
	go func() {
		defer ds.observers.Done()
		result, err := task.Wait()
		ds.report(event, result, err)
	}()
	return task, nil
}

// ApplyBatch runs a set of impacts synchronously. Only the last event of each
// mesh runs; earlier ones are reported as cancelled. Distinct meshes run
// concurrently. Results come back in the order of events.
func (ds *DeformationSystem) ApplyBatch(ctx context.Context, events []deform.ImpactEvent) ([]BatchResult, error) {
	results := make([]BatchResult, len(events))
	last := make(map[*deform.DeformableMesh]int, len(events))
	for i, e := range events {
		results[i].Event = e
		results[i].Result.ID = e.ID
		if e.Mesh == nil {
			results[i].Err = fmt.Errorf("%w: impact %s has no mesh", core.ErrUnknownDeformable, e.ID)
			continue
		}
		if prev, ok := last[e.Mesh]; ok {
			results[prev].Err = fmt.Errorf("%w: superseded by %s", core.ErrImpactCancelled, e.ID)
		}
		last[e.Mesh] = i
	}

	g := new(errgroup.Group)
	g.SetLimit(ds.workers)
	for _, i := range last {
		i := i
		event := events[i]
		o, ok := ds.Get(event.Mesh)
		if !ok {
			results[i].Err = fmt.Errorf("%w: '%s'", core.ErrUnknownDeformable, event.Mesh.Name())
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = fmt.Errorf("%w: %w", core.ErrImpactCancelled, err)
				return err
			}
			ds.fire(core.EVENT_CODE_IMPACT_STARTED, event, nil)
			results[i].Result, results[i].Err = o.Run(ctx, event)
			return nil
		})
	}
	err := g.Wait()

	for _, r := range results {
		if r.Event.Mesh != nil {
			if _, ok := ds.Get(r.Event.Mesh); ok {
				ds.report(r.Event, r.Result, r.Err)
			}
		}
	}
	return results, err
}

func (ds *DeformationSystem) report(event deform.ImpactEvent, result deform.ImpactResult, err error) {
	switch {
	case err == nil:
		core.MetricsRecordImpact(result.Outcome.String(), result.Duration)
		ds.fire(core.EVENT_CODE_IMPACT_COMPLETED, event, result)
	case deform.IsCancelled(err):
		core.MetricsRecordCancelled()
		ds.fire(core.EVENT_CODE_IMPACT_CANCELLED, event, err)
	default:
		core.MetricsRecordFailure()
		core.LogError("impact %s on '%s' failed: %s", event.ID, event.Mesh.Name(), err)
		ds.fire(core.EVENT_CODE_IMPACT_FAILED, event, err)
	}
}

func (ds *DeformationSystem) fire(code core.SystemEventCode, event deform.ImpactEvent, payload interface{}) {
	ctx := core.EventContext{Payload: payload}
	ctx.Data.C[0] = event.Mesh.Name()
	ctx.Data.C[1] = event.ID.String()
	if result, ok := payload.(deform.ImpactResult); ok {
		ctx.Data.C[2] = result.Outcome.String()
	}
	core.EventFire(code, ds, ctx)
}

// Shutdown waits for scheduled impacts to be reported, then stops the pool.
func (ds *DeformationSystem) Shutdown() error {
	err := ds.jobs.Shutdown()
	ds.observers.Wait()
	return err
}

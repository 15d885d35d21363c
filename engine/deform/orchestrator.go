package deform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/math"
	"github.com/spaghettifunk/dent/engine/renderer/metadata"
)

// Scheduler runs impact jobs off the caller's goroutine. *systems.JobSystem
// implements it.
type Scheduler interface {
	Submit(jt metadata.JobTask) error
}

type State int

const (
	StateIdle State = iota
	StateComputing
)

func (s State) String() string {
	if s == StateComputing {
		return "computing"
	}
	return "idle"
}

// ImpactTask is a scheduled impact. Wait blocks until it finished, failed or
// was cancelled.
type ImpactTask struct {
	ID uuid.UUID

	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	result     ImpactResult
	err        error
}

func (t *ImpactTask) Done() <-chan struct{} {
	return t.done
}

func (t *ImpactTask) Wait() (ImpactResult, error) {
	<-t.done
	return t.result, t.err
}

// Cancel stops the task if it has not committed yet.
func (t *ImpactTask) Cancel() {
	t.cancel()
}

func (t *ImpactTask) finish(result ImpactResult, err error) {
	t.result = result
	t.err = err
	t.cancel()
	close(t.done)
}

// Orchestrator runs the impact pipeline for one deformable. At most one impact
// computes at a time: a new request cancels the one in flight.
type Orchestrator struct {
	mesh      *DeformableMesh
	geom      Geometry
	scheduler Scheduler

	mu         sync.Mutex
	settings   Settings
	generation uint64
	active     *ImpactTask
}

// NewOrchestrator creates the orchestrator for mesh. A nil scheduler runs
// impacts on their own goroutine.
func NewOrchestrator(mesh *DeformableMesh, geom Geometry, settings Settings, scheduler Scheduler) *Orchestrator {
	return &Orchestrator{
		mesh:      mesh,
		geom:      geom,
		settings:  settings,
		scheduler: scheduler,
	}
}

func (o *Orchestrator) Mesh() *DeformableMesh {
	return o.mesh
}

// SetSettings applies to impacts started afterwards.
func (o *Orchestrator) SetSettings(s Settings) {
	o.mu.Lock()
	o.settings = s
	o.mu.Unlock()
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil {
		return StateComputing
	}
	return StateIdle
}

// begin registers a new computation, cancelling the one in flight.
func (o *Orchestrator) begin(parent context.Context, id uuid.UUID) (*ImpactTask, Settings) {
	ctx, cancel := context.WithCancel(parent)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil {
		core.LogDebug("impact %s on '%s' superseded by %s", o.active.ID, o.mesh.Name(), id)
		o.active.cancel()
	}
	o.generation++
	task := &ImpactTask{
		ID:         id,
		generation: o.generation,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	o.active = task
	return task, o.settings
}

func (o *Orchestrator) end(task *ImpactTask, result ImpactResult, err error) {
	o.mu.Lock()
	if o.active == task {
		o.active = nil
	}
	o.mu.Unlock()
	task.finish(result, err)
}

// StartImpact schedules event and returns immediately. Any impact still
// computing for this mesh is cancelled and will not commit.
func (o *Orchestrator) StartImpact(event ImpactEvent) *ImpactTask {
	task, settings := o.begin(context.Background(), event.ID)

	job := metadata.JobTask{
		JobType:     metadata.JOB_TYPE_IMPACT,
		Context:     task.ctx,
		InputParams: event,
		OnStart: func(ctx context.Context, params interface{}) (interface{}, error) {
			result, err := o.run(ctx, task, settings, params.(ImpactEvent))
			o.end(task, result, err)
			return result, err
		},
	}

	if o.scheduler == nil {
		go job.OnStart(task.ctx, event)
		return task
	}
	if err := o.scheduler.Submit(job); err != nil {
		o.end(task, ImpactResult{ID: event.ID}, err)
	}
	return task
}

// Run executes event on the calling goroutine. It preempts any impact in
// flight the same way StartImpact does.
func (o *Orchestrator) Run(ctx context.Context, event ImpactEvent) (ImpactResult, error) {
	task, settings := o.begin(ctx, event.ID)
	result, err := o.run(task.ctx, task, settings, event)
	o.end(task, result, err)
	return result, err
}

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrImpactCancelled, err)
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, task *ImpactTask, settings Settings, event ImpactEvent) (ImpactResult, error) {
	start := time.Now()
	result := ImpactResult{ID: event.ID}
	name := o.mesh.Name()

	if err := cancelled(ctx); err != nil {
		return result, err
	}

	snap := o.mesh.snapshot()

	sel, err := Select(snap.vertices, snap.restNormals, event.Volume, snap.transform, o.geom)
	if err != nil {
		return result, err
	}
	result.Selected = sel.Len()
	if sel.Empty() {
		core.LogWarn("impact %s: no vertex of '%s' inside '%s'", event.ID, name, event.Volume.Name())
		result.Outcome = OutcomeEmptyHitSet
		result.ImpactedTotal = snap.partition.Len()
		result.Duration = time.Since(start)
		return result, nil
	}
	core.LogDebug("impact %s: %d vertices of '%s' selected", event.ID, sel.Len(), name)

	resolver := NewCorrespondenceResolver(o.geom, settings)
	mapping, err := resolver.Resolve(ctx, o.mesh.Proxy(), snap.transform, event.Targets, sel)
	if err != nil {
		return result, err
	}
	result.Mapped = len(mapping)
	if len(mapping) == 0 {
		core.LogWarn("impact %s: no ray from '%s' reached a '%s' surface", event.ID, name, settings.DeformerTag)
		result.Outcome = OutcomeNoCorrespondence
		result.ImpactedTotal = snap.partition.Len()
		result.Duration = time.Since(start)
		return result, nil
	}

	if err := cancelled(ctx); err != nil {
		return result, err
	}

	vertices := snap.vertices
	if err := ApplyMapping(vertices, mapping); err != nil {
		return result, err
	}
	submeshes, added := Partition(snap.triangles, mapping.Indices(), snap.partition)
	result.NewlyImpacted = added
	result.ImpactedTotal = snap.partition.Len()

	if err := o.commit(ctx, task, vertices, snap.partition, submeshes); err != nil {
		return result, err
	}

	result.Outcome = OutcomeCompleted
	result.Duration = time.Since(start)
	core.LogDebug("impact %s: '%s' committed, %d vertices moved, %d triangles impacted (%d new)",
		event.ID, name, result.Mapped, result.ImpactedTotal, result.NewlyImpacted)
	return result, nil
}

// commit publishes the computed state unless the task was cancelled or
// superseded. Holding o.mu keeps a new request from slipping in between the
// check and the write.
func (o *Orchestrator) commit(ctx context.Context, task *ImpactTask, vertices []math.Vec3, partition *PartitionState, submeshes SubmeshAssignment) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := cancelled(ctx); err != nil {
		return err
	}
	if task.generation != o.generation {
		return fmt.Errorf("%w: superseded", core.ErrImpactCancelled)
	}

	o.mesh.mu.Lock()
	defer o.mesh.mu.Unlock()
	return o.mesh.commit(vertices, partition, submeshes)
}

// IsCancelled reports whether err comes from a preempted or cancelled impact.
func IsCancelled(err error) bool {
	return errors.Is(err, core.ErrImpactCancelled)
}

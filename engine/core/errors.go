package core

import (
	"errors"
)

var (
	// ErrInvalidMeshData is returned when vertex and normal buffers are empty or differ in length.
	ErrInvalidMeshData = errors.New("invalid mesh data")
	// ErrNoDeformationTargets is returned when a deformer supplies no target vertices.
	ErrNoDeformationTargets = errors.New("no deformation targets")
	// ErrIndexOutOfRange is returned when a correspondence mapping points outside the vertex buffer.
	ErrIndexOutOfRange = errors.New("vertex index out of range")
	// ErrImpactCancelled is returned by impacts preempted before they committed.
	ErrImpactCancelled = errors.New("impact cancelled")

	ErrUnknownDeformable = errors.New("unknown deformable")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrQueueClosed       = errors.New("job queue closed")
)

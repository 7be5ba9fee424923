package phasor

import "errors"

var (
	// ErrEntityNotFound signals a lookup for an entity the database does not hold.
	ErrEntityNotFound = errors.New("phasor: entity not found")
	// ErrArchetypeNotFound signals a lookup for an archetype that does not exist.
	ErrArchetypeNotFound = errors.New("phasor: archetype not found")
	// ErrComponentNotFound signals that an entity does not carry the requested component.
	ErrComponentNotFound = errors.New("phasor: component not found")
	// ErrCannotRemoveAllComponents is returned when a removal would leave an entity empty.
	ErrCannotRemoveAllComponents = errors.New("phasor: cannot remove all components from entity")
	// ErrIndexOutOfBounds indicates a row index past the end of a column.
	ErrIndexOutOfBounds = errors.New("phasor: index out of bounds")
	// ErrComponentTypeMismatch indicates a value of the wrong component type.
	ErrComponentTypeMismatch = errors.New("phasor: component type mismatch")
	// ErrComponentSizeMismatch indicates columns whose element sizes disagree.
	ErrComponentSizeMismatch = errors.New("phasor: component size mismatch")
	// ErrComponentCountMismatch indicates a component tuple of the wrong arity for an archetype.
	ErrComponentCountMismatch = errors.New("phasor: component count mismatch")
	// ErrComponentIsDerived indicates direct storage access to a derived component type.
	ErrComponentIsDerived = errors.New("phasor: component is derived; use DeriveComponent")

	// ErrScheduleNotFound signals a lookup for an unregistered schedule label.
	ErrScheduleNotFound = errors.New("phasor: schedule not found")
	// ErrScheduleAlreadyExists signals a duplicate schedule label.
	ErrScheduleAlreadyExists = errors.New("phasor: schedule already exists")
	// ErrCyclicDependency indicates a cycle in the schedule graph.
	ErrCyclicDependency = errors.New("phasor: cyclic schedule dependency")

	// ErrResourceNotFound signals a lookup for an absent resource.
	ErrResourceNotFound = errors.New("phasor: resource not found")

	// ErrClosed indicates an operation on a closed channel.
	ErrClosed = errors.New("phasor: channel closed")
	// ErrQueueFull indicates a non-blocking send into a full channel.
	ErrQueueFull = errors.New("phasor: queue full")

	// ErrPluginAlreadyAdded indicates a duplicate unique plugin.
	ErrPluginAlreadyAdded = errors.New("phasor: plugin already added")

	// ErrWorkerFailed indicates a sub-app worker recorded an error during startup.
	ErrWorkerFailed = errors.New("phasor: sub-app worker failed")
	// ErrAlreadyStarted indicates Start on a running sub-app.
	ErrAlreadyStarted = errors.New("phasor: sub-app already started")
	// ErrWorkerNeverReady indicates a sub-app worker that never signalled readiness.
	ErrWorkerNeverReady = errors.New("phasor: sub-app worker never became ready")
	// ErrMissingSubAppResource indicates a sub-app channel wrapper with no backing resource.
	ErrMissingSubAppResource = errors.New("phasor: sub-app channel resource not installed")

	// ErrEventMustBeRegistered indicates an EventReader or EventWriter for an
	// event type that was never added to the app.
	ErrEventMustBeRegistered = errors.New("phasor: event type must be registered before use")
	// ErrEventReaderNotSubscribed indicates an EventReader bound outside a schedule.
	ErrEventReaderNotSubscribed = errors.New("phasor: event reader has no subscription")

	// ErrInvalidSystem indicates a value that cannot be turned into a system.
	ErrInvalidSystem = errors.New("phasor: invalid system function")
	// ErrInvalidSystemParam indicates a system parameter type the binder does not recognize.
	ErrInvalidSystemParam = errors.New("phasor: unsupported system parameter type")
)

package phasor

import (
	"errors"
	"reflect"
)

// Command is a deferred mutation: an execute step applied to the world and
// an optional cleanup step that always runs, flushed or not.
type Command struct {
	execute func(*World) error
	cleanup func()
}

// NewCommand wraps an execute function (and optional cleanup) as a Command.
func NewCommand(execute func(*World) error, cleanup func()) Command {
	return Command{execute: execute, cleanup: cleanup}
}

// CommandBuffer accumulates commands during one system invocation.
type CommandBuffer struct {
	queue []Command
}

// NewCommandBuffer creates an empty buffer.
func NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{}
}

// Len reports how many commands are queued.
func (b *CommandBuffer) Len() int { return len(b.queue) }

// Queue appends a command.
func (b *CommandBuffer) Queue(cmd Command) {
	if cmd.execute == nil && cmd.cleanup == nil {
		return
	}
	b.queue = append(b.queue, cmd)
}

// Flush executes queued commands in insertion order, running each command's
// cleanup after its execute, then discards the queue. Errors are joined and
// returned after every command has run.
func (b *CommandBuffer) Flush(w *World) error {
	var errs []error
	for _, cmd := range b.queue {
		if cmd.execute != nil {
			if err := cmd.execute(w); err != nil {
				errs = append(errs, err)
			}
		}
		if cmd.cleanup != nil {
			cmd.cleanup()
		}
	}
	b.queue = b.queue[:0]
	return errors.Join(errs...)
}

// Discard drops queued commands without executing them, running cleanups.
func (b *CommandBuffer) Discard() {
	for _, cmd := range b.queue {
		if cmd.cleanup != nil {
			cmd.cleanup()
		}
	}
	b.queue = b.queue[:0]
}

// Commands couples a command buffer with the world a system is running
// against. Structural mutations defer until the system returns; resource
// operations and queries act immediately, since they are not
// archetype-altering and later systems in the schedule may need them.
type Commands struct {
	world   *World
	buffer  *CommandBuffer
	markers []*ComponentMeta
}

func newCommands(w *World) *Commands {
	return &Commands{world: w, buffer: NewCommandBuffer()}
}

// World returns the world this handle operates on.
func (c *Commands) World() *World { return c.world }

// Resources returns the world's resource manager for immediate access.
func (c *Commands) Resources() *ResourceManager { return c.world.resources }

// Query runs a read-through query against the current database state.
func (c *Commands) Query(terms ...SpecTerm) QueryResult {
	return NewQuerySpec(terms...).Execute(c.world.db)
}

// CreateEntity reserves an entity id immediately and defers the storage
// insert, so the caller may reference the entity within the same tick. Any
// scope markers on this handle are attached as zero-value components.
func (c *Commands) CreateEntity(components ...any) EntityID {
	id := c.world.db.ReserveEntityID()
	all := make([]any, 0, len(components)+len(c.markers))
	all = append(all, components...)
	for _, m := range c.markers {
		all = append(all, reflect.New(m.typ).Elem().Interface())
	}
	c.buffer.Queue(NewCommand(func(w *World) error {
		return w.db.CreateEntityWithID(id, all...)
	}, nil))
	return id
}

// RemoveEntity defers destruction of an entity.
func (c *Commands) RemoveEntity(id EntityID) {
	c.buffer.Queue(NewCommand(func(w *World) error {
		return w.db.RemoveEntity(id)
	}, nil))
}

// AddComponents defers attaching component values to an entity.
func (c *Commands) AddComponents(id EntityID, components ...any) {
	c.buffer.Queue(NewCommand(func(w *World) error {
		return w.db.AddComponents(id, components...)
	}, nil))
}

// AddComponent defers attaching a single component value.
func (c *Commands) AddComponent(id EntityID, component any) {
	c.AddComponents(id, component)
}

// RemoveComponents defers detaching the listed component types.
func (c *Commands) RemoveComponents(id EntityID, toRemove ...ComponentID) {
	c.buffer.Queue(NewCommand(func(w *World) error {
		return w.db.RemoveComponents(id, toRemove...)
	}, nil))
}

// RemoveComponent defers detaching one component type.
func (c *Commands) RemoveComponent(id EntityID, componentID ComponentID) {
	c.RemoveComponents(id, componentID)
}

// Queue appends a custom command to the buffer.
func (c *Commands) Queue(cmd Command) {
	c.buffer.Queue(cmd)
}

// Flush applies the queued commands against the world.
func (c *Commands) Flush() error {
	return c.buffer.Flush(c.world)
}

// Discard drops queued commands without applying them.
func (c *Commands) Discard() {
	c.buffer.Discard()
}

// Scoped returns a handle sharing this one's buffer that tags every future
// CreateEntity with an additional zero-value marker component of type M.
func Scoped[M any](c *Commands) *Commands {
	m := metaOf(reflect.TypeFor[M]())
	markers := make([]*ComponentMeta, 0, len(c.markers)+1)
	markers = append(markers, c.markers...)
	markers = append(markers, m)
	return &Commands{world: c.world, buffer: c.buffer, markers: markers}
}

// CommandsInsertResource stores a resource immediately.
func CommandsInsertResource[T any](c *Commands, value T) {
	InsertResource(c.world.resources, value)
}

// CommandsGetResource reads a resource immediately.
func CommandsGetResource[T any](c *Commands) (*T, bool) {
	return GetResource[T](c.world.resources)
}

// CommandsRemoveResource removes a resource immediately.
func CommandsRemoveResource[T any](c *Commands) bool {
	return RemoveResource[T](c.world.resources)
}

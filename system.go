package phasor

import (
	"fmt"
	"reflect"
	"runtime"
)

// systemParam is implemented by the pointer form of every parameter wrapper.
// A fresh instance is default-constructed and bound for each invocation.
type systemParam interface {
	initSystemParam(c *Commands, sysID uint64) error
}

// registerableParam is the once-per-schedule-add hook. EventReader uses it
// to attach a broadcast subscription under the system's identity.
type registerableParam interface {
	registerSystemParam(sysID uint64, w *World) error
	unregisterSystemParam(sysID uint64, w *World)
}

// deinitableParam tears a bound parameter down after the system returns.
type deinitableParam interface {
	deinitSystemParam()
}

var (
	commandsPtrType = reflect.TypeFor[*Commands]()
	errorType       = reflect.TypeFor[error]()
	systemParamType = reflect.TypeFor[systemParam]()
)

// System wraps a user function with an invocation thunk that assembles its
// declared parameters from the world before each call.
type System struct {
	name   string
	id     uint64
	fn     reflect.Value
	params []reflect.Type
}

// NewSystem inspects fn's formal parameters and builds the invocation
// thunk. Every parameter must be *Commands or a pointer to a recognized
// wrapper (Res, ResMut, ResOpt, Query, GroupBy, EventReader, EventWriter,
// sub-app channel wrappers). fn may return nothing or a single error.
func NewSystem(fn any) (*System, error) {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, ErrInvalidSystem
	}
	if t.NumOut() > 1 || (t.NumOut() == 1 && t.Out(0) != errorType) {
		return nil, fmt.Errorf("%w: must return nothing or error", ErrInvalidSystem)
	}
	s := &System{
		id: uint64(v.Pointer()),
		fn: v,
	}
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		s.name = f.Name()
	}
	for i := 0; i < t.NumIn(); i++ {
		p := t.In(i)
		if p == commandsPtrType {
			s.params = append(s.params, p)
			continue
		}
		if p.Kind() == reflect.Pointer && p.Implements(systemParamType) {
			s.params = append(s.params, p)
			continue
		}
		return nil, fmt.Errorf("%w: parameter %d (%s)", ErrInvalidSystemParam, i, p)
	}
	return s, nil
}

// ID returns the system's identity: the address of its function.
func (s *System) ID() uint64 { return s.id }

// Name returns the function name for diagnostics.
func (s *System) Name() string { return s.name }

// register runs every parameter's registration hook against the world.
// Called once when the system joins a schedule.
func (s *System) register(w *World) error {
	for _, p := range s.params {
		if p == commandsPtrType {
			continue
		}
		inst := reflect.New(p.Elem()).Interface()
		if r, ok := inst.(registerableParam); ok {
			if err := r.registerSystemParam(s.id, w); err != nil {
				return err
			}
		}
	}
	return nil
}

// unregister releases registration-time state (event subscriptions).
func (s *System) unregister(w *World) {
	for _, p := range s.params {
		if p == commandsPtrType {
			continue
		}
		inst := reflect.New(p.Elem()).Interface()
		if r, ok := inst.(registerableParam); ok {
			r.unregisterSystemParam(s.id, w)
		}
	}
}

// invoke binds every parameter to the current world view, calls the user
// function, and tears the parameters down afterwards, error or not.
func (s *System) invoke(c *Commands) (err error) {
	args := make([]reflect.Value, len(s.params))
	var bound []deinitableParam
	defer func() {
		for _, d := range bound {
			d.deinitSystemParam()
		}
	}()
	for i, p := range s.params {
		if p == commandsPtrType {
			args[i] = reflect.ValueOf(c)
			continue
		}
		inst := reflect.New(p.Elem())
		sp := inst.Interface().(systemParam)
		if err := sp.initSystemParam(c, s.id); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		if d, ok := inst.Interface().(deinitableParam); ok {
			bound = append(bound, d)
		}
		args[i] = inst
	}
	out := s.fn.Call(args)
	if len(out) == 1 && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

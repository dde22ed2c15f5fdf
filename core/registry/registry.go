// Package registry maps Ako short type names (`&name`) to host type handles.
//
// A Registry is an explicit instance: hosts build one, populate it however
// suits them (explicit calls, generated code, RegisterBuiltins) and pass it
// to the parser and serializer. Nothing in Ako keeps a process-wide registry.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/tuyuji/ako/core/suggest"
)

// Handle is the opaque host type reference a short type name resolves to.
type Handle = reflect.Type

var (
	// ErrEmptyName is returned when registering a short type without a name
	ErrEmptyName = errors.New("registry: short type name must not be empty")
	// ErrNilHandle is returned when registering a nil handle
	ErrNilHandle = errors.New("registry: handle must not be nil")
)

// UnknownShortTypeError reports a name that is not registered.
type UnknownShortTypeError struct {
	Name       string
	Suggestion string // closest registered name, if any
}

func (e *UnknownShortTypeError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown short type %q (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("unknown short type %q", e.Name)
}

// UnregisteredHandleError reports a handle that has no registered name.
type UnregisteredHandleError struct {
	Handle Handle
}

func (e *UnregisteredHandleError) Error() string {
	return fmt.Sprintf("type %v is not registered under any short type name", e.Handle)
}

// DuplicateNameError reports an attempt to rebind a name to a different handle.
type DuplicateNameError struct {
	Name     string
	Existing Handle
	New      Handle
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("short type %q is already registered as %v (cannot rebind to %v)", e.Name, e.Existing, e.New)
}

// Registry holds the bidirectional name/handle mapping.
// Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]Handle
	byHandle map[Handle]string // first name registered for a handle
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		byName:   make(map[string]Handle),
		byHandle: make(map[Handle]string),
	}
}

// Register binds name to handle. Registering the same pair twice is a no-op.
// A handle may carry several names; ReverseResolve returns the first one.
func (r *Registry) Register(name string, handle Handle) error {
	if name == "" {
		return ErrEmptyName
	}
	if handle == nil {
		return ErrNilHandle
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok {
		if existing == handle {
			return nil
		}
		return &DuplicateNameError{Name: name, Existing: existing, New: handle}
	}

	r.byName[name] = handle
	if _, ok := r.byHandle[handle]; !ok {
		r.byHandle[handle] = name
	}
	return nil
}

// RegisterType binds name to the handle of T.
func RegisterType[T any](r *Registry, name string) error {
	return r.Register(name, reflect.TypeFor[T]())
}

// Unregister removes name. Unknown names are ignored.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle, ok := r.byName[name]
	if !ok {
		return
	}
	delete(r.byName, name)

	if r.byHandle[handle] != name {
		return
	}
	delete(r.byHandle, handle)

	// Re-point the reverse entry at another alias, deterministically
	var aliases []string
	for n, h := range r.byName {
		if h == handle {
			aliases = append(aliases, n)
		}
	}
	if len(aliases) > 0 {
		sort.Strings(aliases)
		r.byHandle[handle] = aliases[0]
	}
}

// Clear removes every registration.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName = make(map[string]Handle)
	r.byHandle = make(map[Handle]string)
}

// Resolve returns the handle registered for name.
func (r *Registry) Resolve(name string) (Handle, error) {
	r.mu.RLock()
	handle, ok := r.byName[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &UnknownShortTypeError{Name: name, Suggestion: r.closest(name)}
	}
	return handle, nil
}

// ReverseResolve returns the name registered for handle.
func (r *Registry) ReverseResolve(handle Handle) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.byHandle[handle]
	if !ok {
		return "", &UnregisteredHandleError{Handle: handle}
	}
	return name, nil
}

// Names returns all registered names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered names
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// closest finds the nearest registered name for error messages
func (r *Registry) closest(name string) string {
	return suggest.Closest(name, r.Names())
}

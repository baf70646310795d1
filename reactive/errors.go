package reactive

import "github.com/pkg/errors"

var (
	// ErrInvalidTarget is reported when Set or Del is called on something
	// that is not a tracked container handle.
	ErrInvalidTarget = errors.New("cannot set or delete reactive property on a non-container value")
	// ErrRootMutation is reported when a property is added to or removed from
	// a container that is already used as root state.
	ErrRootMutation = errors.New("avoid adding or deleting properties on root state at runtime, declare them upfront")
	// ErrNotConfigurable is returned when redefining or deleting a
	// non-configurable property.
	ErrNotConfigurable = errors.New("property is not configurable")
	// ErrNotExtensible is returned when adding a property to a container
	// that had PreventExtensions called on it.
	ErrNotExtensible = errors.New("container is not extensible")
	// ErrBadPath is reported when a watch expression is not a simple
	// dot-delimited path.
	ErrBadPath = errors.New("watcher only accepts simple dot-delimited paths, use a getter function instead")
	// ErrRunaway is reported when a watcher keeps re-triggering itself
	// within a single flush.
	ErrRunaway = errors.New("infinite update loop")
)

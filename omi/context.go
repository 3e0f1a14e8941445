package omi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/d5/tengo/v2"
	"github.com/milk9111/omiloader/config"
	"github.com/milk9111/omiloader/document"
	"github.com/milk9111/omiloader/ecs"
	"github.com/milk9111/omiloader/ecs/component"
	"github.com/milk9111/omiloader/scene"
)

// EntityHandle is the importer's record of the entity made for one node.
type EntityHandle struct {
	ID        string
	Entity    ecs.Entity
	Tag       string
	Success   bool
	NodeIndex int
	Archetype component.Archetype
	Wrapper   *tengo.ImmutableMap
}

type deferredAction struct {
	name string
	fn   func() error
}

// ImportContext is the mutable state of one import call. It is used from a
// single goroutine and discarded once the import finishes.
type ImportContext struct {
	ctx      context.Context
	doc      *document.Document
	visuals  []*document.Visual
	scene    *scene.Scene
	settings config.Settings
	logger   *log.Logger

	data     map[string]any
	entities map[int]*EntityHandle
	deferred []deferredAction

	warnings int
	failures int
}

func NewImportContext(ctx context.Context, doc *document.Document, visuals []*document.Visual, scn *scene.Scene, settings config.Settings, logger *log.Logger) *ImportContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ImportContext{
		ctx:      ctx,
		doc:      doc,
		visuals:  visuals,
		scene:    scn,
		settings: settings.Clone(),
		logger:   logger,
		data:     make(map[string]any),
		entities: make(map[int]*EntityHandle),
	}
}

func (ic *ImportContext) Context() context.Context     { return ic.ctx }
func (ic *ImportContext) Document() *document.Document { return ic.doc }
func (ic *ImportContext) Scene() *scene.Scene          { return ic.scene }
func (ic *ImportContext) Settings() config.Settings    { return ic.settings }
func (ic *ImportContext) Logger() *log.Logger          { return ic.logger }

// Visual returns the visual object instantiated for a node, if any.
func (ic *ImportContext) Visual(index int) *document.Visual {
	if index < 0 || index >= len(ic.visuals) {
		return nil
	}
	return ic.visuals[index]
}

func (ic *ImportContext) SetData(key string, v any) {
	ic.data[key] = v
}

// GetData reads a value of type T. Missing keys and values of another type
// both report false.
func GetData[T any](ic *ImportContext, key string) (T, bool) {
	var zero T
	if ic == nil {
		return zero, false
	}
	raw, ok := ic.data[key]
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// lookupDefinition returns items[index] of a document-scoped array.
func lookupDefinition[T any](ic *ImportContext, key string, index int) (T, error) {
	var zero T
	items, _ := GetData[[]T](ic, key)
	if index < 0 || index >= len(items) {
		return zero, fmt.Errorf("%w: %s[%d], have %d", ErrIndexOutOfRange, key, index, len(items))
	}
	return items[index], nil
}

func (ic *ImportContext) EntityForNode(index int) (*EntityHandle, bool) {
	h, ok := ic.entities[index]
	return h, ok
}

// RegisterEntityForNode records h for index. A node that already has an
// entity keeps it, and that existing handle is returned.
func (ic *ImportContext) RegisterEntityForNode(index int, h *EntityHandle) *EntityHandle {
	if existing, ok := ic.entities[index]; ok {
		return existing
	}
	if h == nil {
		return nil
	}
	h.NodeIndex = index
	ic.entities[index] = h
	return h
}

// GetOrCreateEntity classifies and creates the node's entity the first time
// it is needed.
func (ic *ImportContext) GetOrCreateEntity(index int) (*EntityHandle, error) {
	if h, ok := ic.entities[index]; ok {
		return h, nil
	}
	if ic.doc.Node(index) == nil {
		return nil, fmt.Errorf("%w: node %d, have %d", ErrIndexOutOfRange, index, len(ic.doc.Nodes))
	}
	h, err := ic.createEntity(index)
	if err != nil {
		return nil, err
	}
	return ic.RegisterEntityForNode(index, h), nil
}

// Entities returns the node to entity map ordered by node index.
func (ic *ImportContext) Entities() []*EntityHandle {
	keys := make([]int, 0, len(ic.entities))
	for k := range ic.entities {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]*EntityHandle, 0, len(keys))
	for _, k := range keys {
		out = append(out, ic.entities[k])
	}
	return out
}

// PushDeferred queues fn to run after every node has been visited.
func (ic *ImportContext) PushDeferred(name string, fn func() error) {
	if fn == nil {
		return
	}
	ic.deferred = append(ic.deferred, deferredAction{name: name, fn: fn})
}

func (ic *ImportContext) PendingDeferred() int {
	return len(ic.deferred)
}

// RunDeferred runs the queued actions in order, each exactly once. Actions
// queued while draining run in the same pass. A failing action is logged and
// the rest still run. It returns the number of failures.
func (ic *ImportContext) RunDeferred() int {
	failed := 0
	for len(ic.deferred) > 0 {
		action := ic.deferred[0]
		ic.deferred = ic.deferred[1:]
		if err := invoke(action.name, action.fn); err != nil {
			ic.report("deferred "+action.name, err)
			failed++
		}
	}
	ic.deferred = nil
	return failed
}

// Warnf logs a warning that does not fail the import.
func (ic *ImportContext) Warnf(format string, args ...any) {
	ic.warnings++
	ic.logger.Printf("Importer: warning: "+format, args...)
}

// report classifies err: bad data and bad indices are warnings, anything
// else counts as a handler failure.
func (ic *ImportContext) report(what string, err error) {
	if errors.Is(err, ErrMalformedExtension) || errors.Is(err, ErrIndexOutOfRange) {
		ic.Warnf("%s: %v", what, err)
		return
	}
	ic.failures++
	ic.logger.Printf("Importer: error: %s: %v", what, err)
}

func (ic *ImportContext) checkCancelled() error {
	if err := ic.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}

func invoke(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrHandlerPanic, name, r)
		}
	}()
	return fn()
}

package omi

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/milk9111/omiloader/document"
	"gopkg.in/yaml.v3"
)

var (
	ErrMalformedExtension = errors.New("omi: malformed extension")
	ErrIndexOutOfRange    = errors.New("omi: index out of range")
	ErrUnknownExtension   = errors.New("omi: unknown extension")
	ErrCancelled          = errors.New("omi: import cancelled")
	ErrHandlerPanic       = errors.New("omi: handler panicked")
)

type Scope int

const (
	ScopeDocument Scope = iota
	ScopeNode
)

func (s Scope) String() string {
	if s == ScopeNode {
		return "node"
	}
	return "document"
}

type Handler interface {
	Kind() Kind
	Priority() int
	// PayloadType names the decoded data type the handler accepts.
	PayloadType() string
}

type DocumentHandler interface {
	Handler
	ImportDocument(ic *ImportContext, raw any) error
}

type NodeHandler interface {
	Handler
	ImportNode(ic *ImportContext, raw any, node *document.Node) error
}

type entry struct {
	handler Handler
	seq     int
}

// Registry holds the document and node handlers of one import session.
// Duplicate registrations are kept; lookups pick the highest priority and
// break ties by registration order.
type Registry struct {
	document []entry
	node     []entry
	seq      int
	logger   *log.Logger
}

func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{logger: logger}
}

func (r *Registry) RegisterDocument(h DocumentHandler) {
	if r == nil || h == nil {
		return
	}
	r.seq++
	r.document = append(r.document, entry{handler: h, seq: r.seq})
}

func (r *Registry) RegisterNode(h NodeHandler) {
	if r == nil || h == nil {
		return
	}
	r.seq++
	r.node = append(r.node, entry{handler: h, seq: r.seq})
}

func (r *Registry) LookupDocument(kind Kind) (DocumentHandler, bool) {
	h, ok := r.Lookup(ScopeDocument, kind, "")
	if !ok {
		return nil, false
	}
	return h.(DocumentHandler), true
}

func (r *Registry) LookupNode(kind Kind) (NodeHandler, bool) {
	h, ok := r.Lookup(ScopeNode, kind, "")
	if !ok {
		return nil, false
	}
	return h.(NodeHandler), true
}

// Lookup returns the winning handler for (scope, kind, payloadType). An empty
// payloadType matches any handler of the kind.
func (r *Registry) Lookup(scope Scope, kind Kind, payloadType string) (Handler, bool) {
	if r == nil {
		return nil, false
	}
	var candidates []entry
	for _, e := range r.entries(scope) {
		if e.handler.Kind() != kind {
			continue
		}
		if payloadType != "" && e.handler.PayloadType() != payloadType {
			continue
		}
		candidates = append(candidates, e)
	}
	if len(candidates) == 0 {
		return nil, false
	}
	sortEntries(candidates)

	best := candidates[0]
	tied := 0
	for _, c := range candidates[1:] {
		if c.handler.Priority() == best.handler.Priority() {
			tied++
		}
	}
	if tied > 0 {
		r.logger.Printf("Registry: ambiguous handler for %s (%s): %d candidates at priority %d, using first registered",
			kind, scope, tied+1, best.handler.Priority())
	}
	return best.handler, true
}

// DocumentHandlers returns the winning handler of each registered document
// kind, in execution order: descending priority, ties by registration.
func (r *Registry) DocumentHandlers() []DocumentHandler {
	if r == nil {
		return nil
	}
	sorted := append([]entry(nil), r.document...)
	sortEntries(sorted)

	winners := make(map[Kind]entry, len(sorted))
	var out []DocumentHandler
	for _, e := range sorted {
		k := e.handler.Kind()
		best, seen := winners[k]
		if !seen {
			winners[k] = e
			out = append(out, e.handler.(DocumentHandler))
			continue
		}
		if e.handler.Priority() == best.handler.Priority() {
			r.logger.Printf("Registry: ambiguous handler for %s (%s): several at priority %d, using first registered",
				k, ScopeDocument, best.handler.Priority())
		}
	}
	return out
}

// DocumentKinds lists the kinds of DocumentHandlers, in the same order.
func (r *Registry) DocumentKinds() []Kind {
	handlers := r.DocumentHandlers()
	out := make([]Kind, 0, len(handlers))
	for _, h := range handlers {
		out = append(out, h.Kind())
	}
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.document) + len(r.node)
}

func (r *Registry) entries(scope Scope) []entry {
	if scope == ScopeNode {
		return r.node
	}
	return r.document
}

func sortEntries(entries []entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		pi, pj := entries[i].handler.Priority(), entries[j].handler.Priority()
		if pi != pj {
			return pi > pj
		}
		return entries[i].seq < entries[j].seq
	})
}

// Decode converts raw extension data into T by round-tripping it through YAML.
func Decode[T any](raw any) (T, error) {
	var zero T
	if raw == nil {
		return zero, fmt.Errorf("%w: no data", ErrMalformedExtension)
	}
	b, err := yaml.Marshal(raw)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrMalformedExtension, err)
	}
	var out T
	if err := yaml.Unmarshal(b, &out); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrMalformedExtension, err)
	}
	return out, nil
}

func payloadName[T any]() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

type documentFunc[T any] struct {
	kind     Kind
	priority int
	fn       func(ic *ImportContext, payload T) error
}

// DocumentFunc adapts a typed function into a DocumentHandler. Data that does
// not decode into T fails with ErrMalformedExtension before fn runs.
func DocumentFunc[T any](kind Kind, priority int, fn func(ic *ImportContext, payload T) error) DocumentHandler {
	return &documentFunc[T]{kind: kind, priority: priority, fn: fn}
}

func (h *documentFunc[T]) Kind() Kind          { return h.kind }
func (h *documentFunc[T]) Priority() int       { return h.priority }
func (h *documentFunc[T]) PayloadType() string { return payloadName[T]() }

func (h *documentFunc[T]) ImportDocument(ic *ImportContext, raw any) error {
	payload, err := Decode[T](raw)
	if err != nil {
		return err
	}
	return h.fn(ic, payload)
}

type nodeFunc[T any] struct {
	kind     Kind
	priority int
	fn       func(ic *ImportContext, node *document.Node, payload T) error
}

// NodeFunc adapts a typed function into a NodeHandler.
func NodeFunc[T any](kind Kind, priority int, fn func(ic *ImportContext, node *document.Node, payload T) error) NodeHandler {
	return &nodeFunc[T]{kind: kind, priority: priority, fn: fn}
}

func (h *nodeFunc[T]) Kind() Kind          { return h.kind }
func (h *nodeFunc[T]) Priority() int       { return h.priority }
func (h *nodeFunc[T]) PayloadType() string { return payloadName[T]() }

func (h *nodeFunc[T]) ImportNode(ic *ImportContext, raw any, node *document.Node) error {
	payload, err := Decode[T](raw)
	if err != nil {
		return err
	}
	return h.fn(ic, node, payload)
}

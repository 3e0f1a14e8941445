// Package omi imports the OMI extension data of a parsed document into a
// scene: document-level definitions first, then every node's extensions,
// then the deferred cross-node references.
package omi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"

	"github.com/milk9111/omiloader/config"
	"github.com/milk9111/omiloader/document"
	"github.com/milk9111/omiloader/ecs"
	"github.com/milk9111/omiloader/scene"
)

type Stage int

const (
	StageDocument Stage = iota
	StageNodes
	StageDeferred
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageDocument:
		return "document"
	case StageNodes:
		return "nodes"
	case StageDeferred:
		return "deferred"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Result summarizes one import. Warnings count skipped extension data,
// Failures count handlers and deferred actions that returned an error or
// panicked.
type Result struct {
	Entities       []*EntityHandle
	Stage          Stage
	Warnings       int
	Failures       int
	DeferredFailed int

	// Registered lists the directory ids this run added, in registration order.
	Registered []string
}

// Entity returns the handle created for a node.
func (r *Result) Entity(node int) (*EntityHandle, bool) {
	if r == nil {
		return nil, false
	}
	for _, h := range r.Entities {
		if h.NodeIndex == node {
			return h, true
		}
	}
	return nil, false
}

type Importer struct {
	registry *Registry
	settings config.Settings
	logger   *log.Logger
}

// NewImporter builds an importer. A nil registry uses DefaultRegistry.
func NewImporter(registry *Registry, settings config.Settings, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.Default()
	}
	if registry == nil {
		registry = DefaultRegistry(logger)
	}
	return &Importer{registry: registry, settings: settings, logger: logger}
}

func (im *Importer) Registry() *Registry {
	return im.registry
}

// Import walks the stages in order and checks ctx between them. Only
// cancellation and missing inputs return an error; a cancelled import leaves
// the scene partially populated and must be treated as failed.
func (im *Importer) Import(ctx context.Context, doc *document.Document, visuals []*document.Visual, scn *scene.Scene) (*Result, error) {
	if doc == nil || scn == nil {
		return nil, errors.New("omi: import needs a document and a scene")
	}
	if visuals == nil {
		visuals = doc.Visuals()
	}

	mark := scn.World.Events().Len()
	ic := NewImportContext(ctx, doc, visuals, scn, im.settings, im.logger)
	res := &Result{Stage: StageDocument}
	documents := DocumentProcessor{Registry: im.registry}
	nodes := NodeProcessor{Registry: im.registry}

	for res.Stage != StageDone {
		if err := ic.checkCancelled(); err != nil {
			im.logger.Printf("Importer: cancelled before %s stage", res.Stage)
			return im.finish(ic, res, mark), err
		}

		var err error
		switch res.Stage {
		case StageDocument:
			err = documents.Process(ic)
		case StageNodes:
			err = nodes.ProcessNodes(ic)
		case StageDeferred:
			res.DeferredFailed = ic.RunDeferred()
		}
		if err != nil {
			im.logger.Printf("Importer: %s stage: %v", res.Stage, err)
			return im.finish(ic, res, mark), err
		}
		res.Stage++
	}

	if scn.Title == "" {
		scn.Title = doc.Title()
	}
	im.finish(ic, res, mark)
	im.logger.Printf("Importer: imported %d nodes into %d entities (%d warnings, %d failures)",
		len(doc.Nodes), len(res.Entities), res.Warnings, res.Failures)
	return res, nil
}

// finish fills res from ic. Events queued before mark belong to other
// consumers and stay queued.
func (im *Importer) finish(ic *ImportContext, res *Result, mark int) *Result {
	res.Entities = ic.Entities()
	res.Registered = res.Registered[:0]
	for _, evt := range ic.scene.World.Events().Since(mark) {
		switch evt.Type {
		case ecs.EventEntityRegistered:
			res.Registered = append(res.Registered, evt.ID)
		case ecs.EventEntityDestroyed:
			res.Registered = slices.DeleteFunc(res.Registered, func(id string) bool { return id == evt.ID })
		}
	}
	res.Warnings = ic.warnings
	res.Failures = ic.failures
	return res
}

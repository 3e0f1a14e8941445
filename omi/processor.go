package omi

import (
	"fmt"

	"github.com/milk9111/omiloader/document"
)

// DocumentProcessor runs document-level handlers in priority order.
type DocumentProcessor struct {
	Registry *Registry
}

// Process invokes the winning handler of every registered kind whose
// extension is present at the document root. Missing extensions are skipped
// silently; bad data and handler failures are logged and the pass goes on.
// Only cancellation stops it early.
func (p DocumentProcessor) Process(ic *ImportContext) error {
	for _, h := range p.Registry.DocumentHandlers() {
		if err := ic.checkCancelled(); err != nil {
			return err
		}
		kind := h.Kind()
		raw, ok := ic.doc.Extension(kind.String())
		if !ok {
			continue
		}
		if ic.settings.Disabled(kind.String()) {
			ic.logger.Printf("Importer: %s disabled, skipping document data", kind)
			continue
		}
		if err := invoke(kind.String(), func() error { return h.ImportDocument(ic, raw) }); err != nil {
			ic.report(fmt.Sprintf("document %s", kind), err)
		}
	}
	return nil
}

// NodeProcessor dispatches node-level extensions, node by node in document
// order.
type NodeProcessor struct {
	Registry *Registry
}

// Process visits every node and then drains the deferred queue.
func (p NodeProcessor) Process(ic *ImportContext) error {
	if err := p.ProcessNodes(ic); err != nil {
		return err
	}
	ic.RunDeferred()
	return nil
}

// ProcessNodes visits the nodes without draining deferred actions. Every
// node ends up with an entity, whether or not it carries extensions.
func (p NodeProcessor) ProcessNodes(ic *ImportContext) error {
	for _, node := range ic.doc.Nodes {
		if err := ic.checkCancelled(); err != nil {
			return err
		}
		p.processNode(ic, node)
		if _, err := ic.GetOrCreateEntity(node.Index); err != nil {
			ic.report(fmt.Sprintf("node %d entity", node.Index), err)
		}
	}
	return nil
}

func (p NodeProcessor) processNode(ic *ImportContext, node *document.Node) {
	for _, ext := range dispatchOrder(node) {
		kind := ParseKind(ext.Name)
		if kind == KindUnknown {
			if ic.settings.LogUnknownExtensions {
				ic.logger.Printf("Importer: node %d: %v %q, skipping", node.Index, ErrUnknownExtension, ext.Name)
			}
			continue
		}
		if ic.settings.Disabled(ext.Name) {
			continue
		}
		h, ok := p.Registry.LookupNode(kind)
		if !ok {
			if ic.settings.LogUnknownExtensions {
				ic.logger.Printf("Importer: node %d: no node handler for %s", node.Index, kind)
			}
			continue
		}
		raw := ext.Raw
		if err := invoke(ext.Name, func() error { return h.ImportNode(ic, raw, node) }); err != nil {
			ic.report(fmt.Sprintf("node %d %s", node.Index, kind), err)
		}
	}
}

// dispatchOrder puts the interdependent kinds first in their fixed order and
// keeps every other extension in the order the node lists it.
func dispatchOrder(node *document.Node) []document.Extension {
	out := make([]document.Extension, 0, len(node.Extensions))
	used := make([]bool, len(node.Extensions))
	for _, kind := range nodeDispatchOrder {
		name := kind.String()
		for i, ext := range node.Extensions {
			if !used[i] && ext.Name == name {
				out = append(out, ext)
				used[i] = true
			}
		}
	}
	for i, ext := range node.Extensions {
		if !used[i] {
			out = append(out, ext)
		}
	}
	return out
}

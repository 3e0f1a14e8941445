package omi

import (
	"bytes"
	"context"
	"log"
	"testing"

	"github.com/milk9111/omiloader/config"
	"github.com/milk9111/omiloader/document"
	"github.com/milk9111/omiloader/scene"
)

func parseDoc(t *testing.T, src string) (*document.Document, []*document.Visual) {
	t.Helper()
	doc, visuals, err := document.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc, visuals
}

func newTestScene() (*scene.Scene, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	return scene.New(scene.Options{Logger: logger}), &buf
}

// runImport imports src into a fresh scene with the built-in handlers.
func runImport(t *testing.T, src string) (*scene.Scene, *Result, *bytes.Buffer) {
	t.Helper()
	doc, visuals := parseDoc(t, src)
	scn, buf := newTestScene()
	im := NewImporter(nil, config.Default(), scn.Logger())
	res, err := im.Import(context.Background(), doc, visuals, scn)
	if err != nil {
		t.Fatalf("Import: %v\n%s", err, buf.String())
	}
	return scn, res, buf
}

func mustEntity(t *testing.T, res *Result, node int) *EntityHandle {
	t.Helper()
	h, ok := res.Entity(node)
	if !ok {
		t.Fatalf("no entity for node %d", node)
	}
	return h
}

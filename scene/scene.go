// Package scene aggregates the hosts a document is imported into.
package scene

import (
	"log"

	"github.com/milk9111/omiloader/ecs"
	"github.com/milk9111/omiloader/environment"
	"github.com/milk9111/omiloader/physics"
	"github.com/milk9111/omiloader/scripting"
	"github.com/milk9111/omiloader/sound"
	"github.com/milk9111/omiloader/spawn"
)

type Options struct {
	PhysicsIterations int
	Audio             sound.Backend
	Logger            *log.Logger
}

// Scene is one loaded world. Everything in it lives until Reset.
type Scene struct {
	World       *ecs.World
	Physics     *physics.World
	Environment *environment.Environment
	Sound       *sound.Library
	Spawns      *spawn.Registry
	Wrappers    *scripting.Wrappers

	// Source and Title describe the last imported document.
	Source string
	Title  string

	logger *log.Logger
}

func New(opts Options) *Scene {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Scene{
		World:       ecs.NewWorld(),
		Physics:     physics.NewWorld(opts.PhysicsIterations, logger),
		Environment: environment.New(logger),
		Sound:       sound.NewLibrary(opts.Audio, logger),
		Spawns:      spawn.NewRegistry(logger),
		Wrappers:    scripting.NewWrappers(),
		logger:      logger,
	}
}

func (s *Scene) Logger() *log.Logger {
	if s == nil || s.logger == nil {
		return log.Default()
	}
	return s.logger
}

// Reset unloads the current document: entities, physics, sky, audio, spawn
// points and script wrappers are all dropped.
func (s *Scene) Reset() {
	if s == nil {
		return
	}
	s.World.Reset()
	s.Physics.Reset()
	s.Environment.Reset()
	s.Sound.Reset()
	s.Spawns.Reset()
	s.Wrappers.Reset()
	s.Source = ""
	s.Title = ""
	s.logger.Printf("Scene: reset")
}

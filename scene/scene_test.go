package scene

import (
	"bytes"
	"log"
	"testing"

	"github.com/milk9111/omiloader/common"
	"github.com/milk9111/omiloader/environment"
	"github.com/milk9111/omiloader/physics"
)

func TestResetClearsEveryHost(t *testing.T) {
	s := New(Options{Logger: log.New(&bytes.Buffer{}, "", 0)})

	e := s.World.CreateEntity()
	if err := s.World.RegisterEntity(e, "crate"); err != nil {
		t.Fatalf("RegisterEntity: %v", err)
	}
	s.Physics.AddBody(physics.BodySpec{Rotation: common.IdentityQuat, GravityFactor: 1})
	s.Environment.SetSky(environment.Sky{Type: environment.SkyPlain})
	s.Spawns.Register(common.Zero3, common.IdentityQuat, "start", "", "")
	s.Title = "demo"

	s.Reset()

	if _, ok := s.World.FindEntity("crate"); ok {
		t.Fatalf("entity directory should be empty")
	}
	if s.Physics.BodyCount() != 0 {
		t.Fatalf("BodyCount = %d", s.Physics.BodyCount())
	}
	if _, ok := s.Environment.Sky(); ok {
		t.Fatalf("sky should be cleared")
	}
	if s.Spawns.Len() != 0 || s.Title != "" {
		t.Fatalf("spawns/title not cleared")
	}
}

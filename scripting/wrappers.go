// Package scripting exposes imported entities to tengo scripts. Every entity
// gets one capability map, created when the entity is classified.
package scripting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/milk9111/omiloader/common"
	"github.com/milk9111/omiloader/ecs"
	"github.com/milk9111/omiloader/ecs/component"
)

var ErrNoWrapper = errors.New("scripting: no wrapper")

type wrapperKey struct {
	entity    ecs.Entity
	archetype component.Archetype
}

// Wrappers caches one capability map per (entity, archetype).
type Wrappers struct {
	cache map[wrapperKey]*tengo.ImmutableMap
}

func NewWrappers() *Wrappers {
	return &Wrappers{cache: make(map[wrapperKey]*tengo.ImmutableMap)}
}

func (w *Wrappers) GetOrCreate(world *ecs.World, e ecs.Entity, archetype component.Archetype) *tengo.ImmutableMap {
	if w == nil || world == nil || !world.IsAlive(e) {
		return nil
	}
	if w.cache == nil {
		w.cache = make(map[wrapperKey]*tengo.ImmutableMap)
	}
	key := wrapperKey{entity: e, archetype: archetype}
	if m, ok := w.cache[key]; ok {
		return m
	}
	m := buildWrapper(world, e, archetype)
	w.cache[key] = m
	return m
}

// Lookup returns the wrapper of an entity regardless of archetype.
func (w *Wrappers) Lookup(e ecs.Entity) (*tengo.ImmutableMap, bool) {
	if w == nil {
		return nil, false
	}
	for k, m := range w.cache {
		if k.entity == e {
			return m, true
		}
	}
	return nil, false
}

func (w *Wrappers) Len() int {
	if w == nil {
		return 0
	}
	return len(w.cache)
}

func (w *Wrappers) Reset() {
	if w == nil {
		return
	}
	w.cache = make(map[wrapperKey]*tengo.ImmutableMap)
}

func buildWrapper(world *ecs.World, e ecs.Entity, archetype component.Archetype) *tengo.ImmutableMap {
	values := map[string]tengo.Object{}

	values["id"] = &tengo.UserFunction{Name: "id", Value: func(args ...tengo.Object) (tengo.Object, error) {
		id, ok := world.EntityID(e)
		if !ok {
			return tengo.UndefinedValue, nil
		}
		return &tengo.String{Value: id}, nil
	}}

	values["archetype"] = &tengo.UserFunction{Name: "archetype", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.String{Value: archetype.String()}, nil
	}}

	values["position"] = &tengo.UserFunction{Name: "position", Value: func(args ...tengo.Object) (tengo.Object, error) {
		tr, ok := ecs.Get(world, e, component.TransformComponent.Kind())
		if !ok {
			return vecObject(common.Zero3), nil
		}
		return vecObject(tr.Position), nil
	}}

	values["set_position"] = &tengo.UserFunction{Name: "set_position", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 3 {
			return nil, tengo.ErrWrongNumArguments
		}
		var xyz [3]float64
		for i, a := range args {
			f, ok := tengo.ToFloat64(a)
			if !ok {
				return nil, tengo.ErrInvalidArgumentType{Name: fmt.Sprintf("arg%d", i), Expected: "float", Found: a.TypeName()}
			}
			xyz[i] = f
		}
		tr, ok := ecs.Get(world, e, component.TransformComponent.Kind())
		if !ok {
			tr = &component.Transform{Rotation: common.IdentityQuat, Scale: common.One3}
			if err := ecs.Add(world, e, component.TransformComponent.Kind(), tr); err != nil {
				return tengo.FalseValue, nil
			}
		}
		tr.Position = common.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}
		return tengo.TrueValue, nil
	}}

	values["has"] = &tengo.UserFunction{Name: "has", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return tengo.FalseValue, nil
		}
		name, _ := tengo.ToString(args[0])
		if world.HasNamed(e, strings.ToLower(strings.TrimSpace(name))) {
			return tengo.TrueValue, nil
		}
		return tengo.FalseValue, nil
	}}

	values["components"] = &tengo.UserFunction{Name: "components", Value: func(args ...tengo.Object) (tengo.Object, error) {
		names := world.ComponentNames(e)
		out := make([]tengo.Object, len(names))
		for i, n := range names {
			out[i] = &tengo.String{Value: n}
		}
		return &tengo.ImmutableArray{Value: out}, nil
	}}

	return &tengo.ImmutableMap{Value: values}
}

func vecObject(v common.Vec3) tengo.Object {
	return &tengo.Array{Value: []tengo.Object{
		&tengo.Float{Value: v.X},
		&tengo.Float{Value: v.Y},
		&tengo.Float{Value: v.Z},
	}}
}

// Run executes src with the wrapper bound to `self` and returns the value of
// the script global `result`, if the script defines one.
func Run(ctx context.Context, src string, self *tengo.ImmutableMap) (any, error) {
	if self == nil {
		return nil, ErrNoWrapper
	}
	script := tengo.NewScript([]byte(src))
	if err := script.Add("self", self); err != nil {
		return nil, err
	}
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("scripting: compile: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := compiled.RunContext(ctx); err != nil {
		return nil, fmt.Errorf("scripting: run: %w", err)
	}
	if !compiled.IsDefined("result") {
		return nil, nil
	}
	return compiled.Get("result").Value(), nil
}

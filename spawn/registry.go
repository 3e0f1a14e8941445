// Package spawn collects spawn point candidates from a loaded document and
// picks one for a new participant.
package spawn

import (
	"fmt"
	"log"
	"math/rand"
	"strings"

	"github.com/milk9111/omiloader/common"
)

type Mode int

const (
	First Mode = iota
	Random
	TeamBased
	Named
)

func (m Mode) String() string {
	switch m {
	case First:
		return "first"
	case Random:
		return "random"
	case TeamBased:
		return "team"
	case Named:
		return "named"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts the names used in config files and on the command line.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return First, nil
	case "random":
		return Random, nil
	case "team", "teambased", "team_based":
		return TeamBased, nil
	case "named", "name":
		return Named, nil
	default:
		return First, fmt.Errorf("spawn: unknown mode %q", s)
	}
}

type Point struct {
	Position  common.Vec3
	Rotation  common.Quat
	Title     string
	Team      string
	Group     string
	NodeIndex int
}

// Registry lives as long as the loaded world. Entries are only appended
// during an import and cleared by Reset.
type Registry struct {
	points []*Point
	rng    *rand.Rand
	logger *log.Logger
}

func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{logger: logger}
}

// SetRand replaces the source used by Random and TeamBased picks.
func (r *Registry) SetRand(rng *rand.Rand) {
	if r == nil {
		return
	}
	r.rng = rng
}

func (r *Registry) Register(pos common.Vec3, rot common.Quat, title, team, group string) *Point {
	return r.RegisterNode(-1, pos, rot, title, team, group)
}

func (r *Registry) RegisterNode(node int, pos common.Vec3, rot common.Quat, title, team, group string) *Point {
	if r == nil {
		return nil
	}
	p := &Point{Position: pos, Rotation: rot, Title: title, Team: team, Group: group, NodeIndex: node}
	r.points = append(r.points, p)
	r.logger.Printf("Spawn: registered #%d title=%q team=%q group=%q at (%.2f, %.2f, %.2f)",
		len(r.points)-1, title, team, group, pos.X, pos.Y, pos.Z)
	return p
}

// Get picks a spawn point. It never fails: an empty registry logs a warning
// and returns nil, an unmatched team or name falls back to the first entry.
func (r *Registry) Get(mode Mode, team, name string) *Point {
	if r == nil || len(r.points) == 0 {
		r.warn("Spawn: warning: no spawn points registered (mode=%s)", mode)
		return nil
	}

	switch mode {
	case Random:
		return r.points[r.intn(len(r.points))]
	case TeamBased:
		var matches []*Point
		for _, p := range r.points {
			if strings.EqualFold(p.Team, team) {
				matches = append(matches, p)
			}
		}
		if len(matches) == 0 {
			r.logger.Printf("Spawn: warning: no spawn point for team %q, using first", team)
			return r.points[0]
		}
		return matches[r.intn(len(matches))]
	case Named:
		for _, p := range r.points {
			if strings.EqualFold(p.Title, name) {
				return p
			}
		}
		r.logger.Printf("Spawn: warning: no spawn point named %q, using first", name)
		return r.points[0]
	default:
		return r.points[0]
	}
}

// ByGroup returns the entries of a group, or every entry when group is empty.
func (r *Registry) ByGroup(group string) []*Point {
	if r == nil || len(r.points) == 0 {
		r.warn("Spawn: warning: no spawn points registered (group=%q)", group)
		return nil
	}
	if group == "" {
		return r.All()
	}
	var out []*Point
	for _, p := range r.points {
		if strings.EqualFold(p.Group, group) {
			out = append(out, p)
		}
	}
	return out
}

func (r *Registry) All() []*Point {
	if r == nil {
		return nil
	}
	out := make([]*Point, len(r.points))
	copy(out, r.points)
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.points)
}

func (r *Registry) Reset() {
	if r == nil {
		return
	}
	r.points = nil
}

func (r *Registry) intn(n int) int {
	if r.rng != nil {
		return r.rng.Intn(n)
	}
	return rand.Intn(n)
}

func (r *Registry) warn(format string, args ...any) {
	if r == nil {
		log.Printf(format, args...)
		return
	}
	r.logger.Printf(format, args...)
}

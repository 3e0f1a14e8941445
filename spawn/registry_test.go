package spawn

import (
	"bytes"
	"log"
	"math/rand"
	"strings"
	"testing"

	"github.com/milk9111/omiloader/common"
)

func newTestRegistry() (*Registry, *bytes.Buffer) {
	var buf bytes.Buffer
	r := NewRegistry(log.New(&buf, "", 0))
	r.SetRand(rand.New(rand.NewSource(1)))
	r.Register(common.Vec3{X: 1}, common.IdentityQuat, "A", "", "lobby")
	r.Register(common.Vec3{X: 2}, common.IdentityQuat, "B", "", "arena")
	r.Register(common.Vec3{X: 3}, common.IdentityQuat, "Gate", "red", "arena")
	return r, &buf
}

func TestGet(t *testing.T) {
	cases := []struct {
		name     string
		mode     Mode
		team     string
		title    string
		want     string
		wantWarn bool
	}{
		{"first", First, "", "", "A", false},
		{"team_match", TeamBased, "red", "", "Gate", false},
		{"team_case_insensitive", TeamBased, "RED", "", "Gate", false},
		{"team_fallback", TeamBased, "blue", "", "A", true},
		{"named", Named, "", "gate", "Gate", false},
		{"named_fallback", Named, "", "nowhere", "A", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, buf := newTestRegistry()
			p := r.Get(c.mode, c.team, c.title)
			if p == nil || p.Title != c.want {
				t.Fatalf("Get(%s) = %+v, want %s", c.mode, p, c.want)
			}
			warned := strings.Contains(buf.String(), "warning:")
			if warned != c.wantWarn {
				t.Fatalf("warning logged = %v, want %v (logs=%q)", warned, c.wantWarn, buf.String())
			}
		})
	}
}

func TestGetRandomStaysInRange(t *testing.T) {
	r, _ := newTestRegistry()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		p := r.Get(Random, "", "")
		if p == nil {
			t.Fatalf("Random returned nil")
		}
		seen[p.Title] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected more than one distinct pick, got %v", seen)
	}
}

func TestEmptyRegistry(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry(log.New(&buf, "", 0))
	for _, m := range []Mode{First, Random, TeamBased, Named} {
		if p := r.Get(m, "red", "x"); p != nil {
			t.Fatalf("Get(%s) on empty registry = %+v", m, p)
		}
	}
	if got := r.ByGroup(""); got != nil {
		t.Fatalf("ByGroup on empty registry = %v", got)
	}
	if strings.Count(buf.String(), "warning:") != 5 {
		t.Fatalf("expected a warning per call, logs=%q", buf.String())
	}
}

func TestByGroupAndReset(t *testing.T) {
	r, _ := newTestRegistry()
	if got := r.ByGroup("arena"); len(got) != 2 {
		t.Fatalf("ByGroup(arena) = %d entries", len(got))
	}
	if got := r.ByGroup(""); len(got) != 3 {
		t.Fatalf("ByGroup(\"\") = %d entries", len(got))
	}
	r.Reset()
	if r.Len() != 0 {
		t.Fatalf("Len after Reset = %d", r.Len())
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": First, "Random": Random, "team": TeamBased, "named": Named} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("closest"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

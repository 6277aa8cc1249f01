package engine

import (
	"sync"

	"github.com/nerrad567/gray-logic-lampfx/internal/effect"
)

// scheduler holds the global effect and any blend in progress.
//
// Steady: current only. Blending: current and target with a start time
// and duration. All times are seconds on the controller clock, unscaled
// by speed.
type scheduler struct {
	mu       sync.Mutex
	current  effect.Effect
	target   effect.Effect
	start    float64
	duration float64
}

// blend is one tick's view of the scheduler.
type blend struct {
	current effect.Effect
	target  effect.Effect
	t       float64
}

// switchTo installs e. With a positive duration and an effect already
// showing, e becomes the blend target; a blend already in progress has its
// target replaced and its clock restarted. Otherwise e replaces current
// immediately, freshly reset. A nil e clears everything.
func (s *scheduler) switchTo(e effect.Effect, now, duration float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e == nil {
		s.current, s.target = nil, nil
		return
	}

	if duration > 0 && s.current != nil {
		s.target = e
		s.start = now
		s.duration = duration
		return
	}

	e.Reset()
	s.current = e
	s.target = nil
}

// advance completes a finished blend and returns the state to render.
func (s *scheduler) advance(now float64) blend {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.target != nil && now-s.start >= s.duration {
		s.target.Reset()
		s.current = s.target
		s.target = nil
	}

	b := blend{current: s.current, target: s.target}
	if b.target != nil {
		b.t = clampRange((now-s.start)/s.duration, 0, 1)
	}
	return b
}

// effects returns the current and target effects without advancing.
func (s *scheduler) effects() (current, target effect.Effect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.target
}

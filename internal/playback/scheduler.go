// Package playback advances through sentence units on a timer, one unit at a time,
// holding each for a duration proportional to its length.
package playback

import (
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	MinRate     = 2
	MaxRate     = 15
	DefaultRate = 5

	DefaultFloor = time.Second
)

// State is a snapshot of the scheduler.
type State struct {
	Index   int
	Playing bool
	Rate    int // characters per second
	Total   int
}

// Done reports whether the index sits on the last unit.
func (s State) Done() bool {
	return s.Total > 0 && s.Index == s.Total-1
}

// ClampRate limits a rate to [MinRate, MaxRate]; zero or negative means DefaultRate.
func ClampRate(rate int) int {
	switch {
	case rate <= 0:
		return DefaultRate
	case rate < MinRate:
		return MinRate
	case rate > MaxRate:
		return MaxRate
	}
	return rate
}

// Delay is how long a unit stays current: one second per rate characters, never
// shorter than floor.
func Delay(unit string, rate int, floor time.Duration) time.Duration {
	rate = ClampRate(rate)
	d := time.Duration(utf8.RuneCountInString(unit)) * time.Second / time.Duration(rate)
	if d < floor {
		return floor
	}
	return d
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the real clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithFloor sets the minimum time a unit is shown.
func WithFloor(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.floor = d
		}
	}
}

// WithRate sets the initial rate.
func WithRate(rate int) Option {
	return func(s *Scheduler) { s.rate = ClampRate(rate) }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// Scheduler steps through units while playing. At most one timer is outstanding;
// every transition cancels it before arming a new one.
type Scheduler struct {
	mu       sync.Mutex
	units    []string
	index    int
	playing  bool
	rate     int
	floor    time.Duration
	clock    Clock
	timer    Timer
	gen      uint64
	closed   bool
	onChange func(State)
	log      *zap.Logger
}

// New creates a stopped scheduler positioned on the first unit.
func New(units []string, opts ...Option) *Scheduler {
	s := &Scheduler{
		units: slices.Clone(units),
		rate:  DefaultRate,
		floor: DefaultFloor,
		clock: RealClock{},
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers a listener called after every transition, outside the lock.
func (s *Scheduler) OnChange(f func(State)) {
	s.mu.Lock()
	s.onChange = f
	s.mu.Unlock()
}

// State returns a snapshot.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Units returns a copy of the units being played.
func (s *Scheduler) Units() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.units)
}

// Current returns the current unit, or "" if there are none.
func (s *Scheduler) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.units) == 0 {
		return ""
	}
	return s.units[s.index]
}

// Play starts advancing from the current unit. With no units it does nothing.
func (s *Scheduler) Play() {
	s.update(func() bool {
		if s.playing || len(s.units) == 0 {
			return false
		}
		s.playing = true
		s.arm()
		return true
	})
}

// Pause stops advancing. The pending timer is cancelled.
func (s *Scheduler) Pause() {
	s.update(func() bool {
		if !s.playing {
			return false
		}
		s.stop()
		return true
	})
}

// Toggle switches between playing and paused.
func (s *Scheduler) Toggle() {
	s.update(func() bool {
		if s.playing {
			s.stop()
			return true
		}
		if len(s.units) == 0 {
			return false
		}
		s.playing = true
		s.arm()
		return true
	})
}

// Seek moves to unit i, clamped to the valid range. While playing the new unit
// gets a fresh full delay.
func (s *Scheduler) Seek(i int) {
	s.update(func() bool {
		if len(s.units) == 0 {
			return false
		}
		s.index = clamp(i, 0, len(s.units)-1)
		if s.playing {
			s.arm()
		}
		return true
	})
}

// Next moves one unit forward.
func (s *Scheduler) Next() {
	s.update(func() bool {
		if len(s.units) == 0 || s.index >= len(s.units)-1 {
			return false
		}
		s.index++
		if s.playing {
			s.arm()
		}
		return true
	})
}

// Prev moves one unit back.
func (s *Scheduler) Prev() {
	s.update(func() bool {
		if len(s.units) == 0 || s.index == 0 {
			return false
		}
		s.index--
		if s.playing {
			s.arm()
		}
		return true
	})
}

// SetRate changes characters per second. While playing the current unit is
// rescheduled with the new delay.
func (s *Scheduler) SetRate(rate int) {
	s.update(func() bool {
		rate = ClampRate(rate)
		if rate == s.rate {
			return false
		}
		s.rate = rate
		if s.playing {
			s.arm()
		}
		return true
	})
}

// SetUnits replaces the units, stops playback and returns to the first unit.
func (s *Scheduler) SetUnits(units []string) {
	s.update(func() bool {
		s.stop()
		s.units = slices.Clone(units)
		s.index = 0
		return true
	})
}

// Close stops playback for good. Later calls are ignored.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.stop()
	s.closed = true
	s.onChange = nil
	s.mu.Unlock()
}

func (s *Scheduler) update(f func() bool) {
	s.mu.Lock()
	if s.closed || !f() {
		s.mu.Unlock()
		return
	}
	st, fn := s.snapshot(), s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

// arm cancels any pending timer and schedules the current unit. Caller holds mu.
func (s *Scheduler) arm() {
	s.cancel()
	s.gen++
	gen := s.gen
	d := Delay(s.units[s.index], s.rate, s.floor)
	s.log.Debug("arm", zap.Int("index", s.index), zap.Duration("delay", d))
	s.timer = s.clock.AfterFunc(d, func() { s.fire(gen) })
}

func (s *Scheduler) stop() {
	s.cancel()
	s.playing = false
}

func (s *Scheduler) cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Scheduler) fire(gen uint64) {
	s.update(func() bool {
		if gen != s.gen || !s.playing {
			return false
		}
		s.timer = nil
		if s.index >= len(s.units)-1 {
			s.playing = false
			return true
		}
		s.index++
		s.arm()
		return true
	})
}

func (s *Scheduler) snapshot() State {
	return State{Index: s.index, Playing: s.playing, Rate: s.rate, Total: len(s.units)}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

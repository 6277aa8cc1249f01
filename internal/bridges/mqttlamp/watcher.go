package mqttlamp

import (
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-lampfx/internal/hotplug"
)

// Watcher reports networked lamp arrays. Events are queued without bound so
// MQTT delivery never waits on the engine.
type Watcher struct {
	source *Source

	events   chan hotplug.Event
	wake     chan struct{}
	done     chan struct{}
	pumpDone chan struct{}

	mu      sync.Mutex
	queue   []hotplug.Event
	started bool
	stopped bool
	settle  *time.Timer

	stopOnce sync.Once
	stopErr  error
}

func (w *Watcher) Events() <-chan hotplug.Event {
	return w.events
}

// Start reports devices already known, subscribes on first use and
// schedules EnumerationCompleted after the settle delay.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.started || w.stopped {
		w.mu.Unlock()
		return ErrWatcherStarted
	}
	w.started = true
	w.mu.Unlock()

	go w.pump()

	known, first := w.source.attach(w)
	for _, id := range known {
		w.notify(hotplug.Event{Type: hotplug.Added, ID: id})
	}

	if first {
		if err := w.source.subscribe(); err != nil {
			w.source.detach(w)
			return err
		}
	}

	complete := func() { w.notify(hotplug.Event{Type: hotplug.EnumerationCompleted}) }
	if w.source.settle == 0 {
		complete()
		return nil
	}

	w.mu.Lock()
	if !w.stopped {
		w.settle = time.AfterFunc(w.source.settle, complete)
	}
	w.mu.Unlock()
	return nil
}

// Stop halts delivery, closes the events channel and unsubscribes when
// this was the last active watcher.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		started := w.started
		if w.settle != nil {
			w.settle.Stop()
		}
		w.queue = nil
		w.mu.Unlock()

		close(w.done)
		if started {
			<-w.pumpDone
		}
		close(w.events)

		if w.source.detach(w) {
			w.stopErr = w.source.unsubscribe()
		}
	})
	return w.stopErr
}

func (w *Watcher) notify(ev hotplug.Event) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.queue = append(w.queue, ev)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Watcher) pump() {
	defer close(w.pumpDone)

	for {
		w.mu.Lock()
		if len(w.queue) == 0 {
			w.mu.Unlock()
			select {
			case <-w.wake:
				continue
			case <-w.done:
				return
			}
		}
		ev := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		select {
		case w.events <- ev:
		case <-w.done:
			return
		}
	}
}

var _ hotplug.Watcher = (*Watcher)(nil)

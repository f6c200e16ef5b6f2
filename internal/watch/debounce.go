package watch

import (
	"sync"
	"time"
)

type changeKind int

const (
	changeCreated changeKind = iota
	changeWritten
	changeRemoved
)

func (k changeKind) String() string {
	switch k {
	case changeCreated:
		return "created"
	case changeWritten:
		return "written"
	default:
		return "removed"
	}
}

type change struct {
	path string
	kind changeKind
}

// debouncer holds each path until no event arrived for it during the
// window, then emits the merged change once.
type debouncer struct {
	window time.Duration

	mu      sync.Mutex
	pending map[string]*pendingChange
	out     chan change
	stopCh  chan struct{}
	stopped bool
}

type pendingChange struct {
	kind  changeKind
	gen   int
	timer *time.Timer
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window:  window,
		pending: make(map[string]*pendingChange),
		out:     make(chan change, 256),
		stopCh:  make(chan struct{}),
	}
}

func (d *debouncer) add(c change) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if p, ok := d.pending[c.path]; ok {
		p.timer.Stop()
		// A file created and removed inside the window never existed.
		if p.kind == changeCreated && c.kind == changeRemoved {
			delete(d.pending, c.path)
			return
		}
		p.kind = merge(p.kind, c.kind)
		p.gen++
		p.timer = d.schedule(c.path, p.gen)
		return
	}
	d.pending[c.path] = &pendingChange{kind: c.kind, timer: d.schedule(c.path, 0)}
}

func (d *debouncer) schedule(path string, gen int) *time.Timer {
	return time.AfterFunc(d.window, func() { d.emit(path, gen) })
}

func merge(old, next changeKind) changeKind {
	switch {
	case old == changeCreated && next == changeWritten:
		return changeCreated
	case old == changeRemoved && next != changeRemoved:
		// Replaced in place, as editors do on save.
		return changeWritten
	default:
		return next
	}
}

// emit ignores timers superseded by a later event.
func (d *debouncer) emit(path string, gen int) {
	d.mu.Lock()
	p, ok := d.pending[path]
	if !ok || p.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.pending, path)
	d.mu.Unlock()

	select {
	case d.out <- change{path: path, kind: p.kind}:
	case <-d.stopCh:
	}
}

func (d *debouncer) changes() <-chan change {
	return d.out
}

func (d *debouncer) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// stop drops pending changes. Timers that already fired return without
// emitting.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	for path, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, path)
	}
	close(d.stopCh)
}

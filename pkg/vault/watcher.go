package vault

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/entrhq/toolbox/pkg/logging"
	"github.com/fsnotify/fsnotify"
)

// ErrWatcherClosed is returned by operations on a closed watcher.
var ErrWatcherClosed = errors.New("watcher is closed")

// Op is the kind of a vault change.
type Op int

const (
	OpCreate Op = iota + 1
	OpModify
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	}
	return "unknown"
}

// Event is a change to a note. Path is vault-relative.
type Event struct {
	Op   Op
	Path string
}

// Watcher publishes note creations and modifications to subscribers.
// Subscribers run sequentially on the watcher's goroutine.
type Watcher struct {
	mu sync.Mutex

	vault   *Vault
	fsw     *fsnotify.Watcher
	logger  *logging.Logger
	now     func() time.Time
	started bool
	closed  bool

	subs       map[int]func(Event)
	nextSub    int
	suppressed map[string]time.Time

	closeCh chan struct{}
	done    sync.WaitGroup
}

// NewWatcher creates a watcher for v. Call Start to begin receiving
// filesystem events; Emit works without it.
func NewWatcher(v *Vault, logger *logging.Logger) *Watcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Watcher{
		vault:      v,
		logger:     logger,
		now:        time.Now,
		subs:       make(map[int]func(Event)),
		suppressed: make(map[string]time.Time),
		closeCh:    make(chan struct{}),
	}
}

// Start watches every non-hidden folder of the vault. Folders created later
// are added as they appear.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if w.started {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw

	if err := w.watchTree(w.vault.Root()); err != nil {
		_ = fsw.Close()
		w.fsw = nil
		return err
	}

	w.started = true
	w.done.Add(1)
	go w.processLoop()
	return nil
}

func (w *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.vault.Root() && hidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			w.logger.Warnf("failed to watch %s: %v", p, err)
		}
		return nil
	})
}

func (w *Watcher) processLoop() {
	defer w.done.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	var op Op
	switch {
	case ev.Has(fsnotify.Create):
		op = OpCreate
	case ev.Has(fsnotify.Write):
		op = OpModify
	default:
		return
	}

	if op == OpCreate {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !hidden(info.Name()) {
				w.mu.Lock()
				if !w.closed {
					_ = w.watchTree(ev.Name)
				}
				w.mu.Unlock()
			}
			return
		}
	}

	rel, err := w.vault.Rel(ev.Name)
	if err != nil || !IsMarkdown(rel) || inHiddenFolder(rel) {
		return
	}
	w.Emit(Event{Op: op, Path: rel})
}

func inHiddenFolder(rel string) bool {
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if hidden(path.Base(dir)) {
			return true
		}
	}
	return false
}

// Subscribe registers fn for every published event. The returned function
// removes the subscription.
func (w *Watcher) Subscribe(fn func(Event)) (cancel func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			w.mu.Unlock()
		})
	}
}

// Suppress drops events for rel until d has elapsed. Tools call it before
// writing a note so their own writes do not trigger them again.
func (w *Watcher) Suppress(rel string, d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.suppressed[rel] = w.now().Add(d)
}

// Emit delivers ev to every subscriber unless its path is suppressed.
func (w *Watcher) Emit(ev Event) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	if until, ok := w.suppressed[ev.Path]; ok {
		if w.now().Before(until) {
			w.mu.Unlock()
			return
		}
		delete(w.suppressed, ev.Path)
	}

	ids := make([]int, 0, len(w.subs))
	for id := range w.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, w.subs[id])
	}
	w.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// Close stops the watcher. Later events are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	fsw := w.fsw
	w.mu.Unlock()

	w.done.Wait()
	if fsw != nil {
		return fsw.Close()
	}
	return nil
}

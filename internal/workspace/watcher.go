package workspace

import (
	"github.com/fsnotify/fsnotify"

	"github.com/localbridge-dev/localbridge/internal/event"
	"github.com/localbridge-dev/localbridge/internal/logging"
)

// Watcher publishes file.changed events for the workspace roots so the
// operator dashboard can refresh its tree. It is strictly best effort:
// watch errors are logged and never affect the approval workflow.
type Watcher struct {
	fsw  *fsnotify.Watcher
	bus  *event.Bus
	done chan struct{}
}

// NewWatcher starts watching the resolver's roots (top level only; fsnotify
// does not recurse and watching every subdirectory of a large workspace is
// not worth the descriptor cost).
func NewWatcher(resolver *Resolver, bus *event.Bus) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, root := range resolver.Roots() {
		if err := fsw.Add(root); err != nil {
			logging.Warn().Str("root", root).Err(err).Msg("cannot watch workspace root")
		}
	}

	w := &Watcher{fsw: fsw, bus: bus, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	log := logging.For("watcher")
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.bus.Publish(event.Event{
				Type: event.FileChanged,
				Data: event.FileChangedData{Path: ev.Name, Op: ev.Op.String()},
			})
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("watch error")
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

// Package watch reports batches of file changes under a project directory.
package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"

	"github.com/nilla-nix/nilla-cli/internal/logging"
)

// DefaultDebounce is how long the tree must stay quiet before a batch is
// emitted.
const DefaultDebounce = 200 * time.Millisecond

// Change is one debounced batch of modified paths, sorted.
type Change struct {
	Files []string
}

// Watcher monitors a directory tree using fsnotify. Directories created while
// watching are added automatically.
type Watcher struct {
	Dir      string
	Debounce time.Duration
	Changes  <-chan Change // Read-only external channel

	changes chan Change // Internal write channel
	done    chan struct{}
	watcher *fsnotify.Watcher
	logger  hclog.Logger
}

// NewWatcher creates a watcher for the tree rooted at dir.
func NewWatcher(dir string, logger hclog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ch := make(chan Change, 4)
	return &Watcher{
		Dir:      dir,
		Debounce: DefaultDebounce,
		Changes:  ch,
		changes:  ch,
		done:     make(chan struct{}),
		watcher:  fw,
		logger:   logging.OrNull(logger),
	}, nil
}

// Start adds every directory of the tree and begins watching. Stop must be
// called either way.
func (w *Watcher) Start() error {
	if err := w.addTree(w.Dir); err != nil {
		close(w.done)
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done // Wait for loop to exit
	close(w.changes)
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(path) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) loop() {
	defer close(w.done)

	tick := w.Debounce / 2
	if tick <= 0 {
		tick = DefaultDebounce / 2
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	pending := make(map[string]struct{})
	var last time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.ignored(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn("cannot watch new directory", "dir", event.Name, "error", err)
					}
				}
			}
			pending[event.Name] = struct{}{}
			last = time.Now()

		case <-ticker.C:
			if len(pending) == 0 || time.Since(last) < w.Debounce {
				continue
			}
			files := make([]string, 0, len(pending))
			for f := range pending {
				files = append(files, f)
			}
			sort.Strings(files)

			// A busy consumer keeps the batch pending for the next tick.
			select {
			case w.changes <- Change{Files: files}:
				pending = make(map[string]struct{})
			default:
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.Dir, path)
	if err != nil {
		return false
	}
	return Ignored(rel)
}

// Ignored reports whether changes to rel, a path relative to the watched
// directory, never trigger a rebuild: anything inside .git and the result
// links nix build leaves behind.
func Ignored(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == ".git" || part == "result" || strings.HasPrefix(part, "result-") {
			return true
		}
	}
	return false
}

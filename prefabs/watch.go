package prefabs

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultQuiet is how long a file must stay untouched before its change is
// reported. Editors often write a file several times per save.
const DefaultQuiet = 100 * time.Millisecond

// Change is a stage file that was written on disk.
type Change struct {
	Stage string
	Path  string
}

// Watcher reports stage yaml changes under the watched directories. The
// consumer reads Changes and decides when it is safe to reload.
type Watcher struct {
	fs      *fsnotify.Watcher
	quiet   time.Duration
	Changes chan Change
	Errors  chan error

	done chan struct{}
	once sync.Once
}

func NewWatcher(dirs ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}

	w := &Watcher{
		fs:      fw,
		quiet:   DefaultQuiet,
		Changes: make(chan Change, 16),
		Errors:  make(chan error, 1),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
	})
	return err
}

// loop coalesces bursts of writes per file and flushes them, in path order,
// once the directory has been quiet for w.quiet.
func (w *Watcher) loop() {
	defer close(w.Changes)
	defer close(w.Errors)

	pending := map[string]struct{}{}
	timer := time.NewTimer(w.quiet)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 || !isSpecFile(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(w.quiet)
		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			for _, p := range paths {
				select {
				case w.Changes <- Change{Stage: stageOf(p), Path: p}:
				case <-w.done:
					return
				}
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.done:
			return
		}
	}
}

func stageOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isSpecFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

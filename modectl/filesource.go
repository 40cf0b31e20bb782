package modectl

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/hardenfs/prfs"
)

// FileSource mirrors a mode file into the mode store: the file's
// leading decimal integer is loaded at start and re-read whenever the
// file changes. A missing or unparsable file leaves the store
// untouched, which means reads stay at whatever the store last held
// (read-only at boot).
type FileSource struct {
	path    string
	store   *prfs.ModeStore
	watcher *fsnotify.Watcher
	log     *slog.Logger
}

// NewFileSource creates a watcher over the mode file at path.
func NewFileSource(path string, store *prfs.ModeStore, log *slog.Logger) (*FileSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &FileSource{
		path:    path,
		store:   store,
		watcher: watcher,
		log:     log,
	}, nil
}

// Start loads the file once, then blocks applying changes until the
// context is cancelled. Should be run in a goroutine.
func (f *FileSource) Start(ctx context.Context) {
	defer f.watcher.Close()

	f.load()

	// Watch the parent directory rather than the file: editors and
	// atomic writers replace the file by rename, which would silently
	// drop a watch held on the path itself.
	dir := filepath.Dir(f.path)
	if err := f.watcher.Add(dir); err != nil {
		f.log.Warn("failed to watch mode file directory",
			"path", dir,
			"error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(f.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				f.load()
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.log.Warn("mode file watch error", "error", err)
		}
	}
}

func (f *FileSource) load() {
	data, err := os.ReadFile(f.path)
	if err != nil {
		f.log.Warn("mode file unreadable, mode unchanged",
			"path", f.path,
			"error", err)
		return
	}
	v, err := parseLeadingInt(string(data))
	if err != nil {
		f.log.Warn("mode file malformed, mode unchanged",
			"path", f.path)
		return
	}
	f.store.Set(v)
	f.log.Info("mode loaded from file",
		"path", f.path,
		"value", v,
		"effective", f.store.Get().String())
}

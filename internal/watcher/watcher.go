// internal/watcher/watcher.go
package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

var chatLogRe = regexp.MustCompile(`(?i)^(.+)_\d{8}_\d{6}\.txt$`)

// roomSuffixLen is the length of "_YYYYMMDD_HHMMSS.txt"
const roomSuffixLen = 20

// IsChatLog reports whether the base name of path looks like a chat log
func IsChatLog(path string) bool {
	return chatLogRe.MatchString(filepath.Base(path))
}

// RoomFromFilename strips the date suffix from a chat log file name
func RoomFromFilename(path string) string {
	name := filepath.Base(path)
	if len(name) <= roomSuffixLen {
		return ""
	}
	return name[:len(name)-roomSuffixLen]
}

// ChatLogs returns the chat logs in dir modified within maxAge of now,
// sorted by path. A zero maxAge returns every log.
func ChatLogs(dir string, maxAge time.Duration, now time.Time) ([]string, error) {
	matches, err := doublestar.FilepathGlob(filepath.Join(dir, "*.[tT][xX][tT]"))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range matches {
		if !IsChatLog(m) {
			continue
		}
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if maxAge > 0 && now.Sub(info.ModTime()) > maxAge {
			continue
		}
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

// Event reports that a chat log grew
type Event struct {
	Path string
	Room string
}

// Watcher reports growing chat logs in one directory. Directory events
// from fsnotify trigger a rescan; file sizes are also polled because the
// game client does not always flush in a way that produces write events.
type Watcher struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	fsw      *fsnotify.Watcher
	files    map[string]int64
	now      func() time.Time

	Events chan Event
}

// New watches dir. Logs present at start are recorded with their current
// size, so only growth after New is reported.
func New(dir string, maxAge, interval time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := newWatcher(dir, maxAge, interval)
	w.fsw = fsw
	w.rescan()
	return w, nil
}

func newWatcher(dir string, maxAge, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watcher{
		dir:      dir,
		maxAge:   maxAge,
		interval: interval,
		files:    make(map[string]int64),
		now:      time.Now,
		Events:   make(chan Event, 256),
	}
}

// Start emits events until the context is cancelled
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()
	defer close(w.Events)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.rescan()
			}
			w.poll(ctx)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// rescan syncs the tracked file set with the directory. New files start
// at their current size.
func (w *Watcher) rescan() {
	paths, err := ChatLogs(w.dir, w.maxAge, w.now())
	if err != nil {
		log.Printf("Scan %s failed: %v", w.dir, err)
		return
	}
	current := make(map[string]bool, len(paths))
	for _, p := range paths {
		current[p] = true
		if _, ok := w.files[p]; ok {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		w.files[p] = info.Size()
	}
	for p := range w.files {
		if !current[p] {
			delete(w.files, p)
		}
	}
}

// poll emits an event for every tracked file that grew
func (w *Watcher) poll(ctx context.Context) {
	paths := make([]string, 0, len(w.files))
	for p := range w.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			log.Printf("Watcher: stat %s: %v", p, err)
			continue
		}
		if info.Size() <= w.files[p] {
			continue
		}
		w.files[p] = info.Size()
		select {
		case w.Events <- Event{Path: p, Room: RoomFromFilename(p)}:
		case <-ctx.Done():
			return
		}
	}
}

// internal/agent/ingest.go
package agent

import (
	"log"
	"sort"
	"strings"
	"time"

	"github.com/signalnine/vintel/internal/chatparser"
	"github.com/signalnine/vintel/internal/protocol"
	"github.com/signalnine/vintel/internal/watcher"
)

// Ingester follows chat logs and turns appended lines into messages.
// It keeps one cursor per file and is driven by a single goroutine.
type Ingester struct {
	parser     *chatparser.Parser
	rooms      map[string]bool
	localRooms map[string]bool
	sources    map[string]*chatparser.Source
	ignored    map[string]bool
}

// NewIngester returns an ingester for the intel rooms and local room names
func NewIngester(p *chatparser.Parser, rooms, localRooms []string) *Ingester {
	in := &Ingester{
		parser:     p,
		rooms:      make(map[string]bool),
		localRooms: make(map[string]bool),
		sources:    make(map[string]*chatparser.Source),
		ignored:    make(map[string]bool),
	}
	for _, r := range rooms {
		in.rooms[r] = true
	}
	for _, r := range localRooms {
		in.localRooms[r] = true
	}
	return in
}

// Source returns the tracking state of a file
func (in *Ingester) Source(path string) (*chatparser.Source, bool) {
	src, ok := in.sources[path]
	return src, ok
}

// Sources returns the followed files, sorted by path
func (in *Ingester) Sources() []*chatparser.Source {
	srcs := make([]*chatparser.Source, 0, len(in.sources))
	for _, src := range in.sources {
		srcs = append(srcs, src)
	}
	sort.Slice(srcs, func(i, j int) bool { return srcs[i].Path < srcs[j].Path })
	return srcs
}

// FileChanged reads the lines appended to path since the last call and
// returns the messages they produce. Files of rooms we do not follow are
// ignored from then on.
func (in *Ingester) FileChanged(path, room string) []*protocol.Message {
	if in.ignored[path] {
		return nil
	}
	local := in.localRooms[room]
	if !local && !in.rooms[room] {
		in.ignored[path] = true
		return nil
	}

	src, ok := in.sources[path]
	if !ok {
		src = &chatparser.Source{Path: path, Room: room, Lines: headerLines}
		in.sources[path] = src
	}

	lines, err := ReadLines(path)
	if err != nil {
		log.Printf("Read %s failed: %v", path, err)
		return nil
	}
	if local && !src.HasHeader() {
		chatparser.ScanHeader(src, lines)
	}

	start := src.Lines
	if start > len(lines) {
		start = len(lines)
	}
	src.Lines = len(lines)

	var msgs []*protocol.Message
	for _, line := range lines[start:] {
		line = strings.TrimSpace(line)
		if len(line) <= minLineLen {
			continue
		}
		var msg *protocol.Message
		if local {
			msg = in.parser.ParseLocal(src, line)
		} else {
			msg = in.parser.Parse(line, room)
		}
		if msg != nil {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

// Prime registers the recent logs of dir at their current length so that
// only lines written afterwards are reported. Local logs are replayed for
// locations; their messages are returned so the caller can place
// characters on the map.
func (in *Ingester) Prime(dir string, maxAge time.Duration, now time.Time) ([]*protocol.Message, error) {
	paths, err := watcher.ChatLogs(dir, maxAge, now)
	if err != nil {
		return nil, err
	}

	var msgs []*protocol.Message
	for _, path := range paths {
		room := watcher.RoomFromFilename(path)
		local := in.localRooms[room]
		if !local && !in.rooms[room] {
			continue
		}
		lines, err := ReadLines(path)
		if err != nil {
			log.Printf("Read %s failed: %v", path, err)
			continue
		}
		src := &chatparser.Source{Path: path, Room: room, Lines: len(lines)}
		in.sources[path] = src
		if !local {
			continue
		}
		chatparser.ScanHeader(src, lines)
		for _, line := range lines {
			if msg := in.parser.ParseLocal(src, strings.TrimSpace(line)); msg != nil {
				msgs = append(msgs, msg)
			}
		}
	}
	return msgs, nil
}

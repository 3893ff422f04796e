package main

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

type FSEvent struct {
	Name  string       // filename
	Flags FSEventFlags // one or more FSEvent flag
}

func (ev FSEvent) IsCreate() bool { return ev.Flags&FSEventCreate != 0 }
func (ev FSEvent) IsWrite() bool  { return ev.Flags&FSEventWrite != 0 }
func (ev FSEvent) IsRemove() bool { return ev.Flags&FSEventRemove != 0 }
func (ev FSEvent) IsRename() bool { return ev.Flags&FSEventRename != 0 }
func (ev FSEvent) IsChmod() bool  { return ev.Flags&FSEventChmod != 0 }

// event op (bitmask); same values as fsnotify.Op
type FSEventFlags uint32

const (
	FSEventCreate FSEventFlags = 1 << iota
	FSEventWrite
	FSEventRemove
	FSEventRename
	FSEventChmod
)

func (ev FSEvent) String() string {
	return fmt.Sprintf("%q %s", ev.Name, ev.Flags.String())
}

func (fl FSEventFlags) String() string {
	a := [33]byte{} // max: "|CREATE|REMOVE|WRITE|RENAME|CHMOD"
	buf := a[:0]
	if fl&FSEventCreate != 0 {
		buf = append(buf, "|CREATE"...)
	}
	if fl&FSEventRemove != 0 {
		buf = append(buf, "|REMOVE"...)
	}
	if fl&FSEventWrite != 0 {
		buf = append(buf, "|WRITE"...)
	}
	if fl&FSEventRename != 0 {
		buf = append(buf, "|RENAME"...)
	}
	if fl&FSEventChmod != 0 {
		buf = append(buf, "|CHMOD"...)
	}
	if len(buf) == 0 {
		return "0"
	}
	return string(buf[1:]) // sans "|"
}

// FSWatcher observes file system for changes.
type FSWatcher struct {
	Latency time.Duration  // Time window for bundling changes together. Default: 100ms
	Events  chan []FSEvent // Channel on which event batches are delivered
	Error   error          // After Events channel is closed, this indicates the reason

	w     *fsnotify.Watcher
	start uint32
	ctx   context.Context
}

func NewFSWatcher(ctx context.Context) (*FSWatcher, error) {
	w2, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &FSWatcher{
		Latency: 100 * time.Millisecond,
		Events:  make(chan []FSEvent),
		w:       w2,
		ctx:     ctx,
	}
	return w, nil
}

// Add file or directory (non-recursively) to be watched.
// If path is already watched nil is returned (duplicates ignored.)
func (w *FSWatcher) Add(path string) error {
	err := w.w.Add(path)
	if err == nil && atomic.CompareAndSwapUint32(&w.start, 0, 1) {
		go w.runLoop()
	}
	return err
}

// Remove unregisters a file or directory that was previously registered with Add.
// If path is not being watched an error is returned.
func (w *FSWatcher) Remove(path string) error {
	return w.w.Remove(path)
}

// Close stops the watcher. Events is closed once the watcher has stopped.
func (w *FSWatcher) Close() error {
	if atomic.CompareAndSwapUint32(&w.start, 0, 1) {
		// never started so w.Events would not close from runLoop exiting
		close(w.Events)
	}
	err := w.w.Close()
	if err == nil {
		err = w.Error
	}
	return err
}

// coalesceFlags merges the flags of a new event into those seen earlier for
// the same file within one latency window.
func coalesceFlags(prev, next FSEventFlags) FSEventFlags {
	if prev&FSEventCreate != 0 && next&FSEventRemove != 0 && next&FSEventCreate == 0 {
		// was created and is now removed
		return ((prev | next) &^ FSEventCreate) &^ FSEventWrite
	}
	if prev&FSEventRemove != 0 && next&FSEventCreate != 0 && next&FSEventRemove == 0 {
		// was removed and is now created -> modified
		return (prev | FSEventWrite) &^ FSEventRemove
	}
	return prev | next
}

func (w *FSWatcher) runLoop() {
	changeq := make(map[string]FSEventFlags)
	foreverDuration := time.Duration(0x7fffffffffffffff)
	flushTimer := time.NewTimer(foreverDuration)
	flushTimerActive := false
	var errCounter int

	defer close(w.Events)

	for {
		select {

		case <-w.ctx.Done():
			w.Error = w.ctx.Err()
			return

		case <-flushTimer.C:
			if len(changeq) > 0 {
				events := make([]FSEvent, 0, len(changeq))
				for name, flags := range changeq {
					events = append(events, FSEvent{
						Flags: flags,
						Name:  name,
					})
				}
				sort.Slice(events, func(i, j int) bool { return events[i].Name < events[j].Name })
				for _, ev := range events {
					delete(changeq, ev.Name)
				}
				select {
				case w.Events <- events:
				case <-w.ctx.Done():
					w.Error = w.ctx.Err()
					return
				}
			}
			flushTimer.Reset(foreverDuration)
			flushTimerActive = false

		case event, more := <-w.w.Events:
			if !more {
				// closed
				return
			}
			errCounter = 0
			changeq[event.Name] = coalesceFlags(changeq[event.Name], FSEventFlags(event.Op))
			if !flushTimerActive {
				flushTimerActive = true
				flushTimer.Reset(w.Latency)
			}

		case err := <-w.w.Errors:
			w.Error = err
			errCounter++
			if errCounter > 10 {
				// There were many errors without any file events.
				// Close the watcher and return as there may be unrecoverable
				w.Close()
				return
			}

		} // select
	}
}

package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rsms/go-testutil"
	"github.com/rsms/semantria/semantria"
)

func TestFSEvent(t *testing.T) {
	assert := testutil.NewAssert(t)

	assert.Eq("FSEventCreate == fsnotify.Create", int(FSEventCreate), int(fsnotify.Create))
	assert.Eq("FSEventWrite  == fsnotify.Write", int(FSEventWrite), int(fsnotify.Write))
	assert.Eq("FSEventRemove == fsnotify.Remove", int(FSEventRemove), int(fsnotify.Remove))
	assert.Eq("FSEventRename == fsnotify.Rename", int(FSEventRename), int(fsnotify.Rename))
	assert.Eq("FSEventChmod  == fsnotify.Chmod", int(FSEventChmod), int(fsnotify.Chmod))

	assert.Eq("String", (FSEventCreate | FSEventWrite).String(), "CREATE|WRITE")
	assert.Eq("String zero", FSEventFlags(0).String(), "0")
}

func TestCoalesceFlags(t *testing.T) {
	assert := testutil.NewAssert(t)
	assert.Eq("create+write", coalesceFlags(FSEventCreate, FSEventWrite), FSEventCreate|FSEventWrite)
	assert.Eq("create then remove", coalesceFlags(FSEventCreate|FSEventWrite, FSEventRemove), FSEventRemove)
	assert.Eq("remove then create", coalesceFlags(FSEventRemove, FSEventCreate), FSEventWrite)
}

func TestDocumentsForEvents(t *testing.T) {
	assert := testutil.NewAssert(t)
	dir := t.TempDir()
	write := func(name, text string) string {
		filename := filepath.Join(dir, name)
		assert.NoErr("write "+name, os.WriteFile(filename, []byte(text), 0600))
		return filename
	}

	events := []FSEvent{
		{Name: write("a.txt", " great product \n"), Flags: FSEventCreate | FSEventWrite},
		{Name: write("b.md", "ignored extension"), Flags: FSEventCreate},
		{Name: write(".hidden.txt", "ignored"), Flags: FSEventCreate},
		{Name: write("empty.txt", "  "), Flags: FSEventWrite},
		{Name: filepath.Join(dir, "gone.txt"), Flags: FSEventRemove},
		{Name: filepath.Join(dir, "vanished.txt"), Flags: FSEventCreate},
		{Name: write("c.txt", "terrible"), Flags: FSEventWrite},
		{Name: write("d.txt", "chmod only"), Flags: FSEventChmod},
	}
	docs, err := documentsForEvents(events, ".txt")
	assert.NoErr("documentsForEvents", err)
	assert.Ok("documents", reflect.DeepEqual(docs, []semantria.Document{
		{Id: "a", Text: "great product"},
		{Id: "c", Text: "terrible"},
	}))
}

func TestFSWatcher(t *testing.T) {
	assert := testutil.NewAssert(t)
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := NewFSWatcher(ctx)
	assert.NoErr("NewFSWatcher", err)
	w.Latency = 20 * time.Millisecond
	assert.NoErr("Add", w.Add(dir))

	filename := filepath.Join(dir, "doc.txt")
	assert.NoErr("write", os.WriteFile(filename, []byte("hello"), 0600))

	select {
	case events := <-w.Events:
		assert.Eq("one file", len(events), 1)
		assert.Eq("name", events[0].Name, filename)
		assert.Eq("created", events[0].IsCreate(), true)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for fs events")
	}

	cancel()
	for range w.Events {
	}
	assert.Ok("stopped by context", errors.Is(w.Error, context.Canceled))
	w.Close()
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rsms/go-log"
	"github.com/rsms/semantria/semantria"
)

// documentsForEvents reads the files which were created or modified and have
// extension ext, and returns one document per file, named by the file's base
// name without extension.
func documentsForEvents(events []FSEvent, ext string) ([]semantria.Document, error) {
	var docs []semantria.Document
	for _, ev := range events {
		if ev.IsRemove() || ev.IsRename() || !(ev.IsCreate() || ev.IsWrite()) {
			continue
		}
		if !strings.HasSuffix(ev.Name, ext) || strings.HasPrefix(filepath.Base(ev.Name), ".") {
			continue
		}
		doc, err := documentFromFile(ev.Name, "")
		if err != nil {
			if os.IsNotExist(err) {
				// removed again before we got to it
				continue
			}
			return docs, err
		}
		if doc.Text == "" {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// documentFromFile reads filename into a document. If id is empty, the file's
// base name sans extension is used.
func documentFromFile(filename, id string) (semantria.Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return semantria.Document{}, err
	}
	if id == "" {
		base := filepath.Base(filename)
		id = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return semantria.Document{Id: id, Text: strings.TrimSpace(string(data))}, nil
}

// watchDir queues text files in dir as they are created or modified, until
// ctx is cancelled.
func watchDir(ctx context.Context, client *semantria.Client, cfg *Config, dir, ext string) error {
	if err := isdir(dir); err != nil {
		return err
	}
	w, err := NewFSWatcher(ctx)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}

	remove := client.OnProcessed(func(body []byte) {
		log.Debug("service acknowledged submission: %s", body)
	})
	defer remove()

	log.Info("watching %s for *%s files", dir, ext)
	for events := range w.Events {
		for _, ev := range events {
			log.Debug("fs event %s", ev)
		}
		docs, err := documentsForEvents(events, ext)
		if err != nil {
			log.Error("%v", err)
		}
		if len(docs) == 0 {
			continue
		}
		if _, err := client.QueueDocuments(ctx, docs, cfg.ConfigId); err != nil {
			log.Error("failed to queue documents: %v", err)
			continue
		}
		log.Info("queued %d %s", len(docs), plural(len(docs), "document", "documents"))
	}
	if w.Error == context.Canceled {
		return nil
	}
	return w.Error
}

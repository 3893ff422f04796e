package main

import (
	"encoding/json"
	"fmt"

	"github.com/rsms/go-log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const resultKeyPrefix = "doc:"

// ResultDB stores analysis results keyed by document id
type ResultDB struct {
	db     *leveldb.DB
	logger *log.Logger
}

// Result is the analysis of one document, as returned by the service
type Result struct {
	Id   string
	Data json.RawMessage
}

func ResultDBOpen(path string, logger *log.Logger) (*ResultDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &ResultDB{
		db:     db,
		logger: logger,
	}, nil
}

func (db *ResultDB) Close() error {
	if db.db == nil {
		return nil
	}
	err := db.db.Close()
	db.db = nil
	return err
}

// Put stores results, replacing any earlier result for the same id
func (db *ResultDB) Put(results ...Result) error {
	batch := new(leveldb.Batch)
	for _, r := range results {
		batch.Put([]byte(resultKeyPrefix+r.Id), r.Data)
	}
	if err := db.db.Write(batch, nil); err != nil {
		return err
	}
	db.logger.Debug("stored %d %s", len(results), plural(len(results), "result", "results"))
	return nil
}

// Get returns the result for id. ok is false if there is none.
func (db *ResultDB) Get(id string) (r Result, ok bool, err error) {
	data, err := db.db.Get([]byte(resultKeyPrefix+id), nil)
	if err == leveldb.ErrNotFound {
		return r, false, nil
	}
	if err != nil {
		return r, false, err
	}
	return Result{Id: id, Data: data}, true, nil
}

// Each calls fn for every stored result, ordered by id
func (db *ResultDB) Each(fn func(Result) error) error {
	iter := db.db.NewIterator(util.BytesPrefix([]byte(resultKeyPrefix)), nil)
	defer iter.Release()
	for iter.Next() {
		id := string(iter.Key()[len(resultKeyPrefix):])
		// iterator buffers are reused
		data := append([]byte(nil), iter.Value()...)
		if err := fn(Result{Id: id, Data: data}); err != nil {
			return err
		}
	}
	return iter.Error()
}

// parseResults splits a JSON response holding one document or a list of
// documents into per-document results.
func parseResults(body []byte) ([]Result, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		// single document
		items = []json.RawMessage{json.RawMessage(body)}
	}
	results := make([]Result, 0, len(items))
	for _, item := range items {
		var doc struct {
			Id interface{} `json:"id"`
		}
		if err := json.Unmarshal(item, &doc); err != nil {
			return nil, fmt.Errorf("unexpected json in API response: %v", err)
		}
		if doc.Id == nil {
			return nil, fmt.Errorf("unexpected json in API response: document without id\n%s", item)
		}
		results = append(results, Result{Id: fmt.Sprint(doc.Id), Data: item})
	}
	return results, nil
}

package semantria

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/rsms/go-testutil"
)

func TestQueueDocument(t *testing.T) {
	assert := testutil.NewAssert(t)
	ctx := context.Background()

	for _, configID := range []string{"", "mockConfig"} {
		c, ts := newTestClient(t, reply(202, "stuff"))
		b, err := c.QueueDocument(ctx, "sweet content", "1234", configID)
		assert.NoErr("QueueDocument", err)
		assert.Eq("result", string(b), "stuff")

		r := ts.Requests()[0]
		assert.Eq("method", r.Method, "POST")
		assert.Eq("path", r.Path, "/document.json")
		if configID == "" {
			assert.Eq("query", r.Query, "")
		} else {
			assert.Eq("query", r.Query, "config_id=mockConfig")
		}
		var sent map[string]string
		assert.NoErr("decode", json.Unmarshal([]byte(r.Body), &sent))
		assert.Eq("body fields", len(sent), 2)
		assert.Eq("text", sent["text"], "sweet content")
		assert.Eq("id", sent["id"], "1234")
	}
}

func makeDocs(n int) []Document {
	docs := make([]Document, n)
	for i := range docs {
		docs[i] = Document{Id: fmt.Sprint(i), Text: "text " + fmt.Sprint(i)}
	}
	return docs
}

func TestQueueDocumentBatch(t *testing.T) {
	assert := testutil.NewAssert(t)
	c, ts := newTestClient(t, reply(202, "stuff"))
	docs := []Document{{Id: "123", Text: "abc"}, {Id: "124", Text: "xyz"}}

	b, err := c.QueueDocumentBatch(context.Background(), docs, "mockConfig")
	assert.NoErr("QueueDocumentBatch", err)
	assert.Eq("result", string(b), "stuff")

	r := ts.Requests()[0]
	assert.Eq("method", r.Method, "POST")
	assert.Eq("path", r.Path, "/document/batch.json")
	assert.Eq("query", r.Query, "config_id=mockConfig")
	var sent []Document
	assert.NoErr("decode", json.Unmarshal([]byte(r.Body), &sent))
	assert.Ok("items sent verbatim and in order", reflect.DeepEqual(sent, docs))
}

func TestQueueDocumentBatchArbitraryItems(t *testing.T) {
	assert := testutil.NewAssert(t)
	c, ts := newTestClient(t, reply(202, "stuff"))
	items := []map[string]interface{}{
		{"id": "123", "contents": "abc", "tag": "x"},
		{"id": "124", "contents": "xyz", "custom": 1.5},
	}

	_, err := c.QueueDocumentBatch(context.Background(), items, "")
	assert.NoErr("QueueDocumentBatch", err)

	var sent []map[string]interface{}
	assert.NoErr("decode", json.Unmarshal([]byte(ts.Requests()[0].Body), &sent))
	assert.Ok("unknown fields kept", reflect.DeepEqual(sent, items))

	_, err = c.QueueDocumentBatch(context.Background(), make([]json.RawMessage, MaxBatchSize+1), "")
	assert.Ok("limit applies to any list", errors.Is(err, ErrBatchTooLarge))
	_, err = c.QueueDocumentBatch(context.Background(), Document{Id: "1"}, "")
	assert.Err("not a list", "batch must be a list", err)
	assert.Eq("one request sent", len(ts.Requests()), 1)
}

func TestQueueDocumentBatchLimit(t *testing.T) {
	assert := testutil.NewAssert(t)
	ctx := context.Background()
	c, ts := newTestClient(t, reply(202, "stuff"))

	_, err := c.QueueDocumentBatch(ctx, makeDocs(11), "")
	assert.Ok("ErrBatchTooLarge", errors.Is(err, ErrBatchTooLarge))
	assert.Eq("message", err.Error(), "batch too large")
	assert.Eq("no network call", len(ts.Requests()), 0)

	_, err = c.QueueDocumentBatch(ctx, makeDocs(10), "")
	assert.NoErr("10 documents", err)
	assert.Eq("sent", len(ts.Requests()), 1)
}

func TestQueueDocuments(t *testing.T) {
	assert := testutil.NewAssert(t)
	c, ts := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var docs []Document
		json.NewDecoder(r.Body).Decode(&docs)
		w.WriteHeader(202)
		fmt.Fprintf(w, "%s", docs[0].Id)
	})
	c.Concurrency = 2

	results, err := c.QueueDocuments(context.Background(), makeDocs(23), "cfg")
	assert.NoErr("QueueDocuments", err)
	assert.Eq("one result per batch, in batch order", len(results), 3)
	for i, b := range results {
		assert.Eq("result", string(b), fmt.Sprint(i*MaxBatchSize))
	}

	var sizes []int
	for _, r := range ts.Requests() {
		var docs []Document
		assert.NoErr("decode", json.Unmarshal([]byte(r.Body), &docs))
		sizes = append(sizes, len(docs))
		assert.Eq("query", r.Query, "config_id=cfg")
	}
	sort.Ints(sizes)
	assert.Ok("batch sizes", reflect.DeepEqual(sizes, []int{3, 10, 10}))
}

func TestQueueDocumentsCollectsErrors(t *testing.T) {
	assert := testutil.NewAssert(t)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var docs []Document
		json.NewDecoder(r.Body).Decode(&docs)
		if docs[0].Id != "10" {
			w.WriteHeader(202)
			w.Write([]byte("ok"))
			return
		}
		w.WriteHeader(400)
		w.Write([]byte("bad batch"))
	})

	results, err := c.QueueDocuments(context.Background(), makeDocs(30), "")
	merr, ok := err.(*multierror.Error)
	assert.Eq("multierror", ok, true)
	assert.Eq("one failure", len(merr.Errors), 1)
	assert.Eq("failure is the bad batch", strings.Contains(merr.Error(), "bad batch"), true)
	assert.Eq("failed batch has no result", results[1] == nil, true)
	assert.Eq("other batches succeeded", results[0] != nil && results[2] != nil, true)
}

func TestRequestDocument(t *testing.T) {
	assert := testutil.NewAssert(t)
	ctx := context.Background()
	c, ts := newTestClient(t, reply(200, "stuff"))

	b, err := c.RequestDocument(ctx, "1234", "")
	assert.NoErr("RequestDocument", err)
	assert.Eq("result", string(b), "stuff")
	_, err = c.RequestDocument(ctx, "1234", "mockConfig")
	assert.NoErr("RequestDocument with config", err)

	reqs := ts.Requests()
	assert.Eq("method", reqs[0].Method, "GET")
	assert.Eq("path", reqs[0].Path, "/document/1234.json")
	assert.Eq("no query", reqs[0].Query, "")
	assert.Eq("path with config", reqs[1].Path, "/document/1234.json")
	assert.Eq("query with config", reqs[1].Query, "config_id=mockConfig")
}

func TestRetrieveDocumentBatch(t *testing.T) {
	assert := testutil.NewAssert(t)
	ctx := context.Background()
	c, ts := newTestClient(t, reply(200, "stuff"))

	b, err := c.RetrieveDocumentBatch(ctx, "")
	assert.NoErr("RetrieveDocumentBatch", err)
	assert.Eq("result", string(b), "stuff")
	_, err = c.RetrieveDocumentBatch(ctx, "mockConfig")
	assert.NoErr("RetrieveDocumentBatch with config", err)

	reqs := ts.Requests()
	assert.Eq("method", reqs[0].Method, "GET")
	assert.Eq("path", reqs[0].Path, "/document/processed.json")
	assert.Eq("no query", reqs[0].Query, "")
	assert.Eq("query with config", reqs[1].Query, "config_id=mockConfig")
}

func TestRetrieveCategories(t *testing.T) {
	assert := testutil.NewAssert(t)
	c, ts := newTestClient(t, reply(200, "stuff"))

	b, err := c.RetrieveCategories(context.Background(), "id")
	assert.NoErr("RetrieveCategories", err)
	assert.Eq("result", string(b), "stuff")

	r := ts.Requests()[0]
	assert.Eq("method", r.Method, "GET")
	assert.Eq("path", r.Path, "/categories.json")
	assert.Eq("config_id not in query", r.Query, "")
	var sent map[string]string
	assert.NoErr("decode", json.Unmarshal([]byte(r.Body), &sent))
	assert.Eq("config_id in body", sent["config_id"], "id")
}

package semantria

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// Maximum number of documents the service accepts in one batch
const MaxBatchSize = 10

// Document is a piece of text queued for analysis
type Document struct {
	Id    string `json:"id"`
	Text  string `json:"text"`
	Tag   string `json:"tag,omitempty"`
	JobId string `json:"job_id,omitempty"`
}

// QueueDocument submits a single document for analysis
func (c *Client) QueueDocument(ctx context.Context, text, id, configID string) ([]byte, error) {
	doc := &Document{Text: text, Id: id}
	return c.POST(ctx, c.endpoint("/document.json", configID), doc)
}

// QueueDocumentBatch submits up to MaxBatchSize items in one request.
// items must be a slice or array; it is posted as-is, so items may be
// Documents or any other JSON-encodable values with whatever fields the
// service accepts. Larger batches fail with ErrBatchTooLarge without
// contacting the service.
func (c *Client) QueueDocumentBatch(ctx context.Context, items interface{}, configID string) ([]byte, error) {
	v := reflect.ValueOf(items)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("batch must be a list, got %T", items)
	}
	if v.Len() > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}
	return c.POST(ctx, c.endpoint("/document/batch.json", configID), items)
}

// QueueDocuments submits any number of documents, split into batches of
// MaxBatchSize which are sent concurrently (at most c.Concurrency at a time).
// results[i] holds the response for the i:th batch, or nil if it failed.
// The returned error, if any, is a *multierror.Error listing every failed batch.
func (c *Client) QueueDocuments(ctx context.Context, docs []Document, configID string) (results [][]byte, err error) {
	nbatches := (len(docs) + MaxBatchSize - 1) / MaxBatchSize
	results = make([][]byte, nbatches)

	var g errgroup.Group
	if c.Concurrency > 0 {
		g.SetLimit(c.Concurrency)
	}
	var errmu sync.Mutex
	var errs *multierror.Error

	for i := 0; i < nbatches; i++ {
		i := i
		end := (i + 1) * MaxBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[i*MaxBatchSize : end]
		g.Go(func() error {
			b, err := c.QueueDocumentBatch(ctx, batch, configID)
			if err != nil {
				c.logger().Warn("batch %d/%d failed: %v", i+1, nbatches, err)
				errmu.Lock()
				errs = multierror.Append(errs, err)
				errmu.Unlock()
				return nil
			}
			results[i] = b
			return nil
		})
	}
	g.Wait()
	return results, errs.ErrorOrNil()
}

// RequestDocument fetches the analysis of a single document
func (c *Client) RequestDocument(ctx context.Context, id, configID string) ([]byte, error) {
	return c.GET(ctx, c.endpoint("/document/"+url.PathEscape(id)+".json", configID), nil)
}

// RetrieveDocumentBatch fetches documents which have finished processing
func (c *Client) RetrieveDocumentBatch(ctx context.Context, configID string) ([]byte, error) {
	return c.GET(ctx, c.endpoint("/document/processed.json", configID), nil)
}

// RetrieveCategories fetches the categories of a configuration.
// Unlike the other calls, config_id travels in the request body.
func (c *Client) RetrieveCategories(ctx context.Context, configID string) ([]byte, error) {
	body := map[string]string{"config_id": configID}
	return c.GET(ctx, c.endpoint("/categories.json", ""), body)
}

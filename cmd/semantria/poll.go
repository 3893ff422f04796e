package main

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rsms/go-log"
	"github.com/rsms/semantria/semantria"
)

var errNothingProcessed = errors.New("no processed documents yet")

// pollProcessed asks the service for processed documents until it returns
// some or cfg.PollTimeout elapses. Client errors (4xx) end polling right away.
func pollProcessed(ctx context.Context, client *semantria.Client, cfg *Config) ([]Result, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.PollInterval
	b.MaxInterval = 10 * cfg.PollInterval
	b.MaxElapsedTime = cfg.PollTimeout

	var results []Result
	op := func() error {
		body, err := client.RetrieveDocumentBatch(ctx, cfg.ConfigId)
		if err != nil {
			var rerr semantria.ResponseError
			if errors.As(err, &rerr) && rerr.Code >= 400 && rerr.Code < 500 {
				return backoff.Permanent(err)
			}
			return err
		}
		if results, err = parseResults(body); err != nil {
			return backoff.Permanent(err)
		}
		if len(results) == 0 {
			return errNothingProcessed
		}
		return nil
	}
	notify := func(err error, d time.Duration) {
		log.Debug("%v; checking again in %v", err, d)
	}
	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
	return results, err
}

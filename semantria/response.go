package semantria

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	STATUS_OK       = 200
	STATUS_ACCEPTED = 202
)

var (
	// returned by RetrieveConfigurations when given a name without a value
	ErrFilterParams = errors.New("Must include both parameter & value, or neither")

	// returned by QueueDocumentBatch when given more than MaxBatchSize documents
	ErrBatchTooLarge = errors.New("batch too large")
)

// ResponseError is returned when the service answers with a status other
// than 200 or 202. Body holds the response body as received.
type ResponseError struct {
	Body string
	Code int
}

func NewResponseError(code int, body string) ResponseError {
	return ResponseError{Code: code, Body: body}
}

func (e ResponseError) Error() string {
	return fmt.Sprintf(
		"Unable to handle response (status code %d): `%v`",
		e.Code,
		e.Body)
}

// -----------------------------------------------------------------------------------------

// ApiResponse wraps a Semantria API HTTP response
type ApiResponse http.Response

func (r *ApiResponse) IsSuccess() bool {
	return r.StatusCode == STATUS_OK || r.StatusCode == STATUS_ACCEPTED
}

func (r *ApiResponse) GetBodyReader() (io.ReadCloser, error) {
	header := strings.ToLower(r.Header.Get("Content-Encoding"))
	if header == "" || strings.Index(header, "gzip") == -1 {
		return r.Body, nil
	}
	return gzip.NewReader(r.Body)
}

// ReadBody accumulates every chunk of the response body until EOF and closes
// the underlying body.
func (r *ApiResponse) ReadBody() ([]byte, error) {
	defer r.Body.Close()
	reader, err := r.GetBodyReader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	var buf bytes.Buffer
	if r.ContentLength > 0 {
		buf.Grow(int(r.ContentLength))
	}
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

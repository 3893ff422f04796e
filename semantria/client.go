// Package semantria is a client for the Semantria text analytics API.
//
// The client signs every request with a Signer (OAuth 1.0a by default), sends
// it over HTTPS and returns the raw response body. Operations that submit
// data (POST) also notify listeners registered with OnProcessed.
package semantria

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/rsms/go-log"
)

const DefaultHost = "api30.semantria.com"

type Client struct {
	Host       string
	Signer     Signer
	HttpClient *http.Client
	Logger     *log.Logger

	// maximum number of batches QueueDocuments has in flight at once
	Concurrency int

	listenersmu sync.RWMutex
	listeners   []processedListener
	listenerid  uint64
}

type ClientParams struct {
	ConsumerKey    string
	ConsumerSecret string
}

func NewClient(p *ClientParams) *Client {
	return NewClientWithSigner(NewOAuthSigner(p.ConsumerKey, p.ConsumerSecret))
}

func NewClientWithSigner(signer Signer) *Client {
	var (
		req, _    = http.NewRequest("GET", "https://"+DefaultHost, nil)
		proxy, _  = http.ProxyFromEnvironment(req)
		transport = http.DefaultTransport.(*http.Transport).Clone()
	)
	if proxy != nil {
		tlsconfig := &tls.Config{
			InsecureSkipVerify: getEnvEitherCase("TLS_INSECURE") != "",
		}
		if tlsconfig.InsecureSkipVerify {
			log.Warn("SSL cert verification disabled")
		}
		transport.Proxy = http.ProxyURL(proxy)
		transport.TLSClientConfig = tlsconfig
	}
	return &Client{
		Host:   DefaultHost,
		Signer: signer,
		HttpClient: &http.Client{
			Transport: transport,
		},
		Logger:      log.SubLogger("[semantria]"),
		Concurrency: 4,
	}
}

// Execute signs and sends a request, returning the full response body.
//
// method must be GET, POST or DELETE and endpoint an absolute URL. body, when
// not nil, is sent JSON-encoded and is required for POST. A 200 or 202 response yields its body; any
// other status yields a ResponseError. Errors from the HTTP transport are
// returned as-is. A successful POST notifies OnProcessed listeners.
func (c *Client) Execute(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodDelete:
	default:
		return nil, fmt.Errorf("unsupported method %q", method)
	}
	if method == http.MethodPost && body == nil {
		return nil, errors.New("POST requires a body")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("endpoint %q is not an absolute URL", endpoint)
	}

	signed, err := c.Signer.Sign(method, endpoint)
	if err != nil {
		return nil, err
	}

	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.Scheme+"://"+u.Host+signed.Query, payload)
	if err != nil {
		return nil, err
	}
	for k, v := range signed.Header {
		req.Header[k] = append([]string(nil), v...)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	r, err := c.HttpClient.Do(req)
	if err != nil {
		return nil, err
	}
	res := (*ApiResponse)(r)
	b, err := res.ReadBody()
	if err != nil {
		return nil, err
	}
	c.logger().Debug("%s %s -> %d (%d bytes)", method, req.URL.Path, res.StatusCode, len(b))
	if !res.IsSuccess() {
		return nil, NewResponseError(res.StatusCode, string(b))
	}
	if method == http.MethodPost {
		c.emitProcessed(b)
	}
	return b, nil
}

func (c *Client) GET(ctx context.Context, endpoint string, body interface{}) ([]byte, error) {
	return c.Execute(ctx, http.MethodGet, endpoint, body)
}

func (c *Client) POST(ctx context.Context, endpoint string, body interface{}) ([]byte, error) {
	return c.Execute(ctx, http.MethodPost, endpoint, body)
}

func (c *Client) DELETE(ctx context.Context, endpoint string, body interface{}) ([]byte, error) {
	return c.Execute(ctx, http.MethodDelete, endpoint, body)
}

// endpoint returns the absolute URL for path, with config_id appended
// as a query parameter unless configID is empty.
func (c *Client) endpoint(path, configID string) string {
	s := "https://" + c.Host + path
	if configID != "" {
		s += "?config_id=" + url.QueryEscape(configID)
	}
	return s
}

func (c *Client) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.RootLogger
}

func getEnvEitherCase(k string) string {
	if v := os.Getenv(strings.ToUpper(k)); v != "" {
		return v
	}
	return os.Getenv(strings.ToLower(k))
}

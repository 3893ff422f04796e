package semantria

import (
	"net/http"

	"github.com/kurrik/oauth1a"
)

// SignedRequest is the authenticated form of a request: the request-URI
// (path plus query) to send and the headers to send it with.
type SignedRequest struct {
	Query  string
	Header http.Header
}

// Signer turns a method and an absolute endpoint URL into a SignedRequest.
// Execute trusts its output completely.
type Signer interface {
	Sign(method, endpoint string) (*SignedRequest, error)
}

// SignerFunc adapts a plain function to the Signer interface
type SignerFunc func(method, endpoint string) (*SignedRequest, error)

func (f SignerFunc) Sign(method, endpoint string) (*SignedRequest, error) {
	return f(method, endpoint)
}

// OAuthSigner signs requests with two-legged OAuth 1.0a (HMAC-SHA1) using
// only the consumer key and secret.
type OAuthSigner struct {
	service *oauth1a.Service
	user    *oauth1a.UserConfig
}

func NewOAuthSigner(consumerKey, consumerSecret string) *OAuthSigner {
	config := &oauth1a.ClientConfig{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
	}
	return &OAuthSigner{
		service: &oauth1a.Service{
			ClientConfig: config,
			Signer:       new(oauth1a.HmacSha1Signer),
		},
		// no user tokens in a two-legged flow
		user: oauth1a.NewAuthorizedConfig("", ""),
	}
}

// Sign computes a fresh signature (new nonce and timestamp) on every call
func (s *OAuthSigner) Sign(method, endpoint string) (*SignedRequest, error) {
	req, err := http.NewRequest(method, endpoint, nil)
	if err != nil {
		return nil, err
	}
	s.service.Sign(req, s.user)
	return &SignedRequest{
		Query:  req.URL.RequestURI(),
		Header: req.Header,
	}, nil
}

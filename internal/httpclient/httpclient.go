package httpclient

import (
	"crypto/tls"
	"net/http"
	"time"
)

// Default returns the shared client used for all upstream traffic.
// The service only ever talks to a couple of fixed hosts, so the
// connection pools are kept small. Per-attempt deadlines are applied
// by callers through request contexts, not a client-wide timeout.
func Default() *http.Client {
	tr := &http.Transport{
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: false},
		MaxIdleConns:          16,
		MaxConnsPerHost:       8,
		MaxIdleConnsPerHost:   4,
		ResponseHeaderTimeout: 10 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: tr}
}

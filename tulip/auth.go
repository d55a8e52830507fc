// Copyright 2024 CamiloSR

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tulip

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/stockparfait/fetch"
)

// encodeAuthorization builds the Authorization header value from an API
// credential ("apikey.NAME:secret"), which the Tulip API expects base64
// encoded as HTTP basic auth. A credential that is already a complete header
// value is passed through as is.
func encodeAuthorization(credential string) string {
	if strings.HasPrefix(credential, "Basic ") ||
		strings.HasPrefix(credential, "Bearer ") {
		return credential
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(credential))
}

// authTransport adds the authorization header to every outgoing request.
type authTransport struct {
	authorization string
	next          http.RoundTripper
}

var _ http.RoundTripper = &authTransport{}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// A RoundTripper must not modify the caller's request.
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", t.authorization)
	r.Header.Set("Accept", "*/*")
	return t.next.RoundTrip(r)
}

// authHTTPClient wraps the HTTP client from the context, if any, so that
// every request carries the authorization header. Tests inject their test
// server's client with fetch.UseClient before UseClient wraps it here.
func authHTTPClient(ctx context.Context, authorization string) *http.Client {
	var client http.Client
	if c := fetch.GetClient(ctx); c != nil {
		client = *c
	}
	next := client.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	client.Transport = &authTransport{authorization: authorization, next: next}
	return &client
}

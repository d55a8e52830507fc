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

import "fmt"

// ConfigurationError indicates an invalid combination of call parameters,
// detected before any network call is made.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

// AuthError indicates that the remote API rejected the credentials.
type AuthError struct {
	StatusCode int
	Endpoint   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authorization rejected by %s: status %d",
		e.Endpoint, e.StatusCode)
}

// NotFoundError indicates that no table in the listing matched the requested
// name or ID.
type NotFoundError struct {
	Locator string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf(
		"table '%s' not found, check the table name or ID in Tulip", e.Locator)
}

// RemoteError is any other failure of a remote API request: a non-success
// response, or a request that never completed.
type RemoteError struct {
	StatusCode int // zero when the request never received a response
	Endpoint   string
	Err        error // the transport error, if any
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request to %s failed: %s", e.Endpoint, e.Err.Error())
	}
	return fmt.Sprintf("request to %s failed: status %d", e.Endpoint, e.StatusCode)
}

func (e *RemoteError) Unwrap() error { return e.Err }

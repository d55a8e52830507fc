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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/CamiloSR/Import-Tulip-Table/table"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
	"github.com/stockparfait/logging"
)

type contextKey int

const (
	clientContextKey contextKey = iota
)

// apiPath is the versioned API prefix within the default workspace.
const apiPath = "/api/v3/w/1"

// MaxPageSize is the maximum number of records the records endpoint returns
// in a single request, and the default page size.
const MaxPageSize = 1000

// Client for querying tables and records of a Tulip instance.
type Client struct {
	baseURL       string // the base URL of the instance API
	authorization string // the Authorization header value
}

// baseURL constructs the API base URL for an instance. An instance is
// normally a bare host like "acme.tulip.co"; it may carry an explicit scheme,
// which is used primarily in tests.
func baseURL(instance string) string {
	if strings.Contains(instance, "://") {
		return instance + apiPath
	}
	return "https://" + instance + apiPath
}

// newClient creates a new client.
func newClient(instance, authorization string) *Client {
	return &Client{
		baseURL:       baseURL(instance),
		authorization: encodeAuthorization(authorization),
	}
}

// GetClient extracts the Client from the context, if any.
func GetClient(ctx context.Context) *Client {
	c, ok := ctx.Value(clientContextKey).(*Client)
	if !ok {
		return nil
	}
	return c
}

// UseClient creates a new client for the instance and credential and injects
// it into the context, along with an HTTP client that carries the
// Authorization header on every request.
func UseClient(ctx context.Context, instance, authorization string) context.Context {
	c := newClient(instance, authorization)
	ctx = fetch.UseClient(ctx, authHTTPClient(ctx, c.authorization))
	return context.WithValue(ctx, clientContextKey, c)
}

// get fetches a JSON payload from the API, mapping failures to the package's
// error taxonomy: AuthError for rejected credentials, RemoteError for any
// other failure.
func (c *Client) get(ctx context.Context, uri string, query url.Values, result interface{}) error {
	resp, err := fetch.Get(ctx, uri, query)
	if resp == nil {
		return &RemoteError{Endpoint: uri, Err: err}
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode, Endpoint: uri}
	case !fetch.ResponseOK(resp):
		return &RemoteError{StatusCode: resp.StatusCode, Endpoint: uri}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Annotate(err, "failed to read response from %s", uri)
	}
	if err := json.Unmarshal(data, result); err != nil {
		return errors.Annotate(err, "failed to unmarshal JSON from %s", uri)
	}
	return nil
}

// Column is the schema definition for a single table column: the internal
// field key and the human-readable display label.
type Column struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// Schema is the column metadata of a table.
type Schema []Column

// Names returns the column field keys in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// MapLabels creates a {field key -> display label} mapping for renaming
// result columns. Columns without a label keep their field key.
func (s Schema) MapLabels() map[string]string {
	m := make(map[string]string)
	for _, c := range s {
		if c.Label != "" {
			m[c.Name] = c.Label
		}
	}
	return m
}

// String prints a string representation of the schema.
func (s Schema) String() string {
	cols := []string{}
	for _, c := range s {
		cols = append(cols, fmt.Sprintf("%s: %s", c.Name, c.Label))
	}
	return "{" + strings.Join(cols, ", ") + "}"
}

// TableInfo is a single entry of the table listing.
type TableInfo struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Columns Schema `json:"columns"`
}

// ListTables fetches the table listing of the workspace, including hidden but
// not deleted tables.
func ListTables(ctx context.Context) ([]TableInfo, error) {
	client := GetClient(ctx)
	if client == nil {
		return nil, errors.Reason("no client in context")
	}
	uri := client.baseURL + "/tables"
	query := make(url.Values)
	query["includeDeleted"] = []string{"false"}
	query["includeHidden"] = []string{"true"}
	var tables []TableInfo
	if err := client.get(ctx, uri, query, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

// ResolveTable finds a table in the listing by its ID or, when id is empty,
// by its visible name. It returns NotFoundError when no table matches.
func ResolveTable(ctx context.Context, id, name string) (*TableInfo, error) {
	tables, err := ListTables(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "failed to list tables")
	}
	match := func(t TableInfo) bool { return t.ID == id }
	locator := id
	if id == "" {
		match = func(t TableInfo) bool { return t.Label == name }
		locator = name
	}
	for _, t := range tables {
		if match(t) {
			t := t
			return &t, nil
		}
	}
	return nil, &NotFoundError{Locator: locator}
}

// RecordQuery is a builder for a records query.
type RecordQuery struct {
	tableID string
	values  url.Values // caller-supplied query parameters, passed through
	perPage int        // page size, [1..MaxPageSize]
	limit   int        // max. total records; 0 = all
}

// NewRecordQuery creates a new query for the records of a table.
func NewRecordQuery(tableID string) *RecordQuery {
	return &RecordQuery{
		tableID: tableID,
		values:  make(url.Values),
		perPage: MaxPageSize,
	}
}

// Copy creates a deep copy of the query. It is primarily used in its builder
// methods.
func (q *RecordQuery) Copy() *RecordQuery {
	q2 := RecordQuery{
		tableID: q.tableID,
		values:  make(url.Values, len(q.values)),
		perPage: q.perPage,
		limit:   q.limit,
	}
	for k, vs := range q.values {
		q2.values[k] = append([]string{}, vs...)
	}
	return &q2
}

// Query merges a raw, pre-encoded query string from the caller into the
// query. This and other builder methods always create a deep copy of the
// query, leaving the original intact.
//
// A "limit" parameter caps the total number of records rather than being
// passed through, and when smaller than the page size it also becomes the
// page size, so that a capped query costs a single request.
func (q *RecordQuery) Query(raw string) (*RecordQuery, error) {
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return q, nil
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, &ConfigurationError{
			Message: fmt.Sprintf("unparsable query string '%s': %s", raw, err.Error())}
	}
	q2 := q.Copy()
	for k, vs := range values {
		q2.values[k] = vs
	}
	if ls := q2.values.Get("limit"); ls != "" {
		limit, err := strconv.Atoi(ls)
		if err != nil || limit < 0 {
			return nil, &ConfigurationError{
				Message: fmt.Sprintf("invalid limit '%s' in query string", ls)}
		}
		q2.values.Del("limit")
		q2 = q2.Limit(limit)
	}
	return q2, nil
}

// PerPage sets the page size, [1..MaxPageSize].
func (q *RecordQuery) PerPage(size int) *RecordQuery {
	if size < 1 || size > MaxPageSize {
		size = MaxPageSize
	}
	q2 := q.Copy()
	q2.perPage = size
	return q2
}

// Limit caps the total number of records to fetch; 0 removes the cap.
func (q *RecordQuery) Limit(n int) *RecordQuery {
	if n < 0 {
		n = 0
	}
	q2 := q.Copy()
	q2.limit = n
	if n > 0 && n < q2.perPage {
		q2.perPage = n
	}
	return q2
}

// Path returns the URL path to add to the base URL.
func (q *RecordQuery) Path() string {
	return "/tables/" + q.tableID + "/records"
}

// pageSize is the number of records to request at the given offset, bounded
// by the remaining record cap. Non-positive means nothing left to fetch.
func (q *RecordQuery) pageSize(offset int) int {
	size := q.perPage
	if q.limit > 0 && q.limit-offset < size {
		size = q.limit - offset
	}
	return size
}

// Values returns the query values for a single page request at the given
// offset. Each call creates a new object, so the caller is free to modify it
// without affecting the query.
func (q *RecordQuery) Values(offset int) url.Values {
	v := make(url.Values, len(q.values)+2)
	for k, vs := range q.values {
		v[k] = append([]string{}, vs...)
	}
	v.Set("limit", strconv.Itoa(q.pageSize(offset)))
	v.Set("offset", strconv.Itoa(offset))
	return v
}

// Read sets up the iterator over the result records, which will execute the
// query as needed and handle paging transparently.
func (q *RecordQuery) Read(ctx context.Context) *RecordIterator {
	return &RecordIterator{ctx: ctx, query: q}
}

// RecordIterator iterates over query results record by record. Paging is
// handled transparently.
type RecordIterator struct {
	ctx       context.Context
	query     *RecordQuery
	page      []table.Record
	index     int  // the record for Next() to return
	offset    int  // total records fetched so far
	pageCount int  // which page number we're on, for logging
	done      bool // no more pages to fetch
}

// nextPage fetches and populates the iterator with the next page of records.
// When there are no more pages to load, or loading a page results in an
// error, the first return value becomes false.
func (it *RecordIterator) nextPage() (bool, error) {
	if it.done {
		return false, nil
	}
	client := GetClient(it.ctx)
	if client == nil {
		return false, errors.Reason("no client in context")
	}
	size := it.query.pageSize(it.offset)
	if size <= 0 {
		it.done = true
		return false, nil
	}
	uri := client.baseURL + it.query.Path()
	it.page = nil
	if err := client.get(it.ctx, uri, it.query.Values(it.offset), &it.page); err != nil {
		it.done = true
		return false, errors.Annotate(err, "failed to fetch page %d", it.pageCount+1)
	}
	it.index = 0
	it.pageCount++
	it.offset += len(it.page)
	if len(it.page) < size {
		// A short page means the table is exhausted.
		it.done = true
	}
	logging.Infof(it.ctx, "tulip: fetched page %d with %d records; next offset: %d",
		it.pageCount, len(it.page), it.offset)
	return len(it.page) > 0, nil
}

// Next returns the next record. The second value is false when the iterator
// is exhausted. A non-nil error aborts the iteration: the results fetched so
// far must not be treated as the complete table.
func (it *RecordIterator) Next() (table.Record, bool, error) {
	if it.query == nil {
		return nil, false, nil
	}
	for it.index >= len(it.page) {
		ok, err := it.nextPage()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
	}
	r := it.page[it.index]
	it.index++
	return r, true, nil
}

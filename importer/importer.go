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

// Package importer implements the import of a complete Tulip table into an
// in-memory table.Table.
package importer

import (
	"context"
	"time"

	"github.com/CamiloSR/Import-Tulip-Table/table"
	"github.com/CamiloSR/Import-Tulip-Table/tulip"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
)

// TimeZone is the fixed timezone the builtin timestamp columns are converted
// to in the result.
const TimeZone = "America/Montreal"

// The builtin record timestamp fields normalized to TimeZone.
var timestampColumns = []string{"_createdAt", "_updatedAt"}

// Display labels of the builtin timestamp fields, applied during renaming on
// top of the table schema.
var timestampLabels = map[string]string{
	"_createdAt": "Created_At",
	"_updatedAt": "Updated_At",
}

// Request is the set of parameters for ImportTable. All fields are read-only
// within the call; the zero value of the optional fields selects the
// defaults.
type Request struct {
	Instance      string // Tulip instance host, e.g. "acme.tulip.co"
	Authorization string // API credential for the Authorization header
	TableID       string // table ID; takes priority over TableName
	TableName     string // visible table name, resolved through the listing
	RawColumns    bool   // keep the original field keys, skip renaming
	Query         string // optional pre-encoded query string for the records endpoint
	PageSize      int    // records per page, [1..tulip.MaxPageSize]; 0 = max
}

func (r Request) validate() error {
	if r.Instance == "" {
		return &tulip.ConfigurationError{Message: "instance must not be empty"}
	}
	if r.Authorization == "" {
		return &tulip.ConfigurationError{Message: "authorization must not be empty"}
	}
	if r.TableID == "" && r.TableName == "" {
		return &tulip.ConfigurationError{
			Message: "one of TableID or TableName must be provided"}
	}
	return nil
}

// resolve determines the records endpoint table ID and the column schema for
// renaming. A name locator requires the listing and fails if it cannot be
// fetched or has no match. An ID locator needs the listing only for the
// schema, so a failure there merely degrades the import to unrenamed columns;
// the returned flag reports whether renaming is still possible.
func resolve(ctx context.Context, req Request) (string, tulip.Schema, bool, error) {
	if req.TableID == "" {
		info, err := tulip.ResolveTable(ctx, "", req.TableName)
		if err != nil {
			return "", nil, false, errors.Annotate(err,
				"failed to resolve table '%s'", req.TableName)
		}
		return info.ID, info.Columns, true, nil
	}
	if req.RawColumns {
		return req.TableID, nil, false, nil
	}
	info, err := tulip.ResolveTable(ctx, req.TableID, "")
	if err != nil {
		logging.Warningf(ctx,
			"cannot fetch the schema of table %s, importing without renaming: %s",
			req.TableID, err.Error())
		return req.TableID, nil, false, nil
	}
	return req.TableID, info.Columns, true, nil
}

// ImportTable downloads all records of the requested table and assembles them
// into a table.Table, in arrival order.
//
// Unless RawColumns is set, the column keys are renamed to their display
// labels from the table's schema; keys without a schema entry are left
// unchanged. The builtin "_createdAt" and "_updatedAt" timestamps are
// converted to the TimeZone timezone and renamed to "Created_At" and
// "Updated_At".
//
// An optional Query string is passed through to the records endpoint; its
// "limit" parameter caps the total number of records.
//
// A failing records request aborts the import; no partial table is returned.
func ImportTable(ctx context.Context, req Request) (*table.Table, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	ctx = tulip.UseClient(ctx, req.Instance, req.Authorization)

	tableID, schema, rename, err := resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	q := tulip.NewRecordQuery(tableID).PerPage(req.PageSize)
	q, err = q.Query(req.Query)
	if err != nil {
		return nil, err
	}

	// Seeding the columns from the schema keeps the column order in schema
	// order, and gives an empty result the table's column set.
	columns := schema.Names()
	if len(columns) > 0 {
		columns = append(columns, timestampColumns...)
	}
	tbl := table.New(columns...)

	it := q.Read(ctx)
	for {
		rec, ok, err := it.Next()
		if err != nil {
			return nil, errors.Annotate(err,
				"failed to fetch records of table %s", tableID)
		}
		if !ok {
			break
		}
		tbl.AddRecord(rec)
	}
	logging.Infof(ctx, "imported %d records from table %s", tbl.NumRows(), tableID)

	loc, err := time.LoadLocation(TimeZone)
	if err != nil {
		return nil, errors.Annotate(err, "failed to load timezone %s", TimeZone)
	}
	tbl.ConvertTime(ctx, loc, timestampColumns...)

	if !req.RawColumns && rename {
		mapping := schema.MapLabels()
		for k, v := range timestampLabels {
			mapping[k] = v
		}
		if err := tbl.Rename(mapping); err != nil {
			return nil, errors.Annotate(err,
				"failed to rename columns of table %s", tableID)
		}
	}
	return tbl, nil
}

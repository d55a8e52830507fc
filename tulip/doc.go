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

// Package tulip implements the client for the Tulip Tables API.
//
// Official documentation is at https://support.tulip.co/apidocs .
//
// Each Tulip table has a column schema, the list of internal field keys and
// their display labels. The schema is part of the table listing returned by
// ListTables() and is used to rename result columns to their labels.
//
// The records endpoint returns at most 1000 records per request. This package
// implements transparent limit/offset paging in RecordIterator.
//
// All calls expect a Client in the context, injected with UseClient(), which
// also installs an HTTP client carrying the Authorization header on every
// request.
package tulip

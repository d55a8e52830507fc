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

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stockparfait/fetch"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(t *testing.T) {
	t.Parallel()

	tmpdir, tmpdirErr := os.MkdirTemp("", "test_tulip_import")
	defer os.RemoveAll(tmpdir)

	Convey("Test setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	Convey("parseFlags", t, func() {
		Convey("defaults", func() {
			flags, err := parseFlags([]string{"-table", "Parts"})
			So(err, ShouldBeNil)
			So(flags.Table, ShouldEqual, "Parts")
			So(flags.TableID, ShouldEqual, "")
			So(flags.LogLevel, ShouldEqual, logging.Info)
			So(flags.CSV, ShouldBeFalse)
			So(flags.Rows, ShouldEqual, 0)
		})

		Convey("table ID with options", func() {
			flags, err := parseFlags([]string{
				"-table-id", "T1", "-csv", "-raw-columns", "-rows", "10",
				"-query", "limit=100", "-log-level", "debug"})
			So(err, ShouldBeNil)
			So(flags.TableID, ShouldEqual, "T1")
			So(flags.CSV, ShouldBeTrue)
			So(flags.RawColumns, ShouldBeTrue)
			So(flags.Rows, ShouldEqual, 10)
			So(flags.Query, ShouldEqual, "limit=100")
			So(flags.LogLevel, ShouldEqual, logging.Debug)
		})

		Convey("both table name and ID", func() {
			_, err := parseFlags([]string{"-table", "Parts", "-table-id", "T1"})
			So(err, ShouldNotBeNil)
		})

		Convey("neither table name nor ID", func() {
			_, err := parseFlags([]string{"-csv"})
			So(err, ShouldNotBeNil)
		})
	})

	Convey("parseConfig", t, func() {
		configFile := filepath.Join(tmpdir, "config.toml")

		Convey("complete config", func() {
			So(testutil.WriteFile(configFile, `
instance = "acme.tulip.co"
authorization = "apikey.test:secret"
`), ShouldBeNil)
			c, err := parseConfig(configFile)
			So(err, ShouldBeNil)
			So(c.Instance, ShouldEqual, "acme.tulip.co")
			So(c.Authorization, ShouldEqual, "apikey.test:secret")
		})

		Convey("missing file suggests a sample", func() {
			_, err := parseConfig(filepath.Join(tmpdir, "no-such.toml"))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "does not exist")
		})

		Convey("missing fields", func() {
			So(testutil.WriteFile(configFile, `
instance = "acme.tulip.co"
`), ShouldBeNil)
			_, err := parseConfig(configFile)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("run imports and prints a table", t, func() {
		server := testutil.NewTestServer()
		defer server.Close()
		ctx := fetch.UseClient(context.Background(), server.Client())

		server.ResponseBodyMap["/api/v3/w/1/tables"] = []string{`[
		  {"id": "T1", "label": "Parts",
		   "columns": [
		     {"name": "id", "label": "ID"},
		     {"name": "qnbsy_part", "label": "Part Number"}]}
		]`}
		server.ResponseBodyMap["/api/v3/w/1/tables/T1/records"] = []string{`[
		  {"id": "r1", "qnbsy_part": "P-100", "_createdAt": "2024-01-01T17:00:00Z"},
		  {"id": "r2", "qnbsy_part": "P-200", "_createdAt": "2024-07-01T12:30:45.5Z"}
		]`}

		configFile := filepath.Join(tmpdir, "run-config.toml")
		So(testutil.WriteFile(configFile, fmt.Sprintf(`
instance = "%s"
authorization = "apikey.test:secret"
`, server.URL())), ShouldBeNil)

		Convey("CSV output", func() {
			flags, err := parseFlags([]string{
				"-config", configFile, "-table", "Parts", "-csv"})
			So(err, ShouldBeNil)

			var buf bytes.Buffer
			So(run(ctx, flags, &buf), ShouldBeNil)
			So(buf.String(), ShouldEqual, `ID,Part Number,Created_At,Updated_At
r1,P-100,2024-01-01T12:00:00-05:00,
r2,P-200,2024-07-01T08:30:45-04:00,
`)
		})

		Convey("CSV output with standardized columns", func() {
			flags, err := parseFlags([]string{
				"-config", configFile, "-table", "Parts", "-csv", "-standardize"})
			So(err, ShouldBeNil)

			var buf bytes.Buffer
			So(run(ctx, flags, &buf), ShouldBeNil)
			So(buf.String(), ShouldStartWith, "ID,Part_Number,Created_At,Updated_At\n")
		})

		Convey("text output with a row cap", func() {
			flags, err := parseFlags([]string{
				"-config", configFile, "-table-id", "T1", "-rows", "1"})
			So(err, ShouldBeNil)

			var buf bytes.Buffer
			So(run(ctx, flags, &buf), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "P-100")
			So(buf.String(), ShouldNotContainSubstring, "P-200")
		})

		Convey("import failure surfaces as an error", func() {
			flags, err := parseFlags([]string{
				"-config", configFile, "-table", "Nope"})
			So(err, ShouldBeNil)

			var buf bytes.Buffer
			err = run(ctx, flags, &buf)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "not found")
		})
	})
}

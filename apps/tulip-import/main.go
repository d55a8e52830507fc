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
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"

	"github.com/CamiloSR/Import-Tulip-Table/importer"
	"github.com/CamiloSR/Import-Tulip-Table/table"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	toml "github.com/pelletier/go-toml/v2"
)

type Flags struct {
	Config   string // default: ~/.tulip/config.toml
	LogLevel logging.Level
	// Exactly one of Table or TableID must be present.
	Table       string // visible table name
	TableID     string // table ID
	Query       string // raw query string for the records endpoint
	RawColumns  bool   // keep original field keys
	Standardize bool   // standardize column names for presentation
	CSV         bool   // dump CSV format; default: text
	Rows        int    // max. rows to print; 0 = all
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("tulip-import", flag.ExitOnError)
	fs.StringVar(&flags.Config, "config",
		filepath.Join(os.Getenv("HOME"), ".tulip", "config.toml"),
		"configuration path")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")
	fs.StringVar(&flags.Table, "table", "", "table name to import")
	fs.StringVar(&flags.TableID, "table-id", "", "table ID to import")
	fs.StringVar(&flags.Query, "query", "",
		"query string for the records endpoint, e.g. 'filters=...&limit=100'")
	fs.BoolVar(&flags.RawColumns, "raw-columns", false,
		"keep the original field keys, don't rename to display labels")
	fs.BoolVar(&flags.Standardize, "standardize", false,
		"standardize column names: title case, '_' for spaces")
	fs.BoolVar(&flags.CSV, "csv", false, "print table in CSV format; default: text")
	fs.IntVar(&flags.Rows, "rows", 0, "max. number of rows to print; 0 = all")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	if (flags.Table == "") == (flags.TableID == "") {
		return nil, errors.Reason("expected exactly one of -table or -table-id")
	}
	return &flags, nil
}

type Config struct {
	Instance      string `toml:"instance"`      // e.g. "acme.tulip.co"
	Authorization string `toml:"authorization"` // API credential "apikey.NAME:secret"
}

func parseConfig(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			sample := `instance = "your-instance.tulip.co"
authorization = "apikey.YourKeyName:YourSecret"
`
			err = errors.Annotate(err,
				"config file '%s' does not exist.\nPlease create config file containing:\n%s",
				filePath, sample)
			return nil, err
		}
		return nil, errors.Annotate(err,
			"cannot check config file for existence: '%s'", filePath)
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open config file %s", filePath)
	}
	defer f.Close()

	d := toml.NewDecoder(f)
	var c Config
	if err := d.Decode(&c); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", filePath)
	}
	if c.Instance == "" || c.Authorization == "" {
		return nil, errors.Reason(
			"config file %s must set both 'instance' and 'authorization'", filePath)
	}
	return &c, nil
}

func run(ctx context.Context, flags *Flags, w io.Writer) error {
	config, err := parseConfig(flags.Config)
	if err != nil {
		return errors.Annotate(err, "failed to parse config")
	}

	tbl, err := importer.ImportTable(ctx, importer.Request{
		Instance:      config.Instance,
		Authorization: config.Authorization,
		TableID:       flags.TableID,
		TableName:     flags.Table,
		RawColumns:    flags.RawColumns,
		Query:         flags.Query,
	})
	if err != nil {
		return errors.Annotate(err, "failed to import table")
	}
	if flags.Standardize {
		if err := tbl.StandardizeColumns(); err != nil {
			return errors.Annotate(err, "failed to standardize column names")
		}
	}
	p := table.Params{Rows: flags.Rows}
	if flags.CSV {
		if err := tbl.WriteCSV(w, p); err != nil {
			return errors.Annotate(err, "failed to print CSV")
		}
		return nil
	}
	if err := tbl.WriteText(w, p); err != nil {
		return errors.Annotate(err, "failed to print text")
	}
	return nil
}

func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	if err := run(ctx, flags, os.Stdout); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}

// Copyright 2025 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v2"

	"github.com/scionproto/srvpool/pkg/endpointpool"
	"github.com/scionproto/srvpool/pkg/private/serrors"
	"github.com/scionproto/srvpool/pkg/private/util"
	"github.com/scionproto/srvpool/pkg/resolver"
	"github.com/scionproto/srvpool/srvpool/mgmtapi"
)

const formatUsage = "Specify the output format (human|json|yaml)"

type palette struct {
	header  *color.Color
	healthy *color.Color
	ejected *color.Color
	trial   *color.Color
}

func newPalette(colored bool) palette {
	p := palette{
		header:  color.New(color.FgHiBlack),
		healthy: color.New(color.FgGreen),
		ejected: color.New(color.FgRed),
		trial:   color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.header, p.healthy, p.ejected, p.trial} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) health(h endpointpool.Health) string {
	switch h {
	case endpointpool.Healthy:
		return p.healthy.Sprint(h)
	case endpointpool.Ejected:
		return p.ejected.Sprint(h)
	default:
		return p.trial.Sprint(h)
	}
}

// useColor returns whether colored output should be written to w.
func useColor(w io.Writer, noColor bool) bool {
	if noColor {
		return false
	}
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func validateFormat(format string) error {
	switch format {
	case "human", "json", "yaml":
		return nil
	default:
		return serrors.New("output format not supported", "format", format)
	}
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case "yaml":
		return yaml.NewEncoder(w).Encode(v)
	default:
		return serrors.New("output format not supported", "format", format)
	}
}

func renderRecords(w io.Writer, host string, records []resolver.Record) {
	if len(records) == 0 {
		fmt.Fprintf(w, "No endpoints found for %s\n", host)
		return
	}
	fmt.Fprintf(w, "Endpoints of %s:\n", host)
	table := newTable(w)
	table.SetHeader([]string{"#", "NAME", "PORT"})
	for i, r := range records {
		table.Append([]string{strconv.Itoa(i), r.Name, strconv.Itoa(r.Port)})
	}
	table.Render()
}

func renderStatus(
	w io.Writer,
	st mgmtapi.StatusResponse,
	endpoints []endpointpool.EndpointInfo,
	now time.Time,
	colored bool,
) {
	p := newPalette(colored)
	age := time.Duration(st.AgeMillis) * time.Millisecond
	p.header.Fprintf(w, "Host: %s\n", st.Hostname)
	p.header.Fprintf(w, "Endpoints: %d (%d unhealthy), last resolution %s ago\n",
		st.Total, st.Unhealthy, util.FmtDuration(age.Truncate(time.Second)))
	if len(endpoints) == 0 {
		return
	}
	table := newTable(w)
	table.SetHeader([]string{"ENDPOINT", "HEALTH", "EJECTED"})
	for _, e := range endpoints {
		ejected := ""
		if !e.EjectedAt.IsZero() {
			ejected = util.FmtDuration(now.Sub(e.EjectedAt).Truncate(time.Second)) + " ago"
		}
		table.Append([]string{e.URL, p.health(e.Health), ejected})
	}
	table.Render()
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// outputResult writes v as indented JSON, or calls table to render it.
func outputResult(w io.Writer, v any, format string, table func(tw *tabwriter.Writer)) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/recipeflow/internal/core"
	"github.com/JonMunkholm/recipeflow/internal/pipeline"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printExtract(w io.Writer, res pipeline.ExtractResult, asJSON bool) error {
	if asJSON {
		return writeJSON(w, res)
	}

	keys := make([]string, 0, len(res.Written))
	for k := range res.Written {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "extract %s\n", res.RunID)
	for _, k := range keys {
		fmt.Fprintf(w, "  wrote %-12s %d rows\n", k, res.Written[k])
	}
	for _, k := range res.Skipped {
		fmt.Fprintf(w, "  skipped %s (no rows)\n", k)
	}
	return nil
}

func printValidate(w io.Writer, res pipeline.ValidateResult, asJSON bool) error {
	if asJSON {
		return writeJSON(w, res)
	}

	fmt.Fprintf(w, "validate %s\n", res.RunID)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  TABLE\tIN\tOUT\tSTATUS")
	for _, rep := range res.Reports {
		status := "ok"
		switch {
		case rep.Failed():
			status = "failed: " + rep.Error
		case rep.Skipped:
			status = "skipped: " + rep.Reason
		case rep.Violations() > 0:
			status = fmt.Sprintf("%d dropped", rep.Violations())
		}
		fmt.Fprintf(tw, "  %s\t%d\t%d\t%s\n", rep.Table, rep.Input, rep.Output, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, rep := range res.Reports {
		for _, e := range rep.Entries {
			if e.Violations == 0 {
				continue
			}
			fmt.Fprintf(w, "  %s: %s dropped %d", rep.Table, e.Description, e.Violations)
			if len(e.Samples) > 0 {
				fmt.Fprintf(w, " (e.g. %s)", strings.Join(e.Samples, ", "))
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}

func printPublish(w io.Writer, res pipeline.PublishResult, asJSON bool) error {
	if asJSON {
		return writeJSON(w, res)
	}

	keys := make([]string, 0, len(res.Published))
	for k := range res.Published {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "publish %s\n", res.RunID)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-12s -> %s\n", k, strings.Join(res.Published[k], ", "))
	}
	for _, k := range res.Missing {
		fmt.Fprintf(w, "  %-12s missing\n", k)
	}
	return nil
}

func printTables(w io.Writer, tables []pipeline.TableStatus, asJSON bool) error {
	if asJSON {
		return writeJSON(w, tables)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tTABLE\tFILE\tPRESENT")
	for _, t := range tables {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", t.Group, t.Key, t.FileName, t.Present)
	}
	return tw.Flush()
}

// reportError prints err once: the user-facing message with its suggested
// action when one is known, the raw error otherwise.
func reportError(w io.Writer, err error) {
	if core.IsUserFacing(err) {
		fmt.Fprintln(w, core.FormatUserError(err))
		return
	}
	fmt.Fprintln(w, "error:", err)
}

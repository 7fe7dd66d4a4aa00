package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"shelterdb/internal/core"
	"shelterdb/pkg/domain"
)

func newCollectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List collection names and their overlay keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, c := range domain.Collections() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c, c.OverlayKey())
			}
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list <collection>",
		Short: "Print the merged view of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.collection(cmd, args[0])
			if err != nil {
				return err
			}
			records, err := col.Filter(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{string(col.Name()): records})
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", `boolean expression over record fields, e.g. 'status == "available"'`)
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "Print one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.collection(cmd, args[0])
			if err != nil {
				return err
			}
			rec, ok := col.Get(cmd.Context(), args[1])
			if !ok {
				return notFound(col, args[1])
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <collection> [record-json|-]",
		Short: "Add a record; a zero or missing id is assigned automatically",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.collection(cmd, args[0])
			if err != nil {
				return err
			}
			var doc domain.Document
			if err := readJSONArg(cmd, args, 1, &doc); err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("record must be a JSON object")
			}
			stored, err := col.Add(cmd.Context(), doc)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stored)
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update <collection> <id> [fields-json|-]",
		Short: "Overwrite the given fields of a record",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.collection(cmd, args[0])
			if err != nil {
				return err
			}
			var patch domain.Patch
			if err := readJSONArg(cmd, args, 2, &patch); err != nil {
				return err
			}
			rec, err := col.Update(cmd.Context(), args[1], patch)
			switch {
			case errors.Is(err, core.ErrNotFound):
				return notFound(col, args[1])
			case err != nil:
				return fmt.Errorf("patch does not fit %s records: %w", col.Name(), err)
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func newPatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "patch <collection> <id> [json-patch|-]",
		Short: "Apply an RFC 6902 JSON Patch to a record",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.collection(cmd, args[0])
			if err != nil {
				return err
			}
			var ops json.RawMessage
			if err := readJSONArg(cmd, args, 2, &ops); err != nil {
				return err
			}
			rec, ok, err := col.ApplyJSONPatch(cmd.Context(), args[1], ops)
			if err != nil {
				return err
			}
			if !ok {
				return notFound(col, args[1])
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.collection(cmd, args[0])
			if err != nil {
				return err
			}
			if !col.Delete(cmd.Context(), args[1]) {
				return notFound(col, args[1])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", col.Name(), args[1])
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <collection>",
		Short: "Drop the cached view and re-merge fixture and overlay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.collection(cmd, args[0])
			if err != nil {
				return err
			}
			col.ResetCache()
			n := len(col.List(cmd.Context()))
			fmt.Fprintf(cmd.OutOrStdout(), "reloaded %s: %d records\n", col.Name(), n)
			return nil
		},
	}
}

func newDiffCmd(a *app) *cobra.Command {
	var noColor bool
	cmd := &cobra.Command{
		Use:   "diff <collection>",
		Short: "Show how the overlay departs from the fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.collection(cmd, args[0])
			if err != nil {
				return err
			}
			changes, err := col.Diff(cmd.Context())
			if err != nil {
				return err
			}
			if noColor {
				color.NoColor = true
			}
			printDiff(cmd.OutOrStdout(), col.Name(), changes)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

var (
	headerColor = color.New(color.Bold)
	insertColor = color.New(color.FgGreen)
	deleteColor = color.New(color.FgRed)
)

func printDiff(w io.Writer, name domain.Collection, changes []core.RecordChange) {
	if len(changes) == 0 {
		fmt.Fprintf(w, "%s: overlay matches fixture\n", name)
		return
	}
	for _, ch := range changes {
		headerColor.Fprintf(w, "%s %d (%s)\n", name, ch.ID, ch.Kind)
		for _, l := range ch.Lines {
			switch l.Op {
			case core.LineInsert:
				insertColor.Fprintf(w, "+ %s\n", l.Text)
			case core.LineDelete:
				deleteColor.Fprintf(w, "- %s\n", l.Text)
			default:
				fmt.Fprintf(w, "  %s\n", l.Text)
			}
		}
	}
}

// readJSONArg decodes args[i] into v, or stdin when the argument is "-" or
// missing.
func readJSONArg(cmd *cobra.Command, args []string, i int, v any) error {
	var raw []byte
	if len(args) > i && args[i] != "-" {
		raw = []byte(args[i])
	} else {
		var err error
		if raw, err = io.ReadAll(cmd.InOrStdin()); err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return fmt.Errorf("no JSON given")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func notFound(col core.Collection, id string) error {
	return fmt.Errorf("%s %s not found", col.Name(), id)
}

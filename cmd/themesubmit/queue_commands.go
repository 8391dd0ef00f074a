package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"themesubmit/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage queued submissions",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]queue.Status, 0, len(listStatuses))
			for _, value := range listStatuses {
				status, ok := queue.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				statuses = append(statuses, status)
			}
			return ctx.withStore(func(store *queue.Store) error {
				items, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Kind", "Identifier", "Name", "Author", "Status", "Size", "Updated"},
					buildQueueListRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by status (queued, submitted)")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a queued item and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				item, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("queue item #%d not found", id)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderDetails(buildItemDetails(item)))
				if len(item.Files) > 0 {
					fmt.Fprintln(out, renderTable(
						[]string{"Repository path", "Source", "Size", "SHA-256"},
						buildFileRows(item.Files),
						[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
					))
				}
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>...",
		Aliases: []string{"rm"},
		Short:   "Remove items from the queue",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseItemID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				var missing []string
				for _, id := range ids {
					removed, err := store.Remove(cmd.Context(), id)
					if err != nil {
						return err
					}
					if !removed {
						missing = append(missing, "#"+strconv.FormatInt(id, 10))
						continue
					}
					fmt.Fprintf(out, "Removed item #%d\n", id)
				}
				if len(missing) > 0 {
					return fmt.Errorf("queue items not found: %s", strings.Join(missing, ", "))
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var submitted bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every queued item",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				if submitted {
					removed, err := store.ClearSubmitted(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d submitted items\n", removed)
					return nil
				}
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d queued items\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&submitted, "submitted", false, "Clear the history of submitted items instead")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database path: %s\n", health.DBPath)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(health.DatabaseExists))
				fmt.Fprintf(out, "Readable: %s\n", yesNo(health.DatabaseReadable))
				fmt.Fprintf(out, "Schema version: %d\n", health.SchemaVersion)
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.IntegrityCheck))
				fmt.Fprintf(out, "Total items: %d\n", health.TotalItems)
				for _, status := range queue.AllStatuses() {
					fmt.Fprintf(out, "  %s: %d\n", status, stats[status])
				}
				fmt.Fprintf(out, "Pending content: %s\n", formatBytes(health.TotalBytes))
				if health.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", health.Error)
				}
				return nil
			})
		},
	}
}

func parseItemID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(value), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", value)
	}
	return id, nil
}

func buildQueueListRows(items []*queue.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		status := string(item.Status)
		if item.ErrorMessage != "" {
			status += " (error)"
		}
		kind := item.Kind
		if item.Update {
			kind += " (update)"
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			kind,
			item.Identifier,
			item.Name,
			item.Author,
			status,
			formatBytes(item.TotalSize()),
			formatTimestamp(item.UpdatedAt),
		})
	}
	return rows
}

func buildItemDetails(item *queue.Item) [][2]string {
	return [][2]string{
		{"ID", strconv.FormatInt(item.ID, 10)},
		{"Kind", item.Kind},
		{"Identifier", item.Identifier},
		{"Name", item.Name},
		{"Author", item.Author},
		{"Version", item.Version},
		{"Description", item.Description},
		{"Update", yesNo(item.Update)},
		{"Status", string(item.Status)},
		{"Pull request", item.PRURL},
		{"Last error", item.ErrorMessage},
		{"Created", formatTimestamp(item.CreatedAt)},
		{"Updated", formatTimestamp(item.UpdatedAt)},
	}
}

func buildFileRows(files []queue.File) [][]string {
	rows := make([][]string, 0, len(files))
	for _, file := range files {
		sum := file.SHA256
		if len(sum) > 12 {
			sum = sum[:12]
		}
		rows = append(rows, []string{file.RepoPath, file.SourceName, formatBytes(file.Size), sum})
	}
	return rows
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

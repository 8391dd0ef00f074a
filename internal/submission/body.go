package submission

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"themesubmit/internal/content"
	"themesubmit/internal/queue"
)

func kindLabel(kind string) string {
	if parsed, err := content.ParseKind(kind); err == nil {
		return parsed.Label()
	}
	return kind
}

func commitMessage(item *queue.Item) string {
	verb := "Add"
	if item.Update {
		verb = "Update"
	}
	return fmt.Sprintf("%s %s %s", verb, item.Kind, item.Name)
}

func pullRequestTitle(items []*queue.Item) string {
	if len(items) == 1 {
		item := items[0]
		verb := "Add"
		if item.Update {
			verb = "Update"
		}
		return fmt.Sprintf("%s %s: %s", verb, item.Kind, item.Name)
	}
	return fmt.Sprintf("Add %d community submissions", len(items))
}

func pullRequestBody(items []*queue.Item) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Kind", "Identifier", "Name", "Author", "Version", "Files"})
	for _, item := range items {
		version := item.Version
		if version == "" {
			version = "-"
		}
		paths := make([]string, 0, len(item.Files))
		for _, file := range item.Files {
			paths = append(paths, "`"+file.RepoPath+"`")
		}
		kind := kindLabel(item.Kind)
		if item.Update {
			kind += " (update)"
		}
		tw.AppendRow(table.Row{
			kind,
			item.Identifier,
			item.Name,
			item.Author,
			version,
			strings.Join(paths, "<br>"),
		})
	}

	var b strings.Builder
	b.WriteString("This pull request was generated by themesubmit.\n\n")
	b.WriteString(tw.RenderMarkdown())
	b.WriteString("\n")

	var described []*queue.Item
	for _, item := range items {
		if strings.TrimSpace(item.Description) != "" {
			described = append(described, item)
		}
	}
	if len(described) > 0 {
		b.WriteString("\n### Descriptions\n")
		for _, item := range described {
			b.WriteString("\n**" + item.Name + "**: " + item.Description + "\n")
		}
	}

	var total int64
	for _, item := range items {
		total += item.TotalSize()
	}
	b.WriteString("\n<sub>" + strconv.Itoa(len(items)) + " item(s), " + strconv.FormatInt(total, 10) + " bytes.</sub>\n")
	return b.String()
}

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"themesubmit/internal/content"
	"themesubmit/internal/queue"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show extracted metadata and the derived identifier without queueing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := resolveKind(kindFlag, args[0])
			if err != nil {
				return err
			}
			file, err := content.ReadAttachment(args[0], ctx.configValue().Submission.MaxFileBytes)
			if err != nil {
				return err
			}
			form := &content.Form{Kind: kind, File: file}

			return ctx.withStore(func(store *queue.Store) error {
				sub, err := ctx.submitter(cmd, store)
				if err != nil {
					return err
				}
				result, err := sub.Inspect(cmd.Context(), form)
				if err != nil {
					return err
				}

				pairs := [][2]string{
					{"Kind", kind.Label()},
					{"File", fmt.Sprintf("%s (%s)", file.Name, formatBytes(int64(len(file.Data))))},
					{"Identifier", result.Identifier},
					{"Name", form.Name},
					{"Author", form.Author},
					{"Version", form.Version},
					{"Description", form.Description},
				}
				if form.Image != nil {
					pairs = append(pairs, [2]string{"Image", fmt.Sprintf("%s %dx%d", form.Image.Format, form.Image.Width, form.Image.Height)})
				}
				if kind.HasEmbeddedMetadata() {
					offset := "none found"
					if result.Metadata != nil {
						offset = "byte " + strconv.Itoa(result.Metadata.Offset)
					}
					pairs = append(pairs, [2]string{"Metadata", offset})
				}
				status := "ready to queue"
				if result.Problem != nil {
					status = formatError(result.Problem)
				}
				pairs = append(pairs, [2]string{"Status", status})

				fmt.Fprintln(cmd.OutOrStdout(), renderDetails(pairs))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Content kind (background, style, coverflow); inferred from the extension when unambiguous")
	return cmd
}

// resolveKind parses flag, or infers the kind from path's extension.
func resolveKind(flag, path string) (content.Kind, error) {
	if strings.TrimSpace(flag) != "" {
		return content.ParseKind(flag)
	}
	var matches []content.Kind
	for _, kind := range content.Kinds {
		if kind.Accepts(path) {
			matches = append(matches, kind)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("cannot infer content kind from %q; pass --kind", path)
	default:
		return "", fmt.Errorf("%q could be a %s or a %s; pass --kind", path, matches[0], matches[1])
	}
}

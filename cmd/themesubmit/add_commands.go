package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"themesubmit/internal/content"
	"themesubmit/internal/queue"
	"themesubmit/internal/submission"
)

type addOptions struct {
	preview     string
	name        string
	author      string
	version     string
	description string
	update      bool
	yes         bool
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Validate a file and add it to the local queue",
	}
	for _, kind := range content.Kinds {
		addCmd.AddCommand(newAddKindCommand(ctx, kind))
	}
	return addCmd
}

func newAddKindCommand(ctx *commandContext, kind content.Kind) *cobra.Command {
	var opts addOptions

	cmd := &cobra.Command{
		Use:   string(kind) + " <file>",
		Short: fmt.Sprintf("Queue a %s (%s)", kind.Label(), strings.Join(kind.Extensions(), ", ")),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			file, err := content.ReadAttachment(args[0], cfg.Submission.MaxFileBytes)
			if err != nil {
				return err
			}
			form := &content.Form{
				Kind:        kind,
				File:        file,
				Name:        opts.name,
				Author:      opts.author,
				Version:     opts.version,
				Description: opts.description,
				Update:      opts.update,
			}
			if strings.TrimSpace(opts.preview) != "" {
				preview, err := content.ReadAttachment(opts.preview, cfg.Submission.MaxFileBytes)
				if err != nil {
					return err
				}
				form.Preview = &preview
			}

			submission.Draft(form)
			if !opts.yes && isInteractive(cmd) {
				proceed, err := fillForm(newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()), form)
				if err != nil {
					return err
				}
				if !proceed {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}

			return ctx.withStore(func(store *queue.Store) error {
				sub, err := ctx.submitter(cmd, store)
				if err != nil {
					return err
				}
				item, err := sub.Prepare(cmd.Context(), form)
				if err != nil {
					return err
				}
				printQueued(cmd, item)
				return nil
			})
		},
	}

	if kind.AcceptsPreview() {
		cmd.Flags().StringVar(&opts.preview, "preview", "", "Preview image (png or jpeg)")
	}
	cmd.Flags().StringVar(&opts.name, "name", "", "Display name (defaults to embedded metadata or the file name)")
	cmd.Flags().StringVar(&opts.author, "author", "", "Author credited in the repository")
	if kind.RequiresVersion() {
		cmd.Flags().StringVar(&opts.version, "version", "", "Semantic version")
	}
	cmd.Flags().StringVar(&opts.description, "description", "", "Short description")
	cmd.Flags().BoolVar(&opts.update, "update", false, "Replace your existing entry with the same identifier")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Skip prompts and queue immediately")
	return cmd
}

// fillForm prompts for each field with the pre-filled value as the default.
// It returns false when the user declines to queue the result.
func fillForm(p *prompter, form *content.Form) (bool, error) {
	type promptField struct {
		label string
		value *string
	}
	fields := []promptField{{"Name", &form.Name}, {"Author", &form.Author}}
	if form.Kind.RequiresVersion() {
		fields = append(fields, promptField{"Version", &form.Version})
	}
	fields = append(fields, promptField{"Description", &form.Description})

	for _, field := range fields {
		answer, err := p.ask(field.label, strings.TrimSpace(*field.value))
		if err != nil {
			return false, err
		}
		*field.value = answer
	}
	return p.confirm(fmt.Sprintf("Queue %s %q?", form.Kind.Label(), form.Name), true)
}

func printQueued(cmd *cobra.Command, item *queue.Item) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Queued %s %q as item #%d (identifier %s)\n", item.Kind, item.Name, item.ID, item.Identifier)
	for _, file := range item.Files {
		fmt.Fprintf(out, "  %s (%s)\n", file.RepoPath, formatBytes(file.Size))
	}
}


package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"themesubmit/internal/queue"
	"themesubmit/internal/submission"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var opts submission.Options

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Open one pull request containing every queued item",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.authManager()
			if err != nil {
				return err
			}
			client, err := ctx.githubClient(cmd.Context(), cmd, mgr)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				sub, err := ctx.submitter(cmd, store, submission.WithGitHub(client))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				result, err := sub.Submit(cmd.Context(), opts)
				if errors.Is(err, submission.ErrQueueEmpty) {
					fmt.Fprintln(out, "Queue is empty; nothing to submit")
					return nil
				}
				if err != nil {
					return err
				}
				if result.DryRun {
					printPlan(out, result.Plan)
					return nil
				}
				fmt.Fprintf(out, "Opened pull request #%d: %s\n", result.PullRequest.Number, result.PullRequest.HTMLURL)
				fmt.Fprintf(out, "Submitted %d items from %s\n", len(result.Plan.Items), result.Plan.Head())
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the plan without creating anything on GitHub")
	cmd.Flags().StringVar(&opts.Title, "title", "", "Pull request title (generated when empty)")
	return cmd
}

func printPlan(out io.Writer, plan submission.Plan) {
	fmt.Fprintf(out, "Dry run: pull request against %s (%s)\n", plan.Upstream, plan.Base)
	if plan.Fork {
		fmt.Fprintf(out, "Fork: %s/%s\n", plan.HeadOwner, plan.HeadRepo)
	}
	fmt.Fprintf(out, "Branch: %s\n", plan.Branch)
	fmt.Fprintf(out, "Title: %s\n", plan.Title)

	rows := make([][]string, 0, len(plan.Files))
	for _, file := range plan.Files {
		action := "create"
		if file.Replace {
			action = "replace"
		}
		rows = append(rows, []string{
			fmt.Sprintf("#%d", file.ItemID),
			file.Path,
			formatBytes(file.Size),
			action,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Item", "Path", "Size", "Action"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
	))
	fmt.Fprintln(out)
	fmt.Fprintln(out, plan.Body)
}

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamiechicago312/openlinks/internal/bulk"
	"github.com/jamiechicago312/openlinks/internal/grpc/proto"
	"github.com/jamiechicago312/openlinks/internal/models"
)

// errAborted возвращается, если пользователь не подтвердил план
var errAborted = errors.New("aborted")

func newBulkCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Change every link matching a filter",
		Long: `Plan a change over every link matching a filter, show the plan and apply it
after confirmation. Only the links shown in the plan are changed.`,
	}
	cmd.AddCommand(newBulkArchiveCmd(c), newBulkUpdateCmd(c))
	return cmd
}

func newBulkArchiveCmd(c *cli) *cobra.Command {
	var (
		filter models.ListFilter
		yes    bool
	)
	cmd := &cobra.Command{
		Use:     "archive",
		Short:   "Archive every matching link",
		Example: `  openlinks bulk archive --tag events --expired-only`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBulk(cmd, filter, bulk.Action{Kind: bulk.ActionArchive}, yes)
		},
	}
	filterFlags(cmd.Flags(), &filter)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "apply without asking for confirmation")
	return cmd
}

func newBulkUpdateCmd(c *cli) *cobra.Command {
	var (
		filter models.ListFilter
		yes    bool
	)
	flags := &updateFlags{prefix: "set-"}
	cmd := &cobra.Command{
		Use:     "update",
		Short:   "Apply the same update to every matching link",
		Example: `  openlinks bulk update --tag january --set-expires 2026-03-01`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			update, err := flags.build(cmd.Flags())
			if err != nil {
				return err
			}
			return c.runBulk(cmd, filter, bulk.Action{Kind: bulk.ActionUpdate, Update: update}, yes)
		},
	}
	filterFlags(cmd.Flags(), &filter)
	flags.register(cmd.Flags())
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "apply without asking for confirmation")
	return cmd
}

// runBulk строит план, спрашивает подтверждение и применяет действие по токену плана
func (c *cli) runBulk(cmd *cobra.Command, filter models.ListFilter, action bulk.Action, yes bool) error {
	ctx := cmd.Context()
	plan, err := c.client.PlanBulk(ctx, &proto.PlanBulkRequest{Filter: filter})
	if err != nil {
		return callError(err)
	}
	if len(plan.Candidates) == 0 {
		return c.render(cmd, &bulk.Result{}, func(w io.Writer) error {
			_, err := fmt.Fprintln(w, "No links match")
			return err
		})
	}

	if !yes {
		errOut := cmd.ErrOrStderr()
		if err := printPlan(errOut, plan); err != nil {
			return err
		}
		ok, err := confirm(cmd.InOrStdin(), errOut, fmt.Sprintf("%s %d link(s)?", action.Kind, len(plan.Candidates)))
		if err != nil {
			return err
		}
		if !ok {
			return errAborted
		}
	}

	res, err := c.client.ApplyBulk(ctx, &proto.ApplyBulkRequest{Token: plan.Token, Action: action})
	if err != nil {
		return callError(err)
	}
	return c.render(cmd, res, func(w io.Writer) error { return printResult(w, res) })
}

// confirm задаёт вопрос и ждёт ответа y или yes
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func newCleanupCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Archive every expired link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.client.Cleanup(cmd.Context(), &proto.CleanupRequest{})
			if err != nil {
				return callError(err)
			}
			return c.render(cmd, res, func(w io.Writer) error { return printResult(w, res) })
		},
	}
}

func newResolveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <slug>",
		Short: "Show where a slug redirects to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.client.Resolve(cmd.Context(), &proto.ResolveRequest{Slug: args[0]})
			if err != nil {
				return callError(err)
			}
			return c.render(cmd, res, func(w io.Writer) error { return printResolve(w, res) })
		},
	}
}

func newExtractCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <text>...",
		Short: "Preview tags, UTM parameters and expiration found in text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.client.Extract(cmd.Context(), &proto.ExtractRequest{Text: strings.Join(args, " ")})
			if err != nil {
				return callError(err)
			}
			return c.render(cmd, res, func(w io.Writer) error { return printCandidates(w, res) })
		},
	}
}

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count active, expired and archived links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.client.Stats(cmd.Context(), &proto.StatsRequest{})
			if err != nil {
				return callError(err)
			}
			return c.render(cmd, res, func(w io.Writer) error { return printStats(w, res) })
		},
	}
}

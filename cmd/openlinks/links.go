package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/jamiechicago312/openlinks/internal/grpc/proto"
	"github.com/jamiechicago312/openlinks/internal/models"
)

func newCreateCmd(c *cli) *cobra.Command {
	var (
		req     proto.CreateLinkRequest
		tags    []string
		utm     []string
		expires string
		qr      bool
	)
	cmd := &cobra.Command{
		Use:   "create <slug> <destination>",
		Short: "Create a short link",
		Long: `Create a short link and commit it.

Tags, UTM parameters and the expiration date are taken from --text unless
given explicitly. An explicit flag replaces the extracted value entirely.`,
		Example: `  openlinks create jan-news https://openhands.dev/blog --text "tag this as january, newsletter"
  openlinks create launch https://openhands.dev --tag launch --utm source=twitter --expires 2026-12-31`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Slug, req.Destination = args[0], args[1]
			flags := cmd.Flags()
			if flags.Changed("tag") {
				req.Tags = append([]string{}, tags...)
			}
			if flags.Changed("utm") {
				params, err := parseUTM(utm)
				if err != nil {
					return err
				}
				req.UTMParams = params
			}
			if flags.Changed("expires") {
				t, err := parseTime(expires)
				if err != nil {
					return err
				}
				req.ExpiresAt = t
			}
			if flags.Changed("qr") {
				req.QR = &models.QRConfig{Enabled: qr}
			}

			resp, err := c.client.CreateLink(cmd.Context(), &req)
			if err != nil {
				return callError(err)
			}
			return c.render(cmd, resp, func(w io.Writer) error { return printLink(w, resp) })
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&req.Text, "text", "", "free text to extract tags, UTM parameters and expiration from")
	fs.StringSliceVar(&tags, "tag", nil, "tags, replaces extracted tags")
	fs.StringSliceVar(&utm, "utm", nil, "UTM parameters as key=value, replaces extracted ones")
	fs.StringVar(&expires, "expires", "", "expiration date, replaces the extracted one")
	fs.StringVar(&req.RedirectAfterExpiry, "redirect", "", "URL to redirect to after expiry")
	fs.StringVar(&req.Description, "description", "", "description")
	fs.IntVar(&req.IssueNumber, "issue", 0, "issue number, adds an issue-N tag")
	fs.StringVar(&req.CreatedBy, "created-by", "", "author of the link")
	fs.BoolVar(&qr, "qr", false, "request a QR code for the link")
	return cmd
}

func newReadCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "read <slug|short-url>",
		Aliases: []string{"get"},
		Short:   "Show an active link",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client.GetLink(cmd.Context(), &proto.GetLinkRequest{Slug: args[0]})
			if err != nil {
				return callError(err)
			}
			return c.render(cmd, resp, func(w io.Writer) error { return printLink(w, resp) })
		},
	}
}

func newUpdateCmd(c *cli) *cobra.Command {
	flags := &updateFlags{}
	cmd := &cobra.Command{
		Use:   "update <slug|short-url>",
		Short: "Change fields of an active link",
		Long: `Change the given fields of an active link and commit the change.
Fields whose flags are not given keep their values.`,
		Example: `  openlinks update jan-news --expires 2026-02-01 --description "January newsletter"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update, err := flags.build(cmd.Flags())
			if err != nil {
				return err
			}
			resp, err := c.client.UpdateLink(cmd.Context(), &proto.UpdateLinkRequest{Slug: args[0], Update: update})
			if err != nil {
				return callError(err)
			}
			return c.render(cmd, resp, func(w io.Writer) error { return printLink(w, resp) })
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func newDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <slug|short-url>",
		Aliases: []string{"archive"},
		Short:   "Archive a link",
		Long:    `Move a link to the archive. Archived links no longer redirect.`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client.DeleteLink(cmd.Context(), &proto.DeleteLinkRequest{Slug: args[0]})
			if err != nil {
				return callError(err)
			}
			return c.render(cmd, resp, func(w io.Writer) error { return printLink(w, resp) })
		},
	}
}

func newListCmd(c *cli) *cobra.Command {
	var req proto.ListLinksRequest
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List links, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client.ListLinks(cmd.Context(), &req)
			if err != nil {
				return callError(err)
			}
			return c.render(cmd, resp, func(w io.Writer) error { return printLinks(w, resp.Links) })
		},
	}
	filterFlags(cmd.Flags(), &req.Filter)
	cmd.Flags().BoolVar(&req.Archived, "archived", false, "list archived copies instead of active links")
	return cmd
}

// render печатает ответ команды в формате --output
func (c *cli) render(cmd *cobra.Command, v interface{}, text func(io.Writer) error) error {
	return render(cmd.OutOrStdout(), c.output, v, text)
}

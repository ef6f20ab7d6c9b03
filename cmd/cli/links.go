package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wadjakorntonsri/go-link-store/pkg/errx"
	"github.com/wadjakorntonsri/go-link-store/pkg/ports"
)

func newAddCmd(a *app) *cobra.Command {
	var (
		in     ports.AddLinkInput
		fetch  bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Add a link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.URL = args[0]
			if fetch && in.Description == "" {
				in.Description = a.fetcher.Fetch(cmd.Context(), in.URL)
			}
			link, err := a.svc.AddLink(cmd.Context(), in)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), link)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added link %d: %s\n", link.ID, link.URL)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in.Description, "desc", "d", "", "description")
	cmd.Flags().StringSliceVarP(&in.Tags, "tag", "t", nil, "tags, comma separated or repeated")
	cmd.Flags().BoolVar(&in.IsRead, "read", false, "mark the link as already read")
	cmd.Flags().BoolVar(&fetch, "fetch", false, "fetch the page description when --desc is empty")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the created link as JSON")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			link, err := a.svc.GetLink(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), link)
			}
			printLink(cmd.OutOrStdout(), link)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var (
		url, desc string
		tags      []string
		read      bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var upd ports.LinkUpdate
			flags := cmd.Flags()
			if flags.Changed("url") {
				upd.URL = &url
			}
			if flags.Changed("desc") {
				upd.Description = &desc
			}
			if flags.Changed("tag") {
				upd.Tags = &tags
			}
			if flags.Changed("read") {
				upd.IsRead = &read
			}
			if upd == (ports.LinkUpdate{}) {
				return errx.Errorf("cli.update", errx.Validation, "nothing to update, pass at least one of --url, --desc, --tag, --read")
			}

			link, err := a.svc.UpdateLink(cmd.Context(), id, upd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated link %d\n", link.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "new URL (the domain is re-derived)")
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "new description")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "replacement tags; pass --tag= to clear")
	cmd.Flags().BoolVar(&read, "read", false, "read status")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a link",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.DeleteLink(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted link %d\n", id)
			return nil
		},
	}
}

// newReadCmd builds "read" or "unread".
func newReadCmd(a *app, read bool) *cobra.Command {
	use, short := "read", "Mark a link as read"
	if !read {
		use, short = "unread", "Mark a link as unread"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			mark := a.svc.MarkAsRead
			if !read {
				mark = a.svc.MarkAsUnread
			}
			if _, err := mark(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked link %d as %s\n", id, use)
			return nil
		},
	}
}

func newMarkReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-read <id>...",
		Short: "Mark several links as read at once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			seen := make(map[int64]struct{}, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
			n, err := a.svc.BulkMarkRead(cmd.Context(), ids)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d of %d links as read\n", n, len(ids))
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errx.Errorf("cli.parseID", errx.Validation, "invalid link id %q", s)
	}
	return id, nil
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/wadjakorntonsri/go-link-store/pkg/errx"
	"github.com/wadjakorntonsri/go-link-store/pkg/ports"
)

type pageFlags struct {
	limit  int
	offset int
	sortBy string
	order  string
	asJSON bool
}

func (p *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&p.limit, "limit", "n", -1, "maximum results; 0 for all, default from LINKSTORE_SEARCH_LIMIT")
	cmd.Flags().IntVar(&p.offset, "offset", 0, "results to skip")
	cmd.Flags().StringVar(&p.sortBy, "sort", "created_at", "created_at, updated_at, domain, url or description")
	cmd.Flags().StringVar(&p.order, "order", "DESC", "ASC or DESC")
	cmd.Flags().BoolVar(&p.asJSON, "json", false, "print as JSON")
}

func (p *pageFlags) apply(a *app, in *ports.SearchInput) {
	in.Limit = p.limit
	if in.Limit < 0 {
		in.Limit = a.cfg.App.SearchLimit
	}
	in.Offset = p.offset
	in.SortBy = p.sortBy
	in.SortOrder = p.order
}

func newListCmd(a *app) *cobra.Command {
	var page pageFlags
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List links, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in ports.SearchInput
			page.apply(a, &in)
			links, err := a.svc.SearchLinks(cmd.Context(), in)
			if err != nil {
				return err
			}
			if page.asJSON {
				return printJSON(cmd.OutOrStdout(), links)
			}
			return printLinks(cmd.OutOrStdout(), links)
		},
	}
	page.register(cmd)
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		in     ports.SearchInput
		status string
		page   pageFlags
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Find links by URL, domain, description, tag or read status",
		Long: "The query matches the URL, the description or any tag. Text filters match " +
			"substrings, ignoring ASCII case. Every --tag given must match one of the link's tags.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if cmd.Flags().Changed("query") {
					return errx.Errorf("cli.search", errx.Validation, "pass the query either as an argument or with --query")
				}
				in.Query = args[0]
			}
			switch status {
			case "", "all":
			case "read", "unread":
				read := status == "read"
				in.IsRead = &read
			default:
				return errx.Errorf("cli.search", errx.Validation, "invalid status %q (allowed: read, unread, all)", status)
			}
			page.apply(a, &in)

			links, err := a.svc.SearchLinks(cmd.Context(), in)
			if err != nil {
				return err
			}
			if page.asJSON {
				return printJSON(cmd.OutOrStdout(), links)
			}
			return printLinks(cmd.OutOrStdout(), links)
		},
	}
	cmd.Flags().StringVarP(&in.Query, "query", "q", "", "URL, description or any tag contains")
	cmd.Flags().StringVar(&in.URL, "url", "", "URL contains")
	cmd.Flags().StringVar(&in.Domain, "domain", "", "domain contains")
	cmd.Flags().StringVarP(&in.Description, "desc", "d", "", "description contains")
	cmd.Flags().StringSliceVarP(&in.Tags, "tag", "t", nil, "tag contains; repeat to require several")
	cmd.Flags().StringVar(&status, "status", "", "read, unread or all")
	page.register(cmd)
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show read counts and the most common domains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.svc.GetStatistics(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), stats)
			}
			return printStats(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

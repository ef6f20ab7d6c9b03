package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/wadjakorntonsri/go-link-store/pkg/core/domain"
)

const (
	maxURLWidth  = 60
	maxDescWidth = 40
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func printLinks(w io.Writer, links []domain.Link) error {
	if len(links) == 0 {
		_, err := fmt.Fprintln(w, "No links found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREAD\tDOMAIN\tURL\tTAGS\tDESCRIPTION")
	for _, l := range links {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			l.ID, readMark(l.IsRead), l.Domain,
			truncate(l.URL, maxURLWidth), l.Tags.String(), truncate(l.Description, maxDescWidth))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d link(s)\n", len(links))
	return err
}

func printLink(w io.Writer, l *domain.Link) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", l.ID)
	fmt.Fprintf(tw, "URL:\t%s\n", l.URL)
	fmt.Fprintf(tw, "Domain:\t%s\n", l.Domain)
	fmt.Fprintf(tw, "Description:\t%s\n", l.Description)
	fmt.Fprintf(tw, "Tags:\t%s\n", l.Tags.String())
	fmt.Fprintf(tw, "Read:\t%t\n", l.IsRead)
	fmt.Fprintf(tw, "Created:\t%s\n", domain.FormatTime(l.CreatedAt))
	fmt.Fprintf(tw, "Updated:\t%s\n", domain.FormatTime(l.UpdatedAt))
	_ = tw.Flush()
}

func printStats(w io.Writer, s *domain.Statistics) error {
	fmt.Fprintf(w, "Total:  %d\nRead:   %d\nUnread: %d\n", s.Total, s.Read, s.Unread)
	if len(s.TopDomains) == 0 {
		return nil
	}

	fmt.Fprintln(w, "\nTop domains:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, d := range s.TopDomains {
		fmt.Fprintf(tw, "  %d.\t%s\t%d\n", i+1, d.Domain, d.Count)
	}
	return tw.Flush()
}

func readMark(read bool) string {
	if read {
		return "x"
	}
	return ""
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

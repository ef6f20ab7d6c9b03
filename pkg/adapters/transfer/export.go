package transfer

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/wadjakorntonsri/go-link-store/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-store/pkg/errx"
)

var csvExportHeader = []string{"id", "url", "domain", "description", "tag", "is_read", "created_at", "updated_at"}

// Export writes links to w. Only JSON and CSV can be exported.
func Export(w io.Writer, format Format, links []domain.Link) error {
	switch format {
	case FormatJSON:
		return ExportJSON(w, links)
	case FormatCSV:
		return ExportCSV(w, links)
	default:
		return errx.Errorf("transfer.Export", errx.Validation, "cannot export to %q (allowed: json, csv)", format)
	}
}

// ExportJSON writes an indented array with one object per link.
func ExportJSON(w io.Writer, links []domain.Link) error {
	if links == nil {
		links = []domain.Link{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(links); err != nil {
		return errx.E("transfer.ExportJSON", errx.Service, err)
	}
	return nil
}

// ExportCSV writes a header row and one row per link, tags comma-joined.
func ExportCSV(w io.Writer, links []domain.Link) error {
	const op = "transfer.ExportCSV"

	cw := csv.NewWriter(w)
	if err := cw.Write(csvExportHeader); err != nil {
		return errx.E(op, errx.Service, err)
	}
	for _, l := range links {
		row := []string{
			strconv.FormatInt(l.ID, 10),
			l.URL,
			l.Domain,
			l.Description,
			l.Tags.String(),
			strconv.FormatBool(l.IsRead),
			domain.FormatTime(l.CreatedAt),
			domain.FormatTime(l.UpdatedAt),
		}
		if err := cw.Write(row); err != nil {
			return errx.E(op, errx.Service, err)
		}
	}
	cw.Flush()
	return errx.E(op, errx.Service, cw.Error())
}

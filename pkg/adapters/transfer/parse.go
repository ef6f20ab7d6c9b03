// Package transfer reads and writes link collections in the file formats the
// CLI imports and exports.
package transfer

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wadjakorntonsri/go-link-store/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-store/pkg/errx"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatTXT  Format = "txt"
	FormatHTML Format = "html"
)

// csvImportHeader lists the columns a CSV import must carry. Extra columns
// such as id or created_at are ignored.
var csvImportHeader = []string{"url", "domain", "description", "tag", "is_read"}

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatTXT, FormatHTML:
		return f, nil
	case "htm":
		return FormatHTML, nil
	default:
		return "", errx.Errorf("transfer.ParseFormat", errx.Validation,
			"unsupported format %q (allowed: json, csv, txt, html)", s)
	}
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", errx.Errorf("transfer.FormatFromPath", errx.Validation,
			"cannot infer format of %q, pass one explicitly", path)
	}
	return ParseFormat(ext)
}

// Record is one link read from an import file, before validation.
type Record struct {
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Tags        TagField `json:"tag"`
	IsRead      bool     `json:"is_read"`
}

// TagField decodes either a JSON array of strings or a comma-joined string.
type TagField []string

func (t *TagField) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*t = list
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("tag must be a string or an array of strings")
	}
	*t = splitTags(s)
	return nil
}

// Parse reads every record in r.
func Parse(r io.Reader, format Format) ([]Record, error) {
	switch format {
	case FormatJSON:
		return parseJSON(r)
	case FormatCSV:
		return parseCSV(r)
	case FormatTXT:
		return parseTXT(r)
	case FormatHTML:
		return parseHTML(r)
	default:
		return nil, errx.Errorf("transfer.Parse", errx.Validation, "unsupported format %q", format)
	}
}

func parseJSON(r io.Reader) ([]Record, error) {
	const op = "transfer.parseJSON"

	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return []Record{}, nil
		}
		return nil, errx.Errorf(op, errx.Validation, "invalid JSON: %v", err)
	}
	return records, nil
}

func parseCSV(r io.Reader) ([]Record, error) {
	const op = "transfer.parseCSV"

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, errx.Errorf(op, errx.Validation, "read header: %v", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	var missing []string
	for _, want := range csvImportHeader {
		if _, ok := cols[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, errx.Errorf(op, errx.Validation, "CSV header is missing required columns: %s",
			strings.Join(missing, ", "))
	}

	field := func(row []string, name string) string {
		if i := cols[name]; i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	records := []Record{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errx.Errorf(op, errx.Validation, "line %d: %v", line, err)
		}

		read, err := parseBool(field(row, "is_read"))
		if err != nil {
			return nil, errx.Errorf(op, errx.Validation, "line %d: is_read: %v", line, err)
		}
		records = append(records, Record{
			URL:         field(row, "url"),
			Description: field(row, "description"),
			Tags:        splitTags(field(row, "tag")),
			IsRead:      read,
		})
	}
	return records, nil
}

// parseTXT reads one URL per line. Blank lines and # comments are skipped.
// Tags default to the labels of the URL's domain.
func parseTXT(r io.Reader) ([]Record, error) {
	records := []Record{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec := Record{URL: line}
		if host, err := domain.ExtractDomain(line); err == nil {
			rec.Tags = TagField(domain.DomainTags(host))
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, errx.E("transfer.parseTXT", errx.Validation, err)
	}
	return records, nil
}

// parseHTML collects the href of every anchor, as found in browser bookmark
// exports.
func parseHTML(r io.Reader) ([]Record, error) {
	records := []Record{}
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return records, nil
			}
			return nil, errx.E("transfer.parseHTML", errx.Validation, z.Err())
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.DataAtom != atom.A {
				continue
			}
			for _, a := range tok.Attr {
				if a.Key == "href" && strings.TrimSpace(a.Val) != "" {
					records = append(records, Record{URL: strings.TrimSpace(a.Val)})
				}
			}
		}
	}
}

func splitTags(s string) TagField {
	var out TagField
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "0", "false", "no", "n":
		return false, nil
	case "1", "true", "yes", "y":
		return true, nil
	default:
		return strconv.ParseBool(s)
	}
}

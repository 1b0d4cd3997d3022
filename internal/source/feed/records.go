package feed

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/source"
)

// DefaultFields lists, per JobRecord field, the element names tried in order
// when Config.Fields does not name one.
var DefaultFields = map[string][]string{
	"id":         {"requisitionid", "reqid", "jobid", "id", "guid"},
	"title":      {"title", "jobtitle", "name"},
	"url":        {"url", "link", "applyurl", "joburl"},
	"location":   {"location", "city", "joblocation"},
	"department": {"department", "company", "team", "category"},
	"type":       {"type", "jobtype", "employmenttype"},
	"posted":     {"posteddate", "date", "pubdate", "created"},
}

// parseRecords walks the document and turns every recordTag element into a
// JobRecord. Nested markup inside a field is flattened to its text.
func parseRecords(body, recordTag string, fields map[string]string) ([]domain.JobRecord, error) {
	dec := xml.NewDecoder(strings.NewReader(body))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	recordTag = strings.ToLower(recordTag)

	var (
		out       []domain.JobRecord
		inRecord  bool
		depth     int
		current   map[string]string
		field     string
		fieldText strings.Builder
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if len(out) > 0 {
				// keep what parsed before the damage
				break
			}
			return nil, fmt.Errorf("feed xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := strings.ToLower(t.Name.Local)
			if !inRecord {
				if name == recordTag {
					inRecord = true
					depth = 0
					current = map[string]string{}
				}
				continue
			}
			depth++
			if depth == 1 {
				field = name
				fieldText.Reset()
			}
		case xml.CharData:
			if inRecord && depth >= 1 {
				fieldText.Write(t)
			}
		case xml.EndElement:
			if !inRecord {
				continue
			}
			if depth == 0 {
				out = append(out, recordFrom(current, fields))
				inRecord = false
				continue
			}
			if depth == 1 && field != "" {
				if _, dup := current[field]; !dup {
					current[field] = source.CleanText(fieldText.String())
				}
				field = ""
			}
			depth--
		}
	}
	return out, nil
}

func recordFrom(m map[string]string, fields map[string]string) domain.JobRecord {
	get := func(f string) string {
		if tag := strings.ToLower(strings.TrimSpace(fields[f])); tag != "" {
			return m[tag]
		}
		for _, tag := range DefaultFields[f] {
			if v := m[tag]; v != "" {
				return v
			}
		}
		return ""
	}

	link := get("url")
	id := get("id")
	if id == "" {
		id = source.IDFromURL(link)
	}
	return domain.JobRecord{
		ID:         id,
		Title:      get("title"),
		URL:        link,
		Location:   get("location"),
		Department: get("department"),
		Type:       get("type"),
		PostedDate: get("posted"),
	}
}

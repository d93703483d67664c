// Package slides holds the presentation record model and the URL heuristics used to
// classify, title and embed externally hosted slide decks.
package slides

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the format of CreatedAt and LastModified in the JSON document.
const TimestampLayout = "2006-01-02 15:04"

// DefaultUploader is stored when a record is submitted without a name.
const DefaultUploader = "Anonymous"

// Kind distinguishes Google-hosted decks from plain web links.
type Kind string

const (
	KindGoogle Kind = "google"
	KindLink   Kind = "link"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindGoogle || k == KindLink
}

// Label is the human-readable badge text for the kind.
func (k Kind) Label() string {
	if k == KindGoogle {
		return "Google Slides"
	}
	return "Web Link"
}

// ParseKind accepts "google" or "link" (case-insensitive). An empty string yields "".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "google", "gslides", "drive":
		return KindGoogle, nil
	case "link", "web":
		return KindLink, nil
	}
	return "", fmt.Errorf("unknown kind %q (want google or link)", s)
}

var (
	ErrEmptyURL     = errors.New("url is required")
	ErrUnknownField = errors.New("unknown record field")
)

// Record is one catalogued presentation link.
//
// ID is informational only; callers address records by list position.
type Record struct {
	ID             int    `json:"id"`
	Title          string `json:"title"`
	URL            string `json:"url"`
	PresentationID string `json:"presentation_id"`
	Kind           Kind   `json:"type"`
	Uploader       string `json:"uploader"`
	CreatedAt      string `json:"date"`
	Description    string `json:"description"`
	LastModified   string `json:"last_modified"`
}

// Draft is the submitted form for a new record.
type Draft struct {
	URL         string
	Title       string
	Description string
	Uploader    string
	// Kind may be left empty to detect it from the URL.
	Kind Kind
}

// NewRecord builds a record from a draft. The caller chooses the ID.
func NewRecord(d Draft, id int, now time.Time) (Record, error) {
	url := strings.TrimSpace(d.URL)
	if url == "" {
		return Record{}, ErrEmptyURL
	}

	kind := d.Kind
	if kind == "" {
		kind = DetectKind(url)
	}
	if !kind.Valid() {
		return Record{}, fmt.Errorf("invalid kind %q", kind)
	}

	presentationID := url
	if kind == KindGoogle {
		presentationID = ExtractPresentationID(url)
	}

	title := strings.TrimSpace(d.Title)
	if title == "" {
		title = DefaultTitle(url)
	}

	uploader := strings.TrimSpace(d.Uploader)
	if uploader == "" {
		uploader = DefaultUploader
	}

	stamp := now.Format(TimestampLayout)
	return Record{
		ID:             id,
		Title:          title,
		URL:            url,
		PresentationID: presentationID,
		Kind:           kind,
		Uploader:       uploader,
		CreatedAt:      stamp,
		Description:    d.Description,
		LastModified:   stamp,
	}, nil
}

// Touch bumps LastModified.
func (r *Record) Touch(now time.Time) {
	r.LastModified = now.Format(TimestampLayout)
}

// SetField updates one editable field and bumps LastModified.
// Editable fields: title, description, uploader, url.
func (r *Record) SetField(field, value string, now time.Time) error {
	switch strings.ToLower(field) {
	case "title":
		r.Title = value
	case "description":
		r.Description = value
	case "uploader":
		r.Uploader = value
	case "url":
		if strings.TrimSpace(value) == "" {
			return ErrEmptyURL
		}
		r.URL = value
		if r.Kind == KindGoogle {
			r.PresentationID = ExtractPresentationID(value)
		} else {
			r.PresentationID = value
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	r.Touch(now)
	return nil
}

// Stats are the dashboard counters.
type Stats struct {
	Total  int `json:"total"`
	Google int `json:"google"`
	Links  int `json:"links"`
}

func ComputeStats(records []Record) Stats {
	s := Stats{Total: len(records)}
	for _, r := range records {
		switch r.Kind {
		case KindGoogle:
			s.Google++
		case KindLink:
			s.Links++
		}
	}
	return s
}

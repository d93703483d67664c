package slides

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	docsPresentationRe = regexp.MustCompile(`docs\.google\.com/presentation/d/([a-zA-Z0-9_-]+)`)
	presentationRe     = regexp.MustCompile(`presentation/d/([a-zA-Z0-9_-]+)`)
	slideShareSlugRe   = regexp.MustCompile(`slideshare\.net/.*/([^/?]+)`)
)

// EmbedStyle says how a platform URL turns into an iframe source.
type EmbedStyle int

const (
	EmbedNone EmbedStyle = iota
	// EmbedSuffix appends "/embed" to the original URL.
	EmbedSuffix
	// EmbedSlideShare uses the slideshow key embed endpoint.
	EmbedSlideShare
)

// Platform is a presentation host that can be shown in an inline frame.
type Platform struct {
	Name   string
	Domain string
	Title  string
	Embed  EmbedStyle
}

// Platforms is the allow-list of embeddable hosts, matched by substring on the host.
var Platforms = []Platform{
	{Name: "Canva", Domain: "canva.com", Title: "Canva Presentation", Embed: EmbedSuffix},
	{Name: "SlideShare", Domain: "slideshare.net", Title: "SlideShare Presentation", Embed: EmbedSlideShare},
	{Name: "SpeakerDeck", Domain: "speakerdeck.com", Title: "SpeakerDeck Presentation", Embed: EmbedSuffix},
	{Name: "Visme", Domain: "visme.co", Title: "Visme Presentation"},
	{Name: "Prezi", Domain: "prezi.com", Title: "Prezi Presentation"},
	{Name: "Haiku Deck", Domain: "haikudeck.com", Title: "Haiku Deck Presentation"},
	{Name: "SlideOnline", Domain: "slideonline.com", Title: "SlideOnline Presentation"},
}

// ExtractPresentationID pulls the document identifier out of a Google Slides or
// Drive link. Patterns are tried in order; the raw URL comes back when none match.
func ExtractPresentationID(raw string) string {
	if _, rest, ok := strings.Cut(raw, "/d/"); ok {
		id, _, _ := strings.Cut(rest, "/")
		if id != "" {
			return id
		}
	}
	if strings.Contains(raw, "docs.google.com/presentation/d/") {
		if m := docsPresentationRe.FindStringSubmatch(raw); m != nil {
			return m[1]
		}
	}
	if strings.Contains(raw, "drive.google.com") {
		if u, err := url.Parse(raw); err == nil {
			if id := u.Query().Get("id"); id != "" {
				return id
			}
		}
	}
	if strings.Contains(raw, "presentation/d/") {
		if m := presentationRe.FindStringSubmatch(raw); m != nil {
			return m[1]
		}
	}
	return raw
}

// IsGoogleURL reports whether the link points at Google Docs or Drive.
func IsGoogleURL(raw string) bool {
	return strings.Contains(raw, "docs.google.com") || strings.Contains(raw, "drive.google.com")
}

// DetectKind guesses the record kind from the URL.
func DetectKind(raw string) Kind {
	if IsGoogleURL(raw) {
		return KindGoogle
	}
	return KindLink
}

func host(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return strings.ToLower(u.Host), true
}

// PlatformFor returns the allow-listed platform hosting raw, if any.
func PlatformFor(raw string) (Platform, bool) {
	h, ok := host(raw)
	if !ok || h == "" {
		return Platform{}, false
	}
	for _, p := range Platforms {
		if strings.Contains(h, p.Domain) {
			return p, true
		}
	}
	return Platform{}, false
}

// IsEmbeddable reports whether a non-Google URL lives on a known embeddable host.
func IsEmbeddable(raw string) bool {
	_, ok := PlatformFor(raw)
	return ok
}

// DefaultTitle picks a display title when the user left it blank.
func DefaultTitle(raw string) string {
	if IsGoogleURL(raw) {
		return "Google Slides Presentation"
	}
	h, ok := host(raw)
	if !ok {
		return "Untitled Presentation"
	}
	if p, found := PlatformFor(raw); found {
		return p.Title
	}
	return "Presentation from " + strings.ReplaceAll(h, "www.", "")
}

// GoogleEmbedURL is the iframe source for a Google Slides presentation.
func GoogleEmbedURL(presentationID string) string {
	return "https://docs.google.com/presentation/d/" + presentationID + "/embed"
}

// EmbedURL returns the iframe source for a record, or false when the record can
// only be linked to.
func EmbedURL(r Record) (string, bool) {
	if r.Kind == KindGoogle {
		id := r.PresentationID
		if id == "" {
			id = ExtractPresentationID(r.URL)
		}
		return GoogleEmbedURL(id), true
	}
	p, ok := PlatformFor(r.URL)
	if !ok {
		return "", false
	}
	switch p.Embed {
	case EmbedSuffix:
		return r.URL + "/embed", true
	case EmbedSlideShare:
		if m := slideShareSlugRe.FindStringSubmatch(r.URL); m != nil {
			return "https://www.slideshare.net/slideshow/embed_code/key/" + m[1], true
		}
	}
	return "", false
}

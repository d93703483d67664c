package slides

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPresentationID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "slides edit link",
			url:  "https://docs.google.com/presentation/d/1AbC-d_9xYz/edit#slide=id.p",
			want: "1AbC-d_9xYz",
		},
		{
			name: "drive file link",
			url:  "https://drive.google.com/file/d/0BxYz123/view?usp=sharing",
			want: "0BxYz123",
		},
		{
			name: "drive open link",
			url:  "https://drive.google.com/open?id=1QwErTy",
			want: "1QwErTy",
		},
		{
			name: "id runs to end of url",
			url:  "https://docs.google.com/presentation/d/1ZZZ",
			want: "1ZZZ",
		},
		{
			name: "empty segment falls through to regex",
			url:  "https://example.com/d//docs.google.com/presentation/d/abc123/edit",
			want: "abc123",
		},
		{
			name: "drive without id param",
			url:  "https://drive.google.com/drive/folders",
			want: "https://drive.google.com/drive/folders",
		},
		{
			name: "unrecognized url returned unchanged",
			url:  "https://www.canva.com/design/DAF123/view",
			want: "https://www.canva.com/design/DAF123/view",
		},
		{
			name: "not a url",
			url:  "just some text",
			want: "just some text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPresentationID(tt.url))
		})
	}
}

func TestIsEmbeddable(t *testing.T) {
	assert.True(t, IsEmbeddable("https://www.canva.com/design/abc/view"))
	assert.True(t, IsEmbeddable("https://SpeakerDeck.com/user/talk"))
	assert.True(t, IsEmbeddable("https://prezi.com/p/xyz/"))
	assert.False(t, IsEmbeddable("https://example.com/deck.pdf"))
	assert.False(t, IsEmbeddable("https://example.com/?ref=canva.com"))
}

func TestDefaultTitle(t *testing.T) {
	assert.Equal(t, "Google Slides Presentation", DefaultTitle("https://docs.google.com/presentation/d/x/edit"))
	assert.Equal(t, "Google Slides Presentation", DefaultTitle("https://drive.google.com/open?id=x"))
	assert.Equal(t, "Canva Presentation", DefaultTitle("https://www.canva.com/design/abc"))
	assert.Equal(t, "SlideShare Presentation", DefaultTitle("https://www.slideshare.net/user/deck"))
	assert.Equal(t, "SpeakerDeck Presentation", DefaultTitle("https://speakerdeck.com/user/talk"))
	assert.Equal(t, "Presentation from example.org", DefaultTitle("https://www.example.org/slides"))
	assert.Equal(t, "Untitled Presentation", DefaultTitle("http://[::1"))
}

func TestEmbedURL(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		want   string
		ok     bool
	}{
		{
			name:   "google",
			record: Record{Kind: KindGoogle, URL: "https://docs.google.com/presentation/d/abc/edit"},
			want:   "https://docs.google.com/presentation/d/abc/embed",
			ok:     true,
		},
		{
			name: "google uses the stored presentation id",
			record: Record{
				Kind:           KindGoogle,
				URL:            "https://docs.google.com/presentation/d/abc/edit",
				PresentationID: "xyz",
			},
			want: "https://docs.google.com/presentation/d/xyz/embed",
			ok:   true,
		},
		{
			name:   "canva",
			record: Record{Kind: KindLink, URL: "https://www.canva.com/design/DAF/view"},
			want:   "https://www.canva.com/design/DAF/view/embed",
			ok:     true,
		},
		{
			name:   "slideshare",
			record: Record{Kind: KindLink, URL: "https://www.slideshare.net/someone/great-deck?from=search"},
			want:   "https://www.slideshare.net/slideshow/embed_code/key/great-deck",
			ok:     true,
		},
		{
			name:   "prezi is allow-listed but has no embed form",
			record: Record{Kind: KindLink, URL: "https://prezi.com/p/xyz/"},
			ok:     false,
		},
		{
			name:   "unknown host",
			record: Record{Kind: KindLink, URL: "https://example.com/deck"},
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := EmbedURL(tt.record)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectKind(t *testing.T) {
	assert.Equal(t, KindGoogle, DetectKind("https://docs.google.com/presentation/d/x"))
	assert.Equal(t, KindLink, DetectKind("https://speakerdeck.com/a/b"))
}

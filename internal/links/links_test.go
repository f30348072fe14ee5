package links_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/index-checker/internal/links"
	"github.com/jonesrussell/index-checker/internal/models"
)

func TestExtractOutgoing(t *testing.T) {
	t.Parallel()

	html := `
<p>Read <a href="https://partner.com/offer">the <b>offer</b></a>.</p>
<p><a href="https://blog.com/internal">internal</a>
<a href="/relative">relative</a>
<a href="#top">top</a>
<a href="mailto:me@x.com">mail</a>
<a href="tel:+123">call</a>
<a href="">empty</a>
<a href="https://partner.com/offer">the offer</a>
<a href="https://Other.org/x"><img src="x.png"></a></p>`

	got := links.ExtractOutgoing(html, "https://blog.com/post")

	assert.Equal(t, []models.OutgoingLink{
		{Domain: "partner.com", Anchor: "the offer", URL: "https://partner.com/offer"},
		{Domain: "other.org", Anchor: links.NoText, URL: "https://Other.org/x"},
	}, got)
}

func TestExtractOutgoing_KeepsSameURLWithDifferentAnchor(t *testing.T) {
	t.Parallel()

	html := `<a href="https://x.com">one</a><a href="https://x.com">two</a>`
	got := links.ExtractOutgoing(html, "https://blog.com/post")
	require.Len(t, got, 2)
}

func TestExtractOutgoing_TruncatesAnchor(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", 150)
	got := links.ExtractOutgoing(`<a href="https://x.com">`+long+`</a>`, "https://blog.com/post")

	require.Len(t, got, 1)
	assert.Equal(t, links.MaxAnchorLength, len([]rune(got[0].Anchor)))
}

func TestExtractOutgoing_EmptyInput(t *testing.T) {
	t.Parallel()

	assert.Empty(t, links.ExtractOutgoing("", "https://blog.com/post"))
	assert.Empty(t, links.ExtractOutgoing(`<a href="https://x.com">x</a>`, ""))
}

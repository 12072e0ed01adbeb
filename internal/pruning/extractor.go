package pruning

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"codeberg.org/readeck/go-readability"
	"golang.org/x/net/html"
)

// Source kinds.
const (
	SourceScraping = "scraping"
	SourceImage    = "image"
)

// Source is one pinned text source of a scheduling run.
type Source struct {
	Kind      string
	VersionID int64
	URL       string
	Content   *string
}

// Extractor turns a source into lines of text. It returns ErrNoContent when
// the source holds nothing to prune.
type Extractor interface {
	Extract(ctx context.Context, src Source) ([]string, error)
}

// HTMLExtractor reads scraped HTML through readability, falling back to the
// whole document when readability finds no article. Image sources already
// hold plain text.
type HTMLExtractor struct {
	logger *slog.Logger
}

func NewHTMLExtractor(logger *slog.Logger) *HTMLExtractor {
	return &HTMLExtractor{logger: logger.With("extractor", "html")}
}

func (e *HTMLExtractor) Extract(ctx context.Context, src Source) ([]string, error) {
	if src.Content == nil || strings.TrimSpace(*src.Content) == "" {
		return nil, ErrNoContent
	}

	var lines []string
	switch src.Kind {
	case SourceImage:
		lines = splitLines(*src.Content)
	default:
		var err error
		lines, err = e.extractHTML(ctx, src)
		if err != nil {
			return nil, err
		}
	}

	if len(lines) == 0 {
		return nil, ErrNoContent
	}
	return lines, nil
}

func (e *HTMLExtractor) extractHTML(ctx context.Context, src Source) ([]string, error) {
	doc := *src.Content

	article, err := readability.FromReader(strings.NewReader(doc), nil)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		lines, err := htmlLines(strings.NewReader(article.Content))
		if err == nil && len(lines) > 0 {
			return lines, nil
		}
	}
	if err != nil {
		e.logger.DebugContext(ctx, "readability fallback", "url", src.URL, "error", err)
	}

	lines, err := htmlLines(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoContent, err)
	}
	return lines, nil
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "td": true, "th": true, "table": true, "section": true,
	"article": true, "header": true, "footer": true, "blockquote": true,
	"dt": true, "dd": true,
}

var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

// htmlLines renders the visible text of an HTML document, one line per
// block element.
func htmlLines(r io.Reader) ([]string, error) {
	z := html.NewTokenizer(r)
	var (
		sb   strings.Builder
		skip int
	)

	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return splitLines(sb.String()), nil
			}
			return nil, z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipTags[tag] {
				skip++
			}
			if blockTags[tag] {
				sb.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipTags[tag] && skip > 0 {
				skip--
			}
			if blockTags[tag] {
				sb.WriteByte('\n')
			}
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		}
	}
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if c := cleanLine(l); c != "" {
			lines = append(lines, c)
		}
	}
	return lines
}

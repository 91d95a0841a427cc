package scrape

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/apiwire-hq/apiwire/pkg/typedhttp"
)

// Package scrape decodes HTML response bodies into page metadata, showing the
// typed client working against non-JSON payloads.

const maxHTMLBodyBytes = 1 << 20 // 1 MiB

// PageMeta holds Open Graph metadata extracted from an HTML page.
type PageMeta struct {
	Title       string
	Description string
	ImageURL    string
}

// MetaDecoder returns a decoder extracting OG tags (with sensible fallbacks)
// from an HTML body.
func MetaDecoder() typedhttp.Decoder[PageMeta] {
	return func(body []byte) (PageMeta, error) {
		if len(body) > maxHTMLBodyBytes {
			body = body[:maxHTMLBodyBytes]
		}
		return parseMeta(body)
	}
}

func parseMeta(body []byte) (PageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return PageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	content := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	pm := PageMeta{
		Title: firstNonEmpty(
			content(`meta[property="og:title"]`),
			strings.TrimSpace(doc.Find("title").First().Text()),
		),
		Description: firstNonEmpty(
			content(`meta[property="og:description"]`),
			content(`meta[name="description"]`),
		),
		ImageURL: content(`meta[property="og:image"]`),
	}

	return pm, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

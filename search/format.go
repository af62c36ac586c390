package search

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

var blockDivider = strings.Repeat("-", 50)

// FormatResults renders a result set as a markdown block for re-injection
// into a model prompt. Pure, and never returns an empty string: an empty set
// becomes an explicit no-results line.
func FormatResults(set *SearchResultSet) string {
	query := ""
	if set != nil {
		query = set.Query
	}
	if set == nil || len(set.Results) == 0 {
		return fmt.Sprintf("No search results found for %q.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Search results for %q\n\n", query)

	for i, r := range set.Results {
		title := r.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&b, "### Source %d: %s\n", i+1, title)
		fmt.Fprintf(&b, "- **URL**: %s\n", r.URL)

		published := r.PublishedDate
		if published == "" {
			published = "unknown"
		}
		fmt.Fprintf(&b, "- **Published**: %s\n", published)

		if r.Author != "" {
			fmt.Fprintf(&b, "- **Author**: %s\n", r.Author)
		}

		snippet := r.Text
		if snippet == "" {
			snippet = "No snippet available."
		}
		fmt.Fprintf(&b, "\n**Snippet**: %s\n\n", snippet)

		if len(r.Highlights) > 0 {
			b.WriteString("**Key points**:\n")
			for _, h := range r.Highlights {
				fmt.Fprintf(&b, "- %s\n", emphasizeMarkup(h))
			}
			b.WriteString("\n")
		}

		b.WriteString(blockDivider + "\n\n")
	}

	return b.String()
}

// emphasizeMarkup replaces embedded markup tags in a highlight fragment with
// markdown emphasis markers so the fragment stays readable inside a prompt.
func emphasizeMarkup(fragment string) string {
	if !strings.ContainsRune(fragment, '<') {
		return fragment
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken:
			b.WriteString("**")
		}
	}
}

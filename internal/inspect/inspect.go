// Package inspect derives statistics from the markup captured out of a
// route's root container.
package inspect

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Stats summarises rendered root-container markup.
type Stats struct {
	// TextLength counts characters of visible text after whitespace is collapsed.
	TextLength   int
	ElementCount int
}

const invisibleSelectors = "script,style,noscript,template"

// Length is the character count of markup. This, not the byte count, is what
// the content threshold is compared against.
func Length(markup string) int {
	return utf8.RuneCountInString(markup)
}

// Analyze parses markup as the children of a body element.
func Analyze(markup string) (Stats, error) {
	if strings.TrimSpace(markup) == "" {
		return Stats{}, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return Stats{}, fmt.Errorf("parse root markup: %w", err)
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		return Stats{}, nil
	}

	elements := 0
	for _, n := range body.Nodes {
		elements += countElements(n)
	}

	body.Find(invisibleSelectors).Remove()
	text := strings.Join(strings.Fields(body.Text()), " ")

	return Stats{
		TextLength:   utf8.RuneCountInString(text),
		ElementCount: elements,
	}, nil
}

// countElements counts element descendants of n, excluding n itself.
func countElements(n *html.Node) int {
	total := 0
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode {
			total++
		}
		total += countElements(child)
	}
	return total
}

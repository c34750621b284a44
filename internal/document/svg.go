package document

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// svgText extracts human-readable text from SVG documents.
//
// Infographics and exported diagrams scatter their prose across several
// places depending on the authoring tool, so extraction gathers every
// source and concatenates them in document order:
//
//  1. <text> and <tspan> elements (visible labels)
//  2. <metadata> element content
//  3. <desc> element content
//  4. title, aria-label and data-* attributes anywhere in the tree
//
// Only when none of these yield text does extraction fall back to a
// whitespace-normalized flatten of the whole document.
type svgText struct{}

func (svgText) Extract(data []byte) (string, error) {
	// goquery's HTML parser error-corrects and accepts almost any
	// byte soup, so malformed markup is rejected with a strict XML
	// walk first.
	if err := validateXML(data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}

	var sections []string
	for _, s := range []string{
		collectText(doc, "text, tspan"),
		collectText(doc, "metadata"),
		collectText(doc, "desc"),
		collectAttrText(doc),
	} {
		if s != "" {
			sections = append(sections, s)
		}
	}
	if len(sections) == 0 {
		// Last resort: flatten everything.
		return normalizeSpace(doc.Text()), nil
	}
	return strings.Join(sections, "\n"), nil
}

// validateXML walks the token stream to confirm the input is
// well-formed XML.
func validateXML(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// collectText gathers the text of every node matching selector,
// deduplicating nested matches (tspan inside text).
func collectText(doc *goquery.Document, selector string) string {
	var parts []string
	seen := make(map[string]bool)

	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		t := normalizeSpace(s.Text())
		if t == "" || seen[t] {
			return
		}
		seen[t] = true

		// Skip nodes whose text is already covered by a parent match.
		for _, prev := range parts {
			if strings.Contains(prev, t) {
				return
			}
		}
		parts = append(parts, t)
	})

	return strings.Join(parts, "\n")
}

// collectAttrText gathers descriptive attribute values from the whole
// tree, labelled the way infographic consumers expect them.
func collectAttrText(doc *goquery.Document) string {
	var parts []string
	seen := make(map[string]bool)

	add := func(line string) {
		if seen[line] {
			return
		}
		seen[line] = true
		parts = append(parts, line)
	}

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, node := range s.Nodes {
			for _, attr := range node.Attr {
				val := normalizeSpace(attr.Val)
				if val == "" {
					continue
				}
				switch {
				case attr.Key == "title":
					add("Título: " + val)
				case attr.Key == "aria-label":
					add("Etiqueta: " + val)
				case strings.HasPrefix(attr.Key, "data-"):
					add(attr.Key + ": " + val)
				}
			}
		}
	})

	return strings.Join(parts, "\n")
}

// normalizeSpace collapses all runs of whitespace into single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

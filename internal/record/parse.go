package record

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrNotARecord signals that the parsed document denotes a
// non-existent record (one of the two sentinel documents below). It
// is not a real error: Parse's caller (Fetcher.Get) turns it into a
// (nil, nil) result and never surfaces it further.
var ErrNotARecord = errors.New("record: document does not describe an existing record")

const sentinelNonNumeric = "Non-numeric id supplied. Aborting."
const sentinelMissing = "You have specified an ID that does not exist in the database. Please back up and try again."

var (
	spaceRun     = regexp.MustCompile(`\s{2,}`)
	advisorWord  = regexp.MustCompile(`(Advisor|Promotor)`)
	idHrefParam  = regexp.MustCompile(`id\.php\?id=(\d+)`)
	unknownWords = "Advisor: Unknown"
)

// Parse implements the record-extraction contract: given the raw HTML
// of a GET .../id.php?id=<id> response, it returns the Record, or
// ErrNotARecord if the document is one of the two "no such record"
// sentinels.
func Parse(id ID, raw []byte) (*Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("record: parsing html for id %d: %w", id, err)
	}

	if isSentinelDocument(doc) {
		return nil, ErrNotARecord
	}

	rec := &Record{ID: id}
	rec.Name = collapseSpaces(strings.TrimSpace(doc.Find("h2").First().Text()))

	rec.Institution = extractInstitution(doc)
	if year, hasYear := extractYear(doc); hasYear {
		rec.Year = year
		rec.HasYear = true
	}

	rec.Descendants = extractDescendants(doc)
	rec.Advisors = extractAdvisors(doc)

	return rec, nil
}

// isSentinelDocument reports whether doc is one of the two documents
// that mean "no such record" (spec §6):
//   - the document's root text equals the non-numeric-id sentinel, or
//   - it has no <p>, or its first <p>'s text equals the missing-id sentinel.
func isSentinelDocument(doc *goquery.Document) bool {
	rootText := strings.TrimSpace(doc.Text())
	if rootText == sentinelNonNumeric {
		return true
	}

	ps := doc.Find("p")
	if ps.Length() == 0 {
		return true
	}
	first := strings.TrimSpace(ps.First().Text())
	return first == sentinelMissing
}

func collapseSpaces(s string) string {
	return spaceRun.ReplaceAllString(s, " ")
}

// institutionDivStyle is the style attribute (whitespace-normalized)
// that marks a div as a candidate institution/year container.
const institutionDivStyle = "line-height: 30px; text-align: center; margin-bottom: 1ex"

// isInstitutionDiv reports whether s carries institutionDivStyle.
func isInstitutionDiv(s *goquery.Selection) bool {
	style, _ := s.Attr("style")
	return normalizeStyle(style) == normalizeStyle(institutionDivStyle)
}

// extractInstitution returns the institution name, or "" if none is
// found. It scans every institution-style div in document order,
// mirroring record.py's get_institution: a div missing the nested
// span, or whose nested span is empty, is skipped rather than ending
// the search — the first div with a non-empty institution wins, even
// if it is not the first style-matching div on the page.
func extractInstitution(doc *goquery.Document) string {
	var institution string
	doc.Find("div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !isInstitutionDiv(s) {
			return true
		}
		outerSpan := s.Find("span").First()
		if outerSpan.Length() == 0 {
			return true
		}
		innerSpan := outerSpan.Find("span").First()
		if innerSpan.Length() == 0 {
			return true
		}
		text := strings.TrimSpace(innerSpan.Text())
		if text == "" {
			return true
		}
		institution = text
		return false
	})
	return institution
}

// extractYear returns the graduation year and whether one was found.
// It scans every institution-style div in document order, mirroring
// record.py's get_year: a div whose outer span has no usable trailing
// text (comma-truncated, numeric-only) is skipped, not fatal — the
// first div yielding a year wins, independently of which div (if any)
// supplied the institution name.
func extractYear(doc *goquery.Document) (year int, hasYear bool) {
	doc.Find("div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !isInstitutionDiv(s) {
			return true
		}
		outerSpan := s.Find("span").First()
		if outerSpan.Length() == 0 {
			return true
		}
		raw, ok := lastChildText(outerSpan)
		if !ok {
			return true
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return true
		}
		if idx := strings.Index(raw, ","); idx >= 0 {
			raw = strings.TrimSpace(raw[:idx])
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return true
		}
		year, hasYear = n, true
		return false
	})
	return year, hasYear
}

// lastChildText returns the text of s's last direct child node, but
// only when that last child is itself a text node: a trailing element
// child means there is no usable trailing text, mirroring record.py's
// `.contents[-1].strip()` raising AttributeError on a Tag.
func lastChildText(s *goquery.Selection) (string, bool) {
	for _, n := range s.Nodes {
		last := n.LastChild
		if last == nil || last.Type != html.TextNode {
			return "", false
		}
		return last.Data, true
	}
	return "", false
}

// extractDescendants returns the ids linked by every <a> inside the
// first <table> on the page.
func extractDescendants(doc *goquery.Document) []ID {
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil
	}

	var out []ID
	table.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		if id, ok := idFromHref(href); ok {
			out = append(out, id)
		}
	})
	return out
}

// extractAdvisors walks text nodes looking for "Advisor" or "Promotor"
// (case-sensitive per the source site's markup), excluding
// "Advisor: Unknown", and for each match follows the next element
// sibling's href to extract the advisor's id.
func extractAdvisors(doc *goquery.Document) []ID {
	var out []ID
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type != html.TextNode {
					continue
				}
				text := c.Data
				if !advisorWord.MatchString(text) {
					continue
				}
				if strings.Contains(text, unknownWords) {
					continue
				}
				for sib := c.NextSibling; sib != nil; sib = sib.NextSibling {
					if sib.Type == html.ElementNode {
						href := attrOf(sib, "href")
						if id, ok := idFromHref(href); ok {
							out = append(out, id)
						}
						break
					}
				}
			}
		}
	})
	return out
}

func attrOf(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func idFromHref(href string) (ID, bool) {
	if m := idHrefParam.FindStringSubmatch(href); m != nil {
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return ID(n), true
		}
		return 0, false
	}
	// fall back to generic query parsing for hrefs goquery normalizes differently.
	u, err := url.Parse(href)
	if err != nil {
		return 0, false
	}
	raw := u.Query().Get("id")
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return ID(n), true
}

func normalizeStyle(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

package esesja

import (
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	xlang "golang.org/x/text/language"

	"github.com/mwidera/plenum/internal/catalog"
	"github.com/mwidera/plenum/internal/services"
)

var (
	identifierPattern = regexp.MustCompile(`/transmisja/(\d+)/`)
	datePattern       = regexp.MustCompile(`(\d{1,2})\s+(\p{L}+)\s+(\d{4})`)
	viewsPattern      = regexp.MustCompile(`(\d+)`)
)

// parseListing extracts session items from one listing page. Containers that
// are missing a title or a recognizable session link are skipped rather than
// failing the page; the site occasionally renders placeholder tiles.
func parseListing(baseURL string, r io.Reader) ([]catalog.Item, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "esesja", "parse listing",
			"listing page is not parseable HTML", err)
	}

	base, _ := url.Parse(baseURL)
	var items []catalog.Item
	doc.Find("div.transmisja").Each(func(_ int, container *goquery.Selection) {
		item, ok := parseContainer(base, container)
		if ok {
			items = append(items, item)
		}
	})
	return items, nil
}

func parseContainer(base *url.URL, container *goquery.Selection) (catalog.Item, bool) {
	href, _ := container.Find("a").First().Attr("href")
	sourceURL := absoluteURL(base, href)
	match := identifierPattern.FindStringSubmatch(sourceURL)
	if match == nil {
		return catalog.Item{}, false
	}

	title := normalizeTitle(container.Find("div.title a").First().Text())
	if title == "" {
		return catalog.Item{}, false
	}

	item := catalog.Item{
		Identifier: match[1],
		Title:      title,
		Publisher:  strings.TrimSpace(container.Find("div.publisher a").First().Text()),
		SourceURL:  sourceURL,
	}

	timeText := container.Find("div.publisher div.time").First().Text()
	if dateMatch := datePattern.FindString(timeText); dateMatch != "" {
		item.PublishedAt, _ = parsePolishDate(dateMatch)
		// Whatever number remains after the date is the view counter.
		timeText = strings.Replace(timeText, dateMatch, "", 1)
	}
	if viewsMatch := viewsPattern.FindString(timeText); viewsMatch != "" {
		item.Views, _ = strconv.Atoi(viewsMatch)
	}
	return item, true
}

func absoluteURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

var polishTitleCaser = cases.Title(xlang.Polish)

// normalizeTitle collapses whitespace and tames the all-caps titles some
// councils publish ("SESJA RADY MIEJSKIEJ" reads poorly in a table).
func normalizeTitle(raw string) string {
	title := strings.Join(strings.Fields(raw), " ")
	if title == "" || !isShouting(title) {
		return title
	}
	return polishTitleCaser.String(title)
}

func isShouting(s string) bool {
	letters, upper := 0, 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	return letters >= 4 && letters == upper
}

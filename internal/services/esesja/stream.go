package esesja

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mwidera/plenum/internal/logging"
	"github.com/mwidera/plenum/internal/services"
)

var m3u8Pattern = regexp.MustCompile(`["']([^"']*\.m3u8[^"']*)["']`)

// StreamURL resolves the playable stream behind a session page. The player
// markup has shifted over the years, so three spots are checked in order: the
// videourl attribute on the player div, the video-js source element, and
// finally any m3u8 reference inside inline scripts.
func (c *Client) StreamURL(ctx context.Context, pageURL string) (string, error) {
	body, err := c.get(ctx, pageURL, "resolve stream")
	if err != nil {
		return "", err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", services.Wrap(services.ErrNetwork, "esesja", "resolve stream",
			"session page is not parseable HTML", err)
	}

	if streamURL, ok := doc.Find("div#video").First().Attr("videourl"); ok && strings.TrimSpace(streamURL) != "" {
		return strings.TrimSpace(streamURL), nil
	}
	if streamURL, ok := doc.Find("video-js video").First().Attr("src"); ok && strings.TrimSpace(streamURL) != "" {
		return strings.TrimSpace(streamURL), nil
	}

	var fromScript string
	doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		if match := m3u8Pattern.FindStringSubmatch(script.Text()); match != nil {
			fromScript = match[1]
			return false
		}
		return true
	})
	if fromScript != "" {
		c.logger.Debug("stream url found in inline script", logging.String("url", fromScript))
		return fromScript, nil
	}

	return "", services.Wrap(services.ErrUnsupportedFormat, "esesja", "resolve stream",
		fmt.Sprintf("no stream url on %s", pageURL), nil)
}

// Package youtube builds YouTube embed markup and recognises the
// :::youtube{videoId="..."} directive in markdown.
package youtube

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	videoIDRe        = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	videoURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/watch\?.*v=([a-zA-Z0-9_-]{11})`),
	}
)

const defaultTitle = "YouTube video"

type EmbedOptions struct {
	VideoID  string
	Title    string
	Autoplay bool
	Mute     bool
	Rel      bool
	Start    int
	End      int
}

func ValidateVideoID(id string) bool {
	return videoIDRe.MatchString(strings.TrimSpace(id))
}

// ExtractVideoID finds the video id in a watch, short or embed URL.
func ExtractVideoID(u string) (string, bool) {
	for _, re := range videoURLPatterns {
		if m := re.FindStringSubmatch(u); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func EmbedURL(opts EmbedOptions) (string, error) {
	id := strings.TrimSpace(opts.VideoID)
	if !ValidateVideoID(id) {
		return "", fmt.Errorf("invalid YouTube videoId: %s", opts.VideoID)
	}

	q := url.Values{}
	q.Set("rel", "0")
	if opts.Rel {
		q.Set("rel", "1")
	}
	if opts.Autoplay {
		q.Set("autoplay", "1")
	}
	if opts.Mute {
		q.Set("mute", "1")
	}
	if opts.Start > 0 {
		q.Set("start", strconv.Itoa(opts.Start))
	}
	if opts.End > 0 {
		q.Set("end", strconv.Itoa(opts.End))
	}

	u := url.URL{
		Scheme:   "https",
		Host:     "www.youtube.com",
		Path:     "/embed/" + id,
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

// EmbedHTML renders a responsive iframe, or an error box when the id is
// invalid.
func EmbedHTML(opts EmbedOptions) string {
	src, err := EmbedURL(opts)
	if err != nil {
		return errorBox(err.Error())
	}
	title := opts.Title
	if title == "" {
		title = defaultTitle
	}

	var b strings.Builder
	b.WriteString(`<div class="youtube-embed my-6">` + "\n")
	b.WriteString(`<div class="relative w-full" style="padding-bottom: 56.25%;">` + "\n")
	fmt.Fprintf(&b, `<iframe src="%s" title="%s" width="100%%" height="315" `, html.EscapeString(src), html.EscapeString(title))
	b.WriteString(`class="absolute top-0 left-0 h-full w-full rounded-lg border-0" `)
	b.WriteString(`allow="accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture" `)
	b.WriteString(`allowfullscreen loading="lazy" `)
	b.WriteString(`sandbox="allow-same-origin allow-scripts allow-presentation allow-popups allow-popups-to-escape-sandbox"></iframe>` + "\n")
	b.WriteString("</div>\n</div>")
	return b.String()
}

func errorBox(msg string) string {
	return `<div class="youtube-embed-error my-6 p-4"><p>Error: ` + html.EscapeString(msg) + `</p></div>`
}

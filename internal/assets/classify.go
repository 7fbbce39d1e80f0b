package assets

import (
	"fmt"
	"html"
	"path"
	"strings"

	"github.com/tkwsnb/notepress/internal/fileutil"
)

// DefaultVideoStyle is the inline style applied to generated video tags.
const DefaultVideoStyle = "width: 100%; max-width: 100%; border-radius: 8px;"

type Kind int

const (
	KindImage Kind = iota + 1
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	}
	return "unknown"
}

// Replacement is what an embed turns into. Kind selects which of the fields
// are meaningful: images use Src and Alt, videos use Src and Style.
type Replacement struct {
	Kind  Kind
	Src   string
	Alt   string
	Style string
}

// Block reports whether the replacement must not sit inside a paragraph.
func (r Replacement) Block() bool {
	return r.Kind == KindVideo
}

// HTML renders the replacement as a literal tag.
func (r Replacement) HTML() string {
	switch r.Kind {
	case KindImage:
		return fmt.Sprintf(`<img src="%s" alt="%s">`, html.EscapeString(r.Src), html.EscapeString(r.Alt))
	case KindVideo:
		tag := `<video src="` + html.EscapeString(r.Src) + `" controls autoplay muted loop playsinline`
		if r.Style != "" {
			tag += ` style="` + html.EscapeString(r.Style) + `"`
		}
		return tag + `></video>`
	}
	return ""
}

// Classifier turns resolved assets into replacements.
type Classifier struct {
	VideoStyle string
}

func NewClassifier(videoStyle string) Classifier {
	return Classifier{VideoStyle: videoStyle}
}

// Classify decides by the resolved file's extension. ok is false for files
// that are neither a supported image nor a supported video.
func (c Classifier) Classify(a Asset) (Replacement, bool) {
	switch {
	case fileutil.IsImage(a.FilePath):
		return Replacement{Kind: KindImage, Src: a.WebPath, Alt: AltText(a.Name)}, true
	case fileutil.IsVideo(a.FilePath):
		return Replacement{Kind: KindVideo, Src: a.WebPath, Style: c.VideoStyle}, true
	}
	return Replacement{}, false
}

// AltText is the base name without its extension.
func AltText(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

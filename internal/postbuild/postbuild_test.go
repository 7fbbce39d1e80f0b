package postbuild

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tkwsnb/notepress/internal/assets"
	"github.com/tkwsnb/notepress/internal/logger"
	"github.com/tkwsnb/notepress/internal/storage"
)

const videoTag = `<video src="/clip.mp4" controls autoplay muted loop playsinline style="width: 100%; max-width: 100%; border-radius: 8px;"></video>`

func newResolver(t *testing.T, fs afero.Fs, files ...string) *assets.Resolver {
	t.Helper()
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fs, f, []byte("x"), 0o644))
	}
	return assets.NewResolver(fs, assets.Options{
		Roots: []assets.SearchRoot{
			{Dir: "/site/content/assets", URLPrefix: "/images"},
			{Dir: "/site/public", Static: true},
		},
		ContentRoot: "/site/content",
	})
}

func TestRewritePageWithResolver(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	rw := &PageRewriter{
		Resolver:   newResolver(t, fs, "/site/content/assets/cover.png", "/site/public/clip.mp4"),
		Classifier: assets.NewClassifier(assets.DefaultVideoStyle),
	}

	tests := []struct {
		name    string
		in      string
		want    string
		changed bool
	}{
		{
			name:    "image",
			in:      "<h1>x</h1>\n<p>![[cover.png]]</p>\n",
			want:    "<h1>x</h1>\n<img src=\"/images/assets/cover.png\" alt=\"cover\">\n",
			changed: true,
		},
		{
			name:    "video",
			in:      "<p>![[clip.mp4]]</p>",
			want:    videoTag,
			changed: true,
		},
		{
			name:    "extension case must match the file",
			in:      "<p>![[cover.PNG]]</p>",
			want:    "<p>![[cover.PNG]]</p>",
			changed: false,
		},
		{
			name: "missing file",
			in:   "<p>![[gone.png]]</p>",
			want: "<p>![[gone.png]]</p>",
		},
		{
			name: "token inside text is not a page-level embed",
			in:   "<p>see ![[cover.png]]</p>",
			want: "<p>see ![[cover.png]]</p>",
		},
		{
			name: "unsupported extension",
			in:   "<p>![[notes.pdf]]</p>",
			want: "<p>![[notes.pdf]]</p>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, changed := rw.RewritePage(tt.in, "/site/_site/post")
			assert.Equal(t, tt.want, out)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestRewritePageUppercaseExtensionMatches(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	rw := &PageRewriter{
		Resolver:   newResolver(t, fs, "/site/content/assets/Cover.PNG"),
		Classifier: assets.NewClassifier(""),
	}
	out, changed := rw.RewritePage("<p>![[Cover.PNG]]</p>", "/site/_site")
	assert.True(t, changed)
	assert.Equal(t, `<img src="/images/assets/Cover.PNG" alt="Cover">`, out)
}

func TestRewritePageUnescapesRenderedNames(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	rw := &PageRewriter{
		Resolver:   newResolver(t, fs, "/site/public/a&b.png"),
		Classifier: assets.NewClassifier(""),
	}
	out, changed := rw.RewritePage("<p>![[a&amp;b.png]]</p>", "/site/_site")
	assert.True(t, changed)
	assert.Equal(t, `<img src="/a&amp;b.png" alt="a&amp;b">`, out)
}

func TestRewritePageBaseURL(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	withResolver := &PageRewriter{
		Resolver:   newResolver(t, fs, "/site/public/my-clip.mp4", "/site/public/a.png"),
		Classifier: assets.NewClassifier(""),
		BaseURL:    "https://cdn.example.com/media/",
	}
	out, changed := withResolver.RewritePage("<p>![[a.png]]</p><p>![[my clip.mp4]]</p><p>![[b.png]]</p>", "/site/_site")
	assert.True(t, changed)
	assert.Equal(t, `<img src="https://cdn.example.com/media/a.png" alt="a">`+
		`<video src="https://cdn.example.com/media/my-clip.mp4" controls autoplay muted loop playsinline></video>`+
		`<p>![[b.png]]</p>`, out)

	// no resolver: every token is trusted
	remoteOnly := &PageRewriter{BaseURL: "https://cdn.example.com"}
	out, changed = remoteOnly.RewritePage("<p>![[b.png]]</p><p>![[my clip.png]]</p>", "/site/_site")
	assert.True(t, changed)
	assert.Equal(t, `<img src="https://cdn.example.com/b.png" alt="b">`+
		`<img src="https://cdn.example.com/my%20clip.png" alt="my clip">`, out)
}

func TestRewritePageDisabled(t *testing.T) {
	t.Parallel()

	rw := &PageRewriter{}
	in := "<p>![[a.png]]</p>"
	out, changed := rw.RewritePage(in, "/site/_site")
	assert.False(t, changed)
	assert.Equal(t, in, out)
}

func TestRewritePageLogsMisses(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	rw := &PageRewriter{
		Resolver: newResolver(t, afero.NewMemMapFs()),
		Log:      zap.New(core).Sugar(),
	}
	rw.RewritePage("<p>![[gone.png]]</p>", "/site/_site/post")

	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "gone.png")
	assert.Contains(t, logs.All()[0].Message, "/site/_site/post")
}

func TestRewritePageAfterBuildLogsMissesAtDebug(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	rw := &PageRewriter{
		Resolver:   newResolver(t, afero.NewMemMapFs()),
		AfterBuild: true,
		Log:        zap.New(core).Sugar(),
	}
	rw.RewritePage("<p>![[gone.png]]</p>", "/site/_site/post")

	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("gone.png").Len())
}

func TestProcessorRun(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	store, err := storage.New(fs, "/site/_site")
	require.NoError(t, err)
	require.NoError(t, store.WriteFile("a/index.html", []byte("<p>![[cover.png]]</p>\n<p>![[clip.mp4]]</p>")))
	require.NoError(t, store.WriteFile("b/index.html", []byte("<p>nothing here</p>")))
	require.NoError(t, store.WriteFile("c/index.html", []byte("<p>![[gone.png]]</p>")))
	require.NoError(t, store.WriteFile("style.css", []byte("<p>![[cover.png]]</p>")))

	rw := &PageRewriter{
		Resolver:   newResolver(t, fs, "/site/content/assets/cover.png", "/site/public/clip.mp4"),
		Classifier: assets.NewClassifier(assets.DefaultVideoStyle),
	}
	sum, err := NewProcessor(store, rw, 2, logger.Nop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Pages: 3, Changed: 1, Replaced: 2}, sum)

	got, err := store.ReadFile("a/index.html")
	require.NoError(t, err)
	assert.Equal(t, "<img src=\"/images/assets/cover.png\" alt=\"cover\">\n"+videoTag, string(got))

	got, err = store.ReadFile("c/index.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>![[gone.png]]</p>", string(got))

	got, err = store.ReadFile("style.css")
	require.NoError(t, err)
	assert.Equal(t, "<p>![[cover.png]]</p>", string(got))
}

func TestProcessorCancelled(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	store, err := storage.New(fs, "/out")
	require.NoError(t, err)
	require.NoError(t, store.WriteFile("index.html", []byte("<p>![[a.png]]</p>")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewProcessor(store, &PageRewriter{BaseURL: "https://x"}, 1, logger.Nop()).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

package assets

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, fs afero.Fs, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, afero.WriteFile(fs, p, []byte("x"), 0o644))
	}
}

func defaultRoots() []SearchRoot {
	return []SearchRoot{
		{Dir: "assets", Relative: true, URLPrefix: "/images"},
		{Dir: "/site/content/assets", URLPrefix: "/images"},
		{Dir: "/site/public", Static: true},
	}
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{raw: "cover.png", want: "cover.png"},
		{raw: "  Pasted image 1.png ", want: "Pasted-image-1.png"},
		{raw: "diagram.md", want: "diagram"},
		{raw: "diagram.MD", want: "diagram"},
		{raw: "   ", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.raw, "-"), tt.raw)
	}
}

func TestNormalizeExtensions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"", ".png", ".mp4"}, NormalizeExtensions([]string{"", "PNG", ".png", "mp4"}))
}

func TestResolveSiblingAssets(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/site/content/posts/assets/cover.png")

	r := NewResolver(fs, Options{Roots: defaultRoots(), ContentRoot: "/site/content"})

	a, ok := r.Resolve("/site/content/posts", "cover.png")
	require.True(t, ok)
	assert.Equal(t, "/site/content/posts/assets/cover.png", a.FilePath)
	assert.Equal(t, "/images/posts/assets/cover.png", a.WebPath)
	assert.Equal(t, "cover.png", a.Name)
}

func TestResolveStaticRootIsRootRelative(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/site/public/media/clip.mp4")

	r := NewResolver(fs, Options{Roots: defaultRoots(), ContentRoot: "/site/content"})

	a, ok := r.Resolve("/site/content/posts", "media/clip.mp4")
	require.True(t, ok)
	assert.Equal(t, "/media/clip.mp4", a.WebPath)
}

func TestResolveAddsExtensionsInOrder(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFiles(t, fs,
		"/site/content/assets/shot.webp",
		"/site/content/assets/shot.jpg",
	)

	r := NewResolver(fs, Options{Roots: defaultRoots(), ContentRoot: "/site/content"})

	a, ok := r.Resolve("/site/content/posts", "shot")
	require.True(t, ok)
	// .jpg precedes .webp in the extension order
	assert.Equal(t, "/site/content/assets/shot.jpg", a.FilePath)
	assert.Equal(t, "shot.jpg", a.Name)
}

func TestResolveFirstRootWins(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFiles(t, fs,
		"/site/public/logo.png",
		"/site/content/assets/logo.gif",
	)

	r := NewResolver(fs, Options{Roots: defaultRoots(), ContentRoot: "/site/content"})

	a, ok := r.Resolve("/site/content/posts", "logo")
	require.True(t, ok)
	assert.Equal(t, "/site/content/assets/logo.gif", a.FilePath)
	assert.Equal(t, "/images/assets/logo.gif", a.WebPath)

	reversed := NewResolver(fs, Options{
		Roots:       []SearchRoot{defaultRoots()[2], defaultRoots()[1]},
		ContentRoot: "/site/content",
	})
	a, ok = reversed.Resolve("/site/content/posts", "logo")
	require.True(t, ok)
	assert.Equal(t, "/site/public/logo.png", a.FilePath)
	assert.Equal(t, "/logo.png", a.WebPath)
}

func TestResolveNormalisesSpacesAndMdSuffix(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/site/content/assets/Pasted-image.png")

	r := NewResolver(fs, Options{Roots: defaultRoots(), ContentRoot: "/site/content"})

	_, ok := r.Resolve("/site/content", "Pasted image.png")
	assert.True(t, ok)
	_, ok = r.Resolve("/site/content", "Pasted image.md")
	assert.True(t, ok)
}

func TestResolveMisses(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/site/content/secret.png")
	require.NoError(t, fs.MkdirAll("/site/content/assets/folder.png", 0o755))

	r := NewResolver(fs, Options{Roots: defaultRoots(), ContentRoot: "/site/content"})

	for _, name := range []string{"missing.png", "", "  ", "../secret.png", "folder.png"} {
		_, ok := r.Resolve("/site/content/posts", name)
		assert.False(t, ok, name)
	}
}

func TestResolveRelativeRootNeedsBaseDir(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/docs/assets/a.png")

	r := NewResolver(fs, Options{Roots: []SearchRoot{{Dir: "assets", Relative: true}}})
	_, ok := r.Resolve("", "a.png")
	assert.False(t, ok)

	a, ok := r.Resolve("/docs", "a.png")
	require.True(t, ok)
	assert.Equal(t, "/a.png", a.WebPath)
}

func TestRootExtensionOverride(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/v/clip.webm", "/v/clip.mp4")

	r := NewResolver(fs, Options{Roots: []SearchRoot{{Dir: "/v", Static: true, Extensions: []string{"webm", "mp4"}}}})
	a, ok := r.Resolve("", "clip")
	require.True(t, ok)
	assert.Equal(t, "/clip.webm", a.WebPath)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	c := NewClassifier(DefaultVideoStyle)

	tests := []struct {
		name  string
		asset Asset
		kind  Kind
		ok    bool
		html  string
	}{
		{
			name:  "image",
			asset: Asset{Name: "cover.PNG", FilePath: "/a/cover.PNG", WebPath: "/images/cover.PNG"},
			kind:  KindImage,
			ok:    true,
			html:  `<img src="/images/cover.PNG" alt="cover">`,
		},
		{
			name:  "video",
			asset: Asset{Name: "clip.mp4", FilePath: "/a/clip.mp4", WebPath: "/clip.mp4"},
			kind:  KindVideo,
			ok:    true,
			html:  `<video src="/clip.mp4" controls autoplay muted loop playsinline style="width: 100%; max-width: 100%; border-radius: 8px;"></video>`,
		},
		{
			name:  "unsupported",
			asset: Asset{Name: "doc.pdf", FilePath: "/a/doc.pdf", WebPath: "/doc.pdf"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rep, ok := c.Classify(tt.asset)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, rep.Kind)
			assert.Equal(t, tt.html, rep.HTML())
			assert.Equal(t, tt.kind == KindVideo, rep.Block())
		})
	}
}

func TestReplacementHTMLEscapes(t *testing.T) {
	t.Parallel()

	rep := Replacement{Kind: KindImage, Src: `/a "b".png`, Alt: `<x>`}
	assert.Equal(t, `<img src="/a &#34;b&#34;.png" alt="&lt;x&gt;">`, rep.HTML())

	rep = Replacement{Kind: KindVideo, Src: "/c.webm"}
	assert.Equal(t, `<video src="/c.webm" controls autoplay muted loop playsinline></video>`, rep.HTML())
}

func TestAltText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cover", AltText("cover.png"))
	assert.Equal(t, "my.photo", AltText("dir/my.photo.jpg"))
	assert.Equal(t, "cover", AltText("cover"))
}

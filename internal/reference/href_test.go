package reference

import (
	"errors"
	"testing"
)

func TestBuildURL(t *testing.T) {
	b := NewHrefBuilder(DefaultSite("https://en.wikipedia.org"))

	tests := []struct {
		name string
		ref  PageReference
		opts HrefOptions
		want string
	}{
		{
			name: "single diff",
			ref:  PageReference{OldID: "123", DiffID: "prev", Type: ClassDiff},
			want: "https://en.wikipedia.org/w/index.php?diff=123",
		},
		{
			name: "single diff minified",
			ref:  PageReference{OldID: "123", DiffID: "prev", Type: ClassDiff},
			opts: HrefOptions{Minify: true},
			want: "https://en.wikipedia.org/?diff=123",
		},
		{
			name: "single diff relative",
			ref:  PageReference{OldID: "123", DiffID: "prev", Type: ClassDiff},
			opts: HrefOptions{Relative: true},
			want: "/w/index.php?diff=123",
		},
		{
			name: "pair with title",
			ref:  PageReference{Title: "Cat", OldID: "100", DiffID: "200", Type: ClassDiff},
			want: "https://en.wikipedia.org/w/index.php?title=Cat&oldid=100&diff=200",
		},
		{
			name: "pair minified drops title",
			ref:  PageReference{Title: "Cat", OldID: "100", DiffID: "200", Type: ClassDiff},
			opts: HrefOptions{Minify: true},
			want: "https://en.wikipedia.org/?oldid=100&diff=200",
		},
		{
			name: "unordered pair is ordered",
			ref:  PageReference{OldID: "200", DiffID: "100", Type: ClassDiff},
			want: "https://en.wikipedia.org/w/index.php?oldid=100&diff=200",
		},
		{
			name: "title relative keeps title when minified",
			ref:  PageReference{Title: "Cat", OldID: "prev", DiffID: "cur", Type: ClassDiff},
			opts: HrefOptions{Minify: true, Relative: true},
			want: "/?title=Cat&oldid=prev&diff=cur",
		},
		{
			name: "revision",
			ref:  PageReference{Title: "Talk:Cat food", OldID: "5", Type: ClassRevision},
			want: "https://en.wikipedia.org/w/index.php?title=Talk:Cat_food&oldid=5",
		},
		{
			name: "revision with next direction",
			ref:  PageReference{OldID: "5", Direction: DirNext, Type: ClassRevision},
			opts: HrefOptions{Relative: true},
			want: "/w/index.php?oldid=5&direction=next",
		},
		{
			name: "page id",
			ref:  PageReference{CurID: "500", Type: ClassRevision, Variant: VariantPage},
			opts: HrefOptions{Relative: true},
			want: "/w/index.php?curid=500",
		},
		{
			name: "section kept unless minified",
			ref:  PageReference{Title: "Cat", Section: "History section", OldID: "42", Type: ClassRevision},
			want: "https://en.wikipedia.org/w/index.php?title=Cat&oldid=42#History_section",
		},
		{
			name: "section dropped when minified",
			ref:  PageReference{Title: "Cat", Section: "History section", OldID: "42", Type: ClassRevision},
			opts: HrefOptions{Minify: true},
			want: "https://en.wikipedia.org/?oldid=42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Build(tt.ref, tt.opts)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if got != tt.want {
				t.Errorf("Build = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildSchemeRelativeServer(t *testing.T) {
	b := NewHrefBuilder(DefaultSite("//en.wikipedia.org"))

	got, err := b.Build(PageReference{OldID: "7", Type: ClassRevision}, HrefOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := "https://en.wikipedia.org/w/index.php?oldid=7"; got != want {
		t.Errorf("Build = %q, want %q", got, want)
	}
}

func TestBuildWikilink(t *testing.T) {
	b := NewHrefBuilder(DefaultSite("https://en.wikipedia.org"))

	tests := []struct {
		name   string
		ref    PageReference
		preset WikilinkPreset
		want   string
	}{
		{
			name: "diff pair",
			ref:  PageReference{OldID: "100", DiffID: "200", Type: ClassDiff},
			want: "[[Special:Diff/100/200]]",
		},
		{
			name: "single diff",
			ref:  PageReference{OldID: "123", DiffID: "prev", Type: ClassDiff},
			want: "[[Special:Diff/123]]",
		},
		{
			name: "revision",
			ref:  PageReference{OldID: "42", Type: ClassRevision},
			want: "[[Special:PermanentLink/42]]",
		},
		{
			name: "page",
			ref:  PageReference{CurID: "500", Type: ClassRevision, Variant: VariantPage},
			want: "[[Special:Redirect/page/500]]",
		},
		{
			name:   "link preset",
			ref:    PageReference{OldID: "100", DiffID: "200", Type: ClassDiff},
			preset: PresetLink,
			want:   "[https://en.wikipedia.org/?oldid=100&diff=200 Special:Diff/100/200]",
		},
		{
			name: "title relative falls back to a link",
			ref:  PageReference{Title: "Cat", TitleText: "Cat", OldID: "prev", DiffID: "cur", Type: ClassDiff},
			want: "[https://en.wikipedia.org/?title=Cat&oldid=prev&diff=cur Cat]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Build(tt.ref, HrefOptions{Wikilink: true, WikilinkPreset: tt.preset})
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if got != tt.want {
				t.Errorf("Build = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildInvalid(t *testing.T) {
	b := NewHrefBuilder(DefaultSite("https://en.wikipedia.org"))

	refs := []PageReference{
		{},
		{Type: ClassRevision},
		{Type: ClassDiff, DiffID: "cur"},
	}
	for _, ref := range refs {
		if _, err := b.Build(ref, HrefOptions{}); !errors.Is(err, ErrInsufficientParams) {
			t.Errorf("Build(%+v) error = %v, want ErrInsufficientParams", ref, err)
		}
	}
}

// Links built from a resolved reference resolve back to the same ids and
// rebuild to the same text.
func TestBuildResolveRoundTrip(t *testing.T) {
	site := DefaultSite("https://en.wikipedia.org")
	r := NewResolver(site, nil, nil)
	b := NewHrefBuilder(site)

	links := []string{
		"/w/index.php?diff=123",
		"/w/index.php?oldid=200&diff=100",
		"/w/index.php?title=Cat&oldid=prev&diff=cur",
		"/w/index.php?title=Cat&diff=next",
		"/w/index.php?title=Cat&oldid=55&diff=cur",
		"/wiki/Special:Diff/456/123",
		"/wiki/Special:PermanentLink/12345",
		"/wiki/Special:Redirect/page/500",
		"/wiki/Cat?oldid=42",
		"/w/index.php?oldid=42&direction=next",
		"?curid=500",
	}
	options := []HrefOptions{
		{},
		{Minify: true},
		{Relative: true},
		{Minify: true, Relative: true},
	}

	for _, link := range links {
		ref, err := r.Resolve(link, ResolveOptions{})
		if err != nil {
			t.Fatalf("Resolve(%q): %v", link, err)
		}
		for _, opts := range options {
			href, err := b.Build(ref, opts)
			if err != nil {
				t.Fatalf("Build(%q, %+v): %v", link, opts, err)
			}
			again, err := r.Resolve(href, ResolveOptions{})
			if err != nil {
				t.Fatalf("Resolve(%q) built from %q: %v", href, link, err)
			}
			if !again.SameIDs(ref) || again.Variant != ref.Variant {
				t.Errorf("%q -> %q: got %+v, want %+v", link, href, again, ref)
			}
			rebuilt, err := b.Build(again, opts)
			if err != nil {
				t.Fatalf("rebuild %q: %v", href, err)
			}
			if rebuilt != href {
				t.Errorf("rebuild of %q = %q", href, rebuilt)
			}
		}
	}
}

package links

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const historyPage = `<html><body>
<div id="content">
  <p>See <a href="/w/index.php?diff=100">this edit</a> and <a href="#notes">notes</a>.</p>
  <ul id="pagehistory">
    <li data-mw-revid="200">
      <a href="/?oldid=150&diff=200">prev</a>
      <a class="mw-changeslist-title" href="/wiki/Cat" title="Cat">Cat</a>
    </li>
  </ul>
  <table>
    <tr><td><a class="mw-title" href="/wiki/Dog"><span>Dog</span></a></td><td><a href="/?diff=cur">cur</a></td></tr>
  </table>
  <div data-mw-title="Talk:Cat"><a href="/?diff=prev">minified</a></div>
  <a href="javascript:void(0)">toggle</a>
</div>
</body></html>`

func TestScanHTML(t *testing.T) {
	anchors, err := ScanHTML(strings.NewReader(historyPage), ScanOptions{Filter: NewFilter(nil, nil)})
	if err != nil {
		t.Fatalf("ScanHTML: %v", err)
	}

	want := []Anchor{
		{ID: 0, Href: "/w/index.php?diff=100", Text: "this edit"},
		{ID: 1, Href: "/?oldid=150&diff=200", Text: "prev", TitleHint: "Cat"},
		{ID: 2, Href: "/wiki/Cat", Text: "Cat", TitleHint: "Cat"},
		{ID: 3, Href: "/wiki/Dog", Text: "Dog", TitleHint: "Dog"},
		{ID: 4, Href: "/?diff=cur", Text: "cur", TitleHint: "Dog"},
		{ID: 5, Href: "/?diff=prev", Text: "minified", TitleHint: "Talk:Cat"},
	}
	if len(anchors) != len(want) {
		t.Fatalf("got %d anchors, want %d: %+v", len(anchors), len(want), anchors)
	}
	for i := range want {
		if anchors[i] != want[i] {
			t.Errorf("anchor %d = %+v, want %+v", i, anchors[i], want[i])
		}
	}
}

func TestScanHTMLSelector(t *testing.T) {
	anchors, err := ScanHTML(strings.NewReader(historyPage), ScanOptions{Selector: "#pagehistory a[href]"})
	if err != nil {
		t.Fatalf("ScanHTML: %v", err)
	}
	if len(anchors) != 2 {
		t.Fatalf("got %d anchors, want 2", len(anchors))
	}
}

func TestScanMarkdown(t *testing.T) {
	src := []byte(`# Notes

The [first edit](https://en.wikipedia.org/w/index.php?diff=100) and
[a *permanent* link](/wiki/Special:PermanentLink/5 "Cat").

Raw: <https://en.wikipedia.org/?curid=500>

[skip](#top)
`)

	anchors, err := ScanMarkdown(src, ScanOptions{})
	if err != nil {
		t.Fatalf("ScanMarkdown: %v", err)
	}
	want := []Anchor{
		{ID: 0, Href: "https://en.wikipedia.org/w/index.php?diff=100", Text: "first edit"},
		{ID: 1, Href: "/wiki/Special:PermanentLink/5", Text: "a permanent link", TitleHint: "Cat"},
		{ID: 2, Href: "https://en.wikipedia.org/?curid=500", Text: "https://en.wikipedia.org/?curid=500"},
	}
	if len(anchors) != len(want) {
		t.Fatalf("got %d anchors, want %d: %+v", len(anchors), len(want), anchors)
	}
	for i := range want {
		if anchors[i] != want[i] {
			t.Errorf("anchor %d = %+v, want %+v", i, anchors[i], want[i])
		}
	}
}

func TestScanURL(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(historyPage))
	}))
	defer srv.Close()

	anchors, err := ScanURL(context.Background(), srv.URL+"/wiki/Cat?action=history", ScanOptions{UserAgent: "revlens-test"})
	if err != nil {
		t.Fatalf("ScanURL: %v", err)
	}
	if gotUA != "revlens-test" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if len(anchors) != 6 {
		t.Fatalf("got %d anchors, want 6", len(anchors))
	}
	if anchors[0].Href != srv.URL+"/w/index.php?diff=100" {
		t.Errorf("Href = %q, want absolute url", anchors[0].Href)
	}
	if anchors[5].TitleHint != "Talk:Cat" {
		t.Errorf("TitleHint = %q", anchors[5].TitleHint)
	}
}

func TestScanURLError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := ScanURL(context.Background(), srv.URL, ScanOptions{}); err == nil {
		t.Fatal("expected error for 404 page")
	}
}

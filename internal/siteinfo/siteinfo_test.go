package siteinfo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ziadkadry99/revlens/internal/db"
	"github.com/ziadkadry99/revlens/internal/fetch"
	"github.com/ziadkadry99/revlens/internal/reference"
)

const ruwikiPayload = `{"batchcomplete":true,"query":{
"general":{"sitename":"Википедия","server":"//ru.wikipedia.org","articlepath":"/wiki/$1","script":"/w/index.php","lang":"ru"},
"namespaces":{
  "-1":{"id":-1,"name":"Служебная","canonical":"Special"},
  "0":{"id":0,"name":""},
  "2":{"id":2,"name":"Участник","canonical":"User"},
  "4":{"id":4,"name":"Википедия","canonical":"Project"}
},
"namespacealiases":[{"id":-1,"alias":"Спецстраница"},{"id":2,"alias":"Участница"},{"id":4,"alias":"ВП"}],
"specialpagealiases":[
  {"realname":"Diff","aliases":["Разница","Diff"]},
  {"realname":"PermanentLink","aliases":["Постоянная_ссылка","PermanentLink"]},
  {"realname":"Watchlist","aliases":["Список_наблюдения"]}
]}}`

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func newAPI(t *testing.T, hits *int) *fetch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			*hits++
		}
		if r.URL.Query().Get("meta") != "siteinfo" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		w.Write([]byte(ruwikiPayload))
	}))
	t.Cleanup(srv.Close)
	return fetch.NewClient(fetch.Options{API: srv.URL})
}

// staticFetcher returns a fixed result.
type staticFetcher struct {
	info  *Info
	err   error
	calls int
}

func (f *staticFetcher) Fetch(context.Context) (*Info, error) {
	f.calls++
	return f.info, f.err
}

func TestClientFetch(t *testing.T) {
	info, err := NewClient(newAPI(t, nil)).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if info.General.Lang != "ru" || info.General.Server != "//ru.wikipedia.org" {
		t.Errorf("General = %+v", info.General)
	}
	if len(info.Namespaces) != 4 || len(info.SpecialPageAliases) != 3 {
		t.Errorf("namespaces = %d, aliases = %d", len(info.Namespaces), len(info.SpecialPageAliases))
	}
}

func TestAliasTable(t *testing.T) {
	info, err := NewClient(newAPI(t, nil)).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	table := info.AliasTable()

	tests := []struct {
		title     string
		canonical string
	}{
		{"Служебная:Разница/1/2", reference.SpecialDiff},
		{"Спецстраница:Разница/1/2", reference.SpecialDiff},
		{"Special:Постоянная ссылка/5", reference.SpecialPermanentLink},
		{"служебная:diff/5", reference.SpecialDiff},
	}
	for _, tt := range tests {
		got, _, ok := table.MatchSpecial(tt.title)
		if !ok || got != tt.canonical {
			t.Errorf("MatchSpecial(%q) = %q, %v; want %q", tt.title, got, ok, tt.canonical)
		}
	}
	if _, _, ok := table.MatchSpecial("Служебная:Список наблюдения"); ok {
		t.Error("untracked special page should not match")
	}
}

func TestNamespaceNames(t *testing.T) {
	info := &Info{
		Namespaces: map[string]Namespace{
			"0": {ID: 0, Name: ""},
			"2": {ID: 2, Name: "Участник", Canonical: "User"},
		},
		NamespaceAliases: []NamespaceAlias{{ID: 2, Alias: "Участница"}, {ID: 99, Alias: "Orphan"}},
	}
	got := info.NamespaceNames()
	want := map[string]string{"Участник": "Участник", "User": "Участник", "Участница": "Участник"}
	if len(got) != len(want) {
		t.Fatalf("NamespaceNames() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("NamespaceNames()[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestApply(t *testing.T) {
	info, err := NewClient(newAPI(t, nil)).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	r := reference.NewResolver(info.Site(reference.DefaultSite("")), nil, nil)
	info.Apply(r)

	ref, err := r.Resolve("/wiki/"+url.PathEscape("Служебная:Разница/200/100"), reference.ResolveOptions{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ref.OldID != "100" || ref.DiffID != "200" {
		t.Errorf("got old=%q diff=%q, want 100/200", ref.OldID, ref.DiffID)
	}

	// English names keep working.
	if _, err := r.Resolve("/wiki/Special:Diff/5", reference.ResolveOptions{}); err != nil {
		t.Errorf("Resolve English alias: %v", err)
	}

	title, err := r.Titles().Normalize("участница:иван")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if title.Text != "Участник:Иван" {
		t.Errorf("Normalize() = %q, want %q", title.Text, "Участник:Иван")
	}
	project, err := r.Titles().Normalize("project:Правила")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if project.Text != "Википедия:Правила" {
		t.Errorf("Normalize() = %q, want local project namespace", project.Text)
	}
}

func TestSite(t *testing.T) {
	info := &Info{General: General{Server: "https://wiki.example.org", ArticlePath: "/page/$1"}}
	site := info.Site(reference.DefaultSite("https://fallback.example"))
	if site.Server != "https://wiki.example.org" || site.ArticlePath != "/page/$1" || site.Script != "/w/index.php" {
		t.Errorf("Site() = %+v", site)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if got, err := store.Get(ctx, "api"); err != nil || got != nil {
		t.Fatalf("Get on empty cache = %v, %v", got, err)
	}

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	info := &Info{General: General{SiteName: "Test"}}
	if err := store.Save(ctx, "api", info, at); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info.General.SiteName = "Updated"
	if err := store.Save(ctx, "api", info, at.Add(time.Hour)); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	got, err := store.Get(ctx, "api")
	if err != nil || got == nil {
		t.Fatalf("Get: %v, %v", got, err)
	}
	if got.Info.General.SiteName != "Updated" {
		t.Errorf("SiteName = %q, want Updated", got.Info.General.SiteName)
	}
	if !got.FetchedAt.Equal(at.Add(time.Hour)) {
		t.Errorf("FetchedAt = %v, want %v", got.FetchedAt, at.Add(time.Hour))
	}

	if err := store.Delete(ctx, "api"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := store.Get(ctx, "api"); got != nil {
		t.Error("expected cache entry to be deleted")
	}
}

func TestLoaderUsesFreshCache(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.Save(ctx, "api", &Info{General: General{SiteName: "Cached"}}, now.Add(-time.Hour))

	f := &staticFetcher{info: &Info{General: General{SiteName: "Live"}}}
	l := NewLoader(f, LoaderOptions{API: "api", Store: store})
	l.now = func() time.Time { return now }

	info, err := l.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if info.General.SiteName != "Cached" || f.calls != 0 {
		t.Errorf("got %q after %d fetches, want cached copy without fetching", info.General.SiteName, f.calls)
	}
}

func TestLoaderRefreshesStaleCache(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.Save(ctx, "api", &Info{General: General{SiteName: "Cached"}}, now.Add(-48*time.Hour))

	f := &staticFetcher{info: &Info{General: General{SiteName: "Live"}}}
	l := NewLoader(f, LoaderOptions{API: "api", Store: store})
	l.now = func() time.Time { return now }

	info, err := l.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if info.General.SiteName != "Live" {
		t.Errorf("SiteName = %q, want Live", info.General.SiteName)
	}
	cached, _ := store.Get(ctx, "api")
	if cached == nil || cached.Info.General.SiteName != "Live" || !cached.FetchedAt.Equal(now) {
		t.Errorf("cache not updated: %+v", cached)
	}
}

func TestLoaderFallsBackToStale(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	store.Save(ctx, "api", &Info{General: General{SiteName: "Cached"}}, time.Now().Add(-48*time.Hour))

	l := NewLoader(&staticFetcher{err: errors.New("offline")}, LoaderOptions{API: "api", Store: store})
	info, err := l.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if info.General.SiteName != "Cached" {
		t.Errorf("SiteName = %q, want stale copy", info.General.SiteName)
	}
}

func TestLoaderDependencyError(t *testing.T) {
	l := NewLoader(&staticFetcher{err: errors.New("offline")}, LoaderOptions{API: "api", Store: setupStore(t)})
	_, err := l.Load(context.Background())
	fe, ok := fetch.AsError(err)
	if !ok || fe.Type != fetch.TypeDependency || fe.Code != "siteinfo" {
		t.Fatalf("Load error = %v, want dependency error", err)
	}

	if err := NewLoader(nil, LoaderOptions{}).Ensure(context.Background()); err == nil {
		t.Error("expected error without a source")
	}
}

func TestEnsureAppliesOnce(t *testing.T) {
	hits := 0
	client := NewClient(newAPI(t, &hits))
	r := reference.NewResolver(reference.DefaultSite("https://ru.wikipedia.org"), nil, nil)
	l := NewLoader(client, LoaderOptions{API: "ru", Store: setupStore(t), Resolver: r})

	for i := 0; i < 3; i++ {
		if err := l.Ensure(context.Background()); err != nil {
			t.Fatalf("Ensure: %v", err)
		}
	}
	if hits != 1 {
		t.Errorf("API hits = %d, want 1", hits)
	}
	if l.Info() == nil {
		t.Fatal("Info() = nil after Ensure")
	}
	if _, ok := r.Aliases().Canonical("Разница"); !ok {
		t.Error("resolver should know the localized alias")
	}
}

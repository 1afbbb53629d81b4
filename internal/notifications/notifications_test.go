package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ziadkadry99/revlens/internal/db"
	"github.com/ziadkadry99/revlens/internal/reference"
	"github.com/ziadkadry99/revlens/internal/session"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func testNotification(id string) Notification {
	return Notification{
		ID:        id,
		Kind:      KindFetch,
		Code:      "nosuchrevid",
		Message:   "There is no revision with ID 123.",
		SessionID: "s1",
		Reference: reference.PageReference{OldID: "123", DiffID: "prev", Type: reference.ClassDiff},
	}
}

// webhook records the payloads it receives.
type webhook struct {
	status   int
	received [][]byte
}

func (h *webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	buf := new(bytes.Buffer)
	buf.ReadFrom(r.Body)
	h.received = append(h.received, buf.Bytes())
	if h.status != 0 {
		w.WriteHeader(h.status)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func setupWebhook(t *testing.T, h *webhook) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestStoreCreate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, testNotification("n-1")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.GetByID(ctx, "n-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Kind != KindFetch {
		t.Errorf("Kind = %q, want %q", got.Kind, KindFetch)
	}
	if got.Severity != SeverityWarning {
		t.Errorf("Severity = %q, want %q", got.Severity, SeverityWarning)
	}
	if got.Code != "nosuchrevid" {
		t.Errorf("Code = %q, want nosuchrevid", got.Code)
	}
	if got.Reference.OldID != "123" || got.Reference.Type != reference.ClassDiff {
		t.Errorf("Reference = %+v", got.Reference)
	}
	if got.Delivered {
		t.Error("expected Delivered = false")
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStoreCreateAutoID(t *testing.T) {
	store := setupTestStore(t)

	n, err := store.Create(context.Background(), Notification{Kind: KindDependency, Message: "siteinfo unavailable"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(n.ID) != 36 {
		t.Errorf("expected UUID-length ID, got %q", n.ID)
	}
	if n.Severity != SeverityCritical {
		t.Errorf("Severity = %q, want critical for dependency failures", n.Severity)
	}
}

func TestStoreRejectsUnknownKind(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.Create(context.Background(), Notification{Kind: "parse"}); err == nil {
		t.Error("expected constraint failure for parse kind")
	}
}

func TestStoreGetByIDNotFound(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.GetByID(context.Background(), "nonexistent"); err == nil {
		t.Error("expected error for nonexistent ID")
	}
}

func TestStoreListFilters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, kind := range []Kind{KindFetch, KindDependency, KindFetch} {
		n := testNotification("")
		n.Kind = kind
		n.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if i == 2 {
			n.SessionID = "s2"
		}
		if _, err := store.Create(ctx, n); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter ListFilter
		want   int
	}{
		{"all", ListFilter{}, 3},
		{"fetch", ListFilter{Kind: KindFetch}, 2},
		{"critical", ListFilter{Severity: SeverityCritical}, 1},
		{"session", ListFilter{SessionID: "s2"}, 1},
		{"since", ListFilter{Since: base.Add(time.Hour)}, 2},
		{"until", ListFilter{Until: base}, 1},
		{"limit", ListFilter{Limit: 2}, 2},
		{"offset", ListFilter{Offset: 2}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d notifications, want %d", len(got), tt.want)
			}
		})
	}

	latest, _ := store.List(ctx, ListFilter{Limit: 1})
	if latest[0].SessionID != "s2" {
		t.Errorf("List should return newest first, got %+v", latest[0])
	}
}

func TestStoreMarkDelivered(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	store.Create(ctx, testNotification("md-1"))
	if err := store.MarkDelivered(ctx, "md-1"); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	got, _ := store.GetByID(ctx, "md-1")
	if !got.Delivered {
		t.Error("expected Delivered = true")
	}

	if err := store.MarkDelivered(ctx, "nonexistent"); err == nil {
		t.Error("expected error for nonexistent ID")
	}
}

func TestDispatcherWebhook(t *testing.T) {
	store := setupTestStore(t)
	h := &webhook{}
	dispatcher := NewDispatcher(store, Options{WebhookURL: setupWebhook(t, h)})
	ctx := context.Background()

	n, err := dispatcher.Dispatch(ctx, testNotification("wh-1"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !n.Delivered {
		t.Error("expected returned notification to be delivered")
	}

	if len(h.received) != 1 {
		t.Fatalf("webhook calls = %d, want 1", len(h.received))
	}
	var got Notification
	if err := json.Unmarshal(h.received[0], &got); err != nil {
		t.Fatalf("unmarshalling webhook payload: %v", err)
	}
	if got.ID != "wh-1" || got.Code != "nosuchrevid" {
		t.Errorf("webhook payload = %+v", got)
	}

	stored, err := store.GetByID(ctx, "wh-1")
	if err != nil {
		t.Fatalf("GetByID after dispatch: %v", err)
	}
	if !stored.Delivered {
		t.Error("stored notification should be delivered")
	}
}

func TestDispatcherWithoutWebhook(t *testing.T) {
	store := setupTestStore(t)
	dispatcher := NewDispatcher(store, Options{})
	ctx := context.Background()

	if _, err := dispatcher.Dispatch(ctx, testNotification("nw-1")); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	pending, _ := store.GetPending(ctx)
	if len(pending) != 1 {
		t.Errorf("pending = %d, want 1", len(pending))
	}
	if n, err := dispatcher.Redeliver(ctx); n != 0 || err != nil {
		t.Errorf("Redeliver() = %d, %v; want 0, nil", n, err)
	}
}

func TestDispatcherSeverityFiltering(t *testing.T) {
	store := setupTestStore(t)
	h := &webhook{}
	dispatcher := NewDispatcher(store, Options{WebhookURL: setupWebhook(t, h), MinSeverity: SeverityCritical})
	ctx := context.Background()

	// A fetch failure is a warning and stays local.
	if _, err := dispatcher.Dispatch(ctx, testNotification("sf-1")); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(h.received) != 0 {
		t.Error("webhook should not be called for warnings when the filter is critical")
	}

	dep := testNotification("sf-2")
	dep.Kind = KindDependency
	if _, err := dispatcher.Dispatch(ctx, dep); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(h.received) != 1 {
		t.Error("webhook should be called for dependency failures")
	}
}

func TestDispatcherFailedDeliveryStaysPending(t *testing.T) {
	store := setupTestStore(t)
	h := &webhook{status: http.StatusInternalServerError}
	dispatcher := NewDispatcher(store, Options{WebhookURL: setupWebhook(t, h)})
	ctx := context.Background()

	if _, err := dispatcher.Dispatch(ctx, testNotification("fd-1")); err == nil {
		t.Fatal("expected delivery error")
	}
	got, err := store.GetByID(ctx, "fd-1")
	if err != nil {
		t.Fatalf("notification should be persisted even when delivery fails: %v", err)
	}
	if got.Delivered {
		t.Error("failed delivery should stay pending")
	}

	h.status = 0
	n, err := dispatcher.Redeliver(ctx)
	if err != nil {
		t.Fatalf("Redeliver: %v", err)
	}
	if n != 1 {
		t.Errorf("Redeliver() = %d, want 1", n)
	}
	if pending, _ := store.GetPending(ctx); len(pending) != 0 {
		t.Errorf("pending after redelivery = %d, want 0", len(pending))
	}
}

func TestNotify(t *testing.T) {
	store := setupTestStore(t)
	dispatcher := NewDispatcher(store, Options{})
	ctx := context.Background()

	var notifier session.Notifier = dispatcher
	ev := session.Event{
		Type:      session.EventError,
		SessionID: "s9",
		AnchorID:  4,
		Reference: reference.PageReference{OldID: "7", Type: reference.ClassRevision},
		Error:     "dependency: siteinfo: offline",
		Kind:      session.KindDependency,
		Code:      "siteinfo",
		At:        time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := notifier.Notify(ctx, ev); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	list, err := store.List(ctx, ListFilter{SessionID: "s9"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d notifications, want 1", len(list))
	}
	n := list[0]
	if n.Kind != KindDependency || n.Severity != SeverityCritical || n.Code != "siteinfo" || n.Reference.OldID != "7" {
		t.Errorf("notification = %+v", n)
	}
	if !n.CreatedAt.Equal(ev.At) {
		t.Errorf("CreatedAt = %v, want %v", n.CreatedAt, ev.At)
	}

	ev.Kind = session.KindParse
	if err := notifier.Notify(ctx, ev); err == nil {
		t.Error("expected error for parse failures")
	}
}

func TestHTTPHandlers(t *testing.T) {
	store := setupTestStore(t)
	h := &webhook{}
	dispatcher := NewDispatcher(store, Options{WebhookURL: setupWebhook(t, h)})
	ctx := context.Background()

	r := chi.NewRouter()
	RegisterRoutes(r, store, dispatcher)

	if _, err := store.Create(ctx, testNotification("api-1")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	t.Run("GET /api/notifications", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/notifications?kind=fetch", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}

		var got []Notification
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected 1 notification, got %d", len(got))
		}
	})

	t.Run("GET /api/notifications/{id}", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/notifications/api-1", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}

		var got Notification
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if got.ID != "api-1" {
			t.Errorf("ID = %q, want api-1", got.ID)
		}
	})

	t.Run("GET /api/notifications/{id} not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/notifications/nonexistent", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("POST /api/notifications/redeliver", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/notifications/redeliver", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		var got struct {
			Delivered int `json:"delivered"`
		}
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if got.Delivered != 1 || len(h.received) != 1 {
			t.Errorf("delivered = %d, webhook calls = %d; want 1, 1", got.Delivered, len(h.received))
		}
	})

	t.Run("GET /api/notifications/pending", func(t *testing.T) {
		store.Create(ctx, testNotification("api-2"))

		req := httptest.NewRequest(http.MethodGet, "/api/notifications/pending", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		var got []Notification
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if len(got) != 1 || got[0].ID != "api-2" {
			t.Errorf("expected 1 pending notification (api-2), got %v", got)
		}
	})

	t.Run("POST /api/notifications/{id}/deliver", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/notifications/api-2/deliver", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		got, err := store.GetByID(ctx, "api-2")
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if !got.Delivered {
			t.Error("expected Delivered = true")
		}
	})
}

func TestSeverityMatches(t *testing.T) {
	tests := []struct {
		actual Severity
		filter Severity
		want   bool
	}{
		{SeverityInfo, SeverityInfo, true},
		{SeverityWarning, SeverityInfo, true},
		{SeverityCritical, SeverityInfo, true},
		{SeverityInfo, SeverityWarning, false},
		{SeverityWarning, SeverityWarning, true},
		{SeverityCritical, SeverityWarning, true},
		{SeverityInfo, SeverityCritical, false},
		{SeverityWarning, SeverityCritical, false},
		{SeverityCritical, SeverityCritical, true},
	}

	for _, tt := range tests {
		got := severityMatches(tt.actual, tt.filter)
		if got != tt.want {
			t.Errorf("severityMatches(%q, %q) = %v, want %v", tt.actual, tt.filter, got, tt.want)
		}
	}
}

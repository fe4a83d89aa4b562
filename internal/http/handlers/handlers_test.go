package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/flowline-ai/flowline/internal/history"
	"github.com/flowline-ai/flowline/internal/notify"
	"github.com/flowline-ai/flowline/internal/suggest"
	"github.com/flowline-ai/flowline/internal/wizard"
)

func newSessionStore(t *testing.T) *wizard.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	return wizard.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func seedSession(t *testing.T, store *wizard.Store) *wizard.Session {
	t.Helper()
	session := wizard.NewSession("42", "Lead Follow-up", "manual")
	if err := store.Set(context.Background(), session); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return session
}

type stubLLM struct{ text string }

func (s *stubLLM) Complete(_ context.Context, _ suggest.Request) (suggest.Response, error) {
	return suggest.Response{Text: s.text}, nil
}

func TestPrefillAppliesToSession(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.Write([]byte(`<html><head><title>Acme Plumbing</title></head><body><p>Fast local plumbers since 1982.</p></body></html>`))
			return
		}
		http.NotFound(w, r)
	}))
	defer site.Close()

	store := newSessionStore(t)
	session := seedSession(t, store)
	handler := NewAssistHandler(store, suggest.NewService(nil, nil), nil)
	srv := httptest.NewServer(handler.Routes())
	defer srv.Close()

	body := `{"websiteUrl": "` + site.URL + `", "sessionId": "` + session.ID + `"}`
	resp, err := http.Post(srv.URL+"/prefill", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	updated, err := store.Get(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if len(updated.Aggregate.BrandTone.Greetings) == 0 {
		t.Error("prefill should seed greetings on the session aggregate")
	}
	if len(updated.Aggregate.Context.Knowledge) == 0 {
		t.Error("prefill should seed knowledge entries")
	}
}

func TestPrefillRequiresURL(t *testing.T) {
	handler := NewAssistHandler(newSessionStore(t), suggest.NewService(nil, nil), nil)
	srv := httptest.NewServer(handler.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/prefill", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSuggestTemplatesForSession(t *testing.T) {
	store := newSessionStore(t)
	session := seedSession(t, store)
	svc := suggest.NewService(&stubLLM{text: `[{"name": "after_hours", "content": "We're closed."}]`}, nil)
	handler := NewAssistHandler(store, svc, nil)
	srv := httptest.NewServer(handler.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/"+session.ID+"/suggest/templates", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Suggestions []suggest.TemplateSuggestion `json:"suggestions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Suggestions) != 1 || body.Suggestions[0].Name != "after_hours" {
		t.Errorf("suggestions = %+v", body.Suggestions)
	}
}

func TestSuggestRoutesAbsentWithoutBackend(t *testing.T) {
	store := newSessionStore(t)
	session := seedSession(t, store)
	handler := NewAssistHandler(store, suggest.NewService(nil, nil), nil)
	srv := httptest.NewServer(handler.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/"+session.ID+"/suggest/templates", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want route absent", resp.StatusCode)
	}
}

func TestProvidersCatalogForSession(t *testing.T) {
	store := newSessionStore(t)
	session := seedSession(t, store)
	session.Aggregate.SystemIntegration.Ticketing.Enabled = true
	require.NoError(t, store.Set(context.Background(), session))

	handler := NewProvidersHandler(store, "https://api.flowline.dev", nil)
	srv := httptest.NewServer(handler.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sessions/" + session.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Providers []struct {
			Name       string `json:"name"`
			WebhookURL string `json:"webhookUrl"`
			Enabled    bool   `json:"enabled"`
		} `json:"providers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	byName := map[string]bool{}
	for _, p := range body.Providers {
		byName[p.Name] = p.Enabled
		require.True(t, strings.HasPrefix(p.WebhookURL, "https://api.flowline.dev/webhooks/"))
	}
	require.True(t, byName["sms"])
	require.True(t, byName["ticketing"])
	require.False(t, byName["scheduling"])
}

type stubEmail struct{ sent []notify.EmailMessage }

func (s *stubEmail) Send(_ context.Context, msg notify.EmailMessage) error {
	s.sent = append(s.sent, msg)
	return nil
}

func TestMonitoringCheckReportsBreaches(t *testing.T) {
	store := newSessionStore(t)
	session := seedSession(t, store)
	session.Aggregate.Monitoring.TrackErrorRate = true
	session.Aggregate.Monitoring.ErrorRatePercent = 5
	require.NoError(t, store.Set(context.Background(), session))

	email := &stubEmail{}
	handler := NewMonitoringHandler(store, notify.NewService(email, nil, nil), nil)
	srv := httptest.NewServer(handler.Routes())
	defer srv.Close()

	body := `{"ownerEmail": "owner@example.com", "errorRatePercent": 12.5}`
	resp, err := http.Post(srv.URL+"/"+session.ID+"/check", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Breaches []string `json:"breaches"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Breaches, 1)
	require.Contains(t, out.Breaches[0], "error rate")
	require.Len(t, email.sent, 1)
}

func TestMonitoringCheckWithinLimits(t *testing.T) {
	store := newSessionStore(t)
	session := seedSession(t, store)

	email := &stubEmail{}
	handler := NewMonitoringHandler(store, notify.NewService(email, nil, nil), nil)
	srv := httptest.NewServer(handler.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/"+session.ID+"/check", "application/json", strings.NewReader(`{"errorRatePercent": 0.1}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Breaches []string `json:"breaches"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Empty(t, out.Breaches)
	require.Empty(t, email.sent)
}

func TestHistoryListBySession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, session_id").WithArgs("s1").WillReturnRows(
		sqlmock.NewRows([]string{
			"id", "session_id", "owner_id", "workflow_id", "name", "outcome", "missing_fields", "error", "created_at",
		}).AddRow("e1", "s1", "42", "wf-1", "Lead Follow-up", history.OutcomePersisted, "{}", "", time.Now()))

	handler := NewHistoryHandler(history.NewRepository(db), nil)
	srv := httptest.NewServer(handler.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sessions/s1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

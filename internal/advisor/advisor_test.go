package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/storage"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/storage/textfile"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/tracker"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, zerolog.Nop())
}

func writeCandidates(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()
	resp := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestGenerateReturnsStrippedText(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writeCandidates(t, w, "\n  Turn off the **heater** at night.  \n")
	})

	text, err := client.Generate(context.Background(), "my prompt")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if text != "Turn off the **heater** at night." {
		t.Errorf("text = %q, want stripped advice", text)
	}
	if gotPath != "/v1beta/models/gemini-1.5-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if len(gotBody.Contents) != 1 || len(gotBody.Contents[0].Parts) != 1 || gotBody.Contents[0].Parts[0].Text != "my prompt" {
		t.Errorf("request body = %+v, want single part with prompt", gotBody)
	}
}

func TestGenerateWithoutKey(t *testing.T) {
	client := NewClient(Config{}, zerolog.Nop())
	if _, err := client.Generate(context.Background(), "p"); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("err = %v, want ErrNoCredential", err)
	}
}

func TestGenerateUnauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	})

	_, err := client.Generate(context.Background(), "p")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if !strings.Contains(err.Error(), "API key not valid") {
		t.Errorf("err = %v, want API message included", err)
	}
}

func TestGenerateQuotaExhausted(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	})

	if _, err := client.Generate(context.Background(), "p"); !errors.Is(err, ErrQuota) {
		t.Fatalf("err = %v, want ErrQuota", err)
	}
}

func TestGenerateEmptyCandidates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})

	if _, err := client.Generate(context.Background(), "p"); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestGenerateServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Generate(context.Background(), "p")
	if err == nil {
		t.Fatal("expected error for HTTP 500")
	}
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrQuota) {
		t.Fatalf("err = %v, want generic API error", err)
	}
}

func TestBuildPrompt(t *testing.T) {
	devices := []tracker.DeviceState{
		{Name: "Heater", PowerWatts: 1500, On: true, TotalUnits: 1.23456},
		{Name: "Fan", PowerWatts: 60.5, On: false, TotalUnits: 0},
	}

	prompt := BuildPrompt("## DEVICES ##\n...log text...", devices)

	for _, want := range []string{
		"Log Data:\n## DEVICES ##\n...log text...",
		"Current Device States:\n",
		"- Heater: ON, Power: 1500W, Total Usage: 1.235 units",
		"- Fan: OFF, Power: 60.5W, Total Usage: 0.000 units",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func newTestService(t *testing.T, client *Client, seedLedger bool) *Service {
	t.Helper()
	store, err := textfile.New(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	if seedLedger {
		records := []storage.DeviceRecord{{Name: "Heater", PowerWatts: 1500, SavedUnits: 0.5}}
		if err := store.WriteSummary(context.Background(), "alice", records); err != nil {
			t.Fatalf("seed ledger: %v", err)
		}
	}
	return NewService(client, store, zerolog.Nop())
}

func TestServiceRequestWithoutUsageData(t *testing.T) {
	client := NewClient(Config{APIKey: "k"}, zerolog.Nop())
	svc := newTestService(t, client, false)

	_, _, err := svc.Request(context.Background(), "alice", nil)
	if !errors.Is(err, ErrNoUsageData) {
		t.Fatalf("err = %v, want ErrNoUsageData", err)
	}
}

func TestServiceRequestWithoutKey(t *testing.T) {
	client := NewClient(Config{}, zerolog.Nop())
	svc := newTestService(t, client, true)

	_, _, err := svc.Request(context.Background(), "alice", nil)
	if !errors.Is(err, ErrNoCredential) {
		t.Fatalf("err = %v, want ErrNoCredential", err)
	}
}

func TestServiceDeliversResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeCandidates(t, w, "Use **timers**.")
	})
	svc := newTestService(t, client, true)

	id, ch, err := svc.Request(context.Background(), "alice", []tracker.DeviceState{{Name: "Heater", PowerWatts: 1500}})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if id == "" {
		t.Fatal("request returned an empty task ID")
	}

	res := <-ch
	if res.Err != nil {
		t.Fatalf("result err: %v", res.Err)
	}
	if res.Text != "Use **timers**." {
		t.Errorf("text = %q", res.Text)
	}

	snap := svc.State()
	if snap.Status != StatusDone || snap.Text != "Use **timers**." || snap.Err != nil {
		t.Errorf("state = %+v, want done", snap)
	}
	if snap.ID != id {
		t.Errorf("state ID = %q, want %q", snap.ID, id)
	}
}

func TestServiceRejectsConcurrentRequests(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		writeCandidates(t, w, "done")
	})
	svc := newTestService(t, client, true)

	_, ch, err := svc.Request(context.Background(), "alice", nil)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}

	if _, _, err := svc.Request(context.Background(), "alice", nil); !errors.Is(err, ErrBusy) {
		t.Fatalf("second request err = %v, want ErrBusy", err)
	}

	close(release)
	if res := <-ch; res.Err != nil {
		t.Fatalf("first request failed: %v", res.Err)
	}
}

func TestServiceCancel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	svc := newTestService(t, client, true)

	id, ch, err := svc.Request(context.Background(), "alice", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if svc.Cancel("adv-wrong") {
		t.Fatal("cancel accepted a mismatched task ID")
	}
	if !svc.Cancel(id) {
		t.Fatal("cancel reported no running task")
	}

	res := <-ch
	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("result err = %v, want context.Canceled", res.Err)
	}
	if snap := svc.State(); snap.Status != StatusCanceled {
		t.Errorf("status = %v, want canceled", snap.Status)
	}
}

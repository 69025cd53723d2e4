package zoocad

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/forge3d/internal/core/domain"
)

func TestSubmitReturnsOperationID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/ai/text-to-cad/obj" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload["prompt"] != "a 20mm cube" {
			t.Fatalf("unexpected prompt %q", payload["prompt"])
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"op-1","status":"queued"}`))
	}))
	defer server.Close()

	id, err := New(server.URL, "k", Options{}).Submit(context.Background(), domain.GenerationRequest{Kind: domain.KindTextToCAD, Prompt: "a 20mm cube"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if id != "op-1" {
		t.Fatalf("unexpected id %q", id)
	}
}

func TestSubmitRejectsMeshKinds(t *testing.T) {
	_, err := New("http://unused", "k", Options{}).Submit(context.Background(), domain.GenerationRequest{Kind: domain.KindTextToMesh})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestSubmitServerErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL, "k", Options{}).Submit(context.Background(), domain.GenerationRequest{Kind: domain.KindTextToCAD, Prompt: "x"})
	if !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestNormalizeOperation(t *testing.T) {
	cases := []struct {
		name   string
		op     operation
		status domain.TaskStatus
		check  func(domain.TaskSnapshot) bool
	}{
		{name: "queued", op: operation{ID: "a", Status: "queued"}, status: domain.TaskPending},
		{name: "uploaded", op: operation{ID: "a", Status: "uploaded"}, status: domain.TaskPending},
		{name: "in progress", op: operation{ID: "a", Status: "in_progress"}, status: domain.TaskPending},
		{
			name:   "failed",
			op:     operation{ID: "a", Status: "failed", Error: "prompt too vague"},
			status: domain.TaskFailed,
			check:  func(s domain.TaskSnapshot) bool { return s.FailureReason == "prompt too vague" },
		},
		{
			name:   "completed with url",
			op:     operation{ID: "a", Status: "completed", Outputs: map[string]string{"source.step": "x", "source.obj": "https://files/a.obj"}},
			status: domain.TaskSucceeded,
			check:  func(s domain.TaskSnapshot) bool { return s.Result.AssetURL == "https://files/a.obj" },
		},
		{
			name:   "completed inline",
			op:     operation{ID: "a", Status: "completed", Outputs: map[string]string{"source.obj": "diAwIDAgMAo="}},
			status: domain.TaskSucceeded,
			check:  func(s domain.TaskSnapshot) bool { return s.Result.AssetURL == "data:model/obj;base64,diAwIDAgMAo=" },
		},
		{
			name:   "completed without obj",
			op:     operation{ID: "a", Status: "completed", Outputs: map[string]string{"source.gltf": "x"}},
			status: domain.TaskFailed,
		},
		{name: "unknown", op: operation{ID: "a", Status: "paused"}, status: "paused"},
	}
	for _, tc := range cases {
		got := normalizeOperation(tc.op, "https://api.zoo.dev")
		if got.Status != tc.status {
			t.Fatalf("%s: expected %s, got %+v", tc.name, tc.status, got)
		}
		if tc.check != nil && !tc.check(got) {
			t.Fatalf("%s: unexpected snapshot %+v", tc.name, got)
		}
	}
}

func TestCheckStatusUsesOperationsEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/async/operations/op-7" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"id":"op-7","status":"completed","outputs":{"source.obj":"/files/op-7.obj"}}`))
	}))
	defer server.Close()

	snap, err := New(server.URL, "k", Options{}).CheckStatus(context.Background(), domain.KindTextToCAD, "op-7")
	if err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}
	if snap.Status != domain.TaskSucceeded || snap.Result.AssetURL != server.URL+"/files/op-7.obj" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

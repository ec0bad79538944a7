package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	presence "presence-ledger/internal/presence/domain"
)

func TestScopesAndMembers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/scopes":
			w.Write([]byte(`{"scopes":[{"id":"g1","name":"Guild One"},{"id":"g2"}]}`))
		case "/api/v1/scopes/g1/members":
			w.Write([]byte(`{"members":[
				{"subject_id":"u1","display_name":"Ana","status":"online"},
				{"subject_id":"u2","display_name":"Bia","status":"streaming"},
				{"display_name":"ghost","status":"online"}
			]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "secret")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	scopes, err := client.Scopes(context.Background())
	if err != nil {
		t.Fatalf("scopes: %v", err)
	}
	if len(scopes) != 2 || scopes[0] != "g1" {
		t.Fatalf("unexpected scopes: %v", scopes)
	}

	members, err := client.ListMembers(context.Background(), "g1")
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members with subject ids, got %d", len(members))
	}
	if members[0].Status != presence.StatusOnline {
		t.Fatalf("expected online, got %s", members[0].Status)
	}
	if members[1].Status != presence.DefaultStatus {
		t.Fatalf("expected unknown gateway status to default, got %s", members[1].Status)
	}
}

func TestListMembersMissingScope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	members, err := client.ListMembers(context.Background(), "gone")
	if err != nil {
		t.Fatalf("expected missing scope to yield no members, got %v", err)
	}
	if members != nil {
		t.Fatalf("expected nil members, got %v", members)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient("", "token"); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/titanite07/TechVault/internal/domain"
)

func TestLoginAndListAssets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["username"] != "admin" || body["password"] != "admin123" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"message":"invalid username or password"}`)
				return
			}
			_, _ = io.WriteString(w, `{"id":"u-1","username":"admin","role":"admin","token":"tok","expiresAt":"2025-05-02T10:00:00Z"}`)
		case "/api/assets":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = io.WriteString(w, `[{"id":"a-1","name":"Dell","type":"Laptop","status":"Available","specifications":"i7","assignedTo":null,"createdAt":"2025-05-02T10:00:00Z"}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cli, err := New(srv.URL, WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	login, err := cli.Login(context.Background(), "admin", "admin123")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if login.Role != domain.RoleAdmin || login.Token != "tok" {
		t.Fatalf("unexpected login %+v", login)
	}

	_, err = cli.Login(context.Background(), "admin", "nope")
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if apiErr, ok := err.(APIError); !ok || apiErr.Message != "invalid username or password" {
		t.Fatalf("unexpected error %#v", err)
	}

	assets, err := cli.ListAssets(context.Background(), login.Token)
	if err != nil {
		t.Fatalf("ListAssets error: %v", err)
	}
	if len(assets) != 1 || assets[0].Type != domain.AssetTypeLaptop || assets[0].AssignedTo != nil {
		t.Fatalf("unexpected assets %+v", assets)
	}
}

func TestValidationReasonsSurface(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"message":"validation failed: name is required","reasons":["name is required"]}`)
	}))
	defer srv.Close()

	cli, _ := New(srv.URL)
	_, err := cli.CreateAsset(context.Background(), "tok", CreateAssetRequest{Type: domain.AssetTypeLaptop})
	apiErr, ok := err.(APIError)
	if !ok || apiErr.Status != http.StatusBadRequest || len(apiErr.Reasons) != 1 {
		t.Fatalf("unexpected error %#v", err)
	}
}

func TestUpdateSendsOnlyPresentFields(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/assets/a-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"id":"a-1","name":"Dell","type":"Laptop","status":"Available","specifications":"i7","assignedTo":null,"createdAt":"2025-05-02T10:00:00Z"}`)
	}))
	defer srv.Close()

	cli, _ := New(srv.URL)
	status := domain.AssetStatusAvailable
	_, err := cli.UpdateAsset(context.Background(), "tok", "a-1", domain.AssetPatch{
		Status:     &status,
		AssignedTo: domain.NullableString{Set: true},
	})
	if err != nil {
		t.Fatalf("UpdateAsset error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected two fields, got %v", got)
	}
	if v, ok := got["assignedTo"]; !ok || v != nil {
		t.Fatalf("expected explicit null assignedTo, got %v", got)
	}
}

func TestNewNormalisesBaseURL(t *testing.T) {
	cli, err := New("localhost:5000/")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if cli.BaseURL() != "http://localhost:5000" {
		t.Fatalf("unexpected base %q", cli.BaseURL())
	}
}

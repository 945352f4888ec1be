package providers_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/winnerqin/jimeng4-image-generator/internal/providers"
	"github.com/winnerqin/jimeng4-image-generator/internal/types"
)

func newVisualServer(t *testing.T, captured *http.Header, query *url.Values) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = r.Header.Clone()
		*query = r.URL.Query()
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code":    10000,
			"message": "Success",
			"data": map[string]interface{}{
				"binary_data_base64": []string{base64.StdEncoding.EncodeToString([]byte("image-bytes"))},
			},
		})
	}))
}

func TestGenerateImageSignsRequest(t *testing.T) {
	var captured http.Header
	var query url.Values
	srv := newVisualServer(t, &captured, &query)
	defer srv.Close()

	client := providers.NewVisualClient(srv.URL, "AKTEST", "sk-very-secret", 5*time.Second)
	img, err := client.GenerateImage(context.Background(), providers.GenerateParams{
		Prompt: "a cat",
		Width:  1024,
		Height: 1024,
		Steps:  28,
		Seed:   7,
	})
	if err != nil {
		t.Fatalf("Failed to generate image: %v", err)
	}
	if string(img) != "image-bytes" {
		t.Errorf("Expected decoded image bytes, got %q", img)
	}

	if query.Get("Action") != "CVProcess" || query.Get("Version") != "2022-08-31" {
		t.Errorf("Expected Action/Version query parameters, got %v", query)
	}

	authz := captured.Get("Authorization")
	if !strings.HasPrefix(authz, "HMAC-SHA256 Credential=AKTEST/") {
		t.Errorf("Expected an HMAC-SHA256 credential, got %q", authz)
	}
	if !strings.Contains(authz, "SignedHeaders=content-type;host;x-content-sha256;x-date") {
		t.Errorf("Expected signed headers in %q", authz)
	}
	if !strings.Contains(authz, "Signature=") {
		t.Errorf("Expected a signature in %q", authz)
	}
	if captured.Get("X-Date") == "" {
		t.Error("Expected an X-Date header")
	}
	if captured.Get("X-Content-Sha256") == "" {
		t.Error("Expected an X-Content-Sha256 header")
	}

	// The secret key itself must never travel with the request.
	for name, values := range captured {
		for _, v := range values {
			if strings.Contains(v, "sk-very-secret") {
				t.Errorf("Secret key leaked in header %s", name)
			}
		}
	}
}

func TestGenerateImageRequiresCredentials(t *testing.T) {
	client := providers.NewVisualClient("http://unused.invalid", "", "", time.Second)
	_, err := client.GenerateImage(context.Background(), providers.GenerateParams{Prompt: "a cat"})
	var extErr *types.ExternalServiceError
	if !errors.As(err, &extErr) {
		t.Errorf("Expected ExternalServiceError, got %v", err)
	}
}

func TestGenerateImageProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code":    50411,
			"message": "content blocked",
		})
	}))
	defer srv.Close()

	client := providers.NewVisualClient(srv.URL, "AKTEST", "sk-very-secret", 5*time.Second)
	_, err := client.GenerateImage(context.Background(), providers.GenerateParams{Prompt: "a cat"})
	var extErr *types.ExternalServiceError
	if !errors.As(err, &extErr) {
		t.Errorf("Expected ExternalServiceError, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "50411") {
		t.Errorf("Expected the provider code in the error, got %v", err)
	}
}

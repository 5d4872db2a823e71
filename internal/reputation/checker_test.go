package reputation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHash = "1f0e98207431b0321a88ad6d4e12dd8ab52c44ff85e86b5f931f3873480d72d3"

func TestCheckHashKnownSample(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/file/report", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("apikey"))
		assert.Equal(t, testHash, r.URL.Query().Get("resource"))
		w.Write([]byte(`{"response_code":1,"positives":51,"total":60,"scan_date":"2025-04-02 09:30:00"}`))
	}))
	defer srv.Close()

	got := NewVirusTotal("secret", WithBaseURL(srv.URL)).CheckHash(context.Background(), testHash)

	assert.True(t, got.Available)
	assert.True(t, got.Detected)
	assert.Equal(t, 51, got.Positives)
	assert.Equal(t, 60, got.Total)
	require.NotNil(t, got.ScanDate)
	assert.Equal(t, time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC), got.ScanDate.UTC())
}

func TestCheckHashCleanSample(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response_code":1,"positives":0,"total":62,"scan_date":"2025-04-02 09:30:00"}`))
	}))
	defer srv.Close()

	got := NewVirusTotal("secret", WithBaseURL(srv.URL)).CheckHash(context.Background(), testHash)

	assert.True(t, got.Available)
	assert.False(t, got.Detected)
	assert.Equal(t, 0, got.Positives)
	assert.Equal(t, 62, got.Total)
}

func TestCheckHashUnknownSample(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response_code":0,"verbose_msg":"not present"}`))
	}))
	defer srv.Close()

	got := NewVirusTotal("secret", WithBaseURL(srv.URL)).CheckHash(context.Background(), testHash)

	assert.True(t, got.Available)
	assert.False(t, got.Detected)
	assert.Zero(t, got.Total)
	assert.Nil(t, got.ScanDate)
}

func TestCheckHashRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	got := NewVirusTotal("secret", WithBaseURL(srv.URL)).CheckHash(context.Background(), testHash)
	assert.False(t, got.Available)
}

func TestCheckHashServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	got := NewVirusTotal("secret", WithBaseURL(srv.URL)).CheckHash(context.Background(), testHash)
	assert.False(t, got.Available)
}

func TestCheckHashMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	got := NewVirusTotal("secret", WithBaseURL(srv.URL)).CheckHash(context.Background(), testHash)
	assert.False(t, got.Available)
}

func TestCheckHashTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	start := time.Now()
	got := NewVirusTotal("secret", WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond)).
		CheckHash(context.Background(), testHash)

	assert.False(t, got.Available)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestCheckHashWithoutAPIKey(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	got := NewVirusTotal("", WithBaseURL(srv.URL)).CheckHash(context.Background(), testHash)

	assert.False(t, got.Available)
	assert.False(t, called, "no request should be made without an API key")
}

func TestDisabledChecker(t *testing.T) {
	got := Disabled{}.CheckHash(context.Background(), testHash)
	assert.False(t, got.Available)
}

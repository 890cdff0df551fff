package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sjhan/battmon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthNotification() model.Notification {
	return model.Notification{
		AlertType: "battery_health_low",
		Severity:  "warning",
		Title:     "Battery Health Low: MacBook Pro",
		Message:   "MacBook Pro battery health at 78.5%",
		Device:    "MacBook Pro",
		Timestamp: time.Now(),
	}
}

func TestNtfySend(t *testing.T) {
	var gotPath, gotTitle, gotPriority, gotTags, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTitle = r.Header.Get("Title")
		gotPriority = r.Header.Get("Priority")
		gotTags = r.Header.Get("Tags")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewNtfy(srv.URL, "battery-alerts")
	require.NoError(t, p.Send(context.Background(), healthNotification()))

	assert.Equal(t, "/battery-alerts", gotPath)
	assert.Equal(t, "Battery Health Low: MacBook Pro", gotTitle)
	assert.Equal(t, "3", gotPriority)
	assert.Contains(t, gotTags, "battery")
	assert.Contains(t, gotTags, "battery_health_low")
	assert.Equal(t, "MacBook Pro battery health at 78.5%", gotBody)
}

func TestNtfySend_TrailingSlashURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	p := NewNtfy(srv.URL+"/", "topic")
	require.NoError(t, p.Send(context.Background(), healthNotification()))
	assert.Equal(t, "/topic", gotPath)
}

func TestNtfySend_MetadataAppendedToBody(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer srv.Close()

	notif := healthNotification()
	notif.Metadata = map[string]string{"health": "78.5", "cycles": "412"}

	p := NewNtfy(srv.URL, "topic")
	require.NoError(t, p.Send(context.Background(), notif))

	assert.Equal(t, "MacBook Pro battery health at 78.5%\n\ncycles: 412\nhealth: 78.5", gotBody)
}

func TestNtfySend_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewNtfy(srv.URL, "topic")
	err := p.Send(context.Background(), healthNotification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestNtfySend_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := NewNtfy(srv.URL, "topic")
	assert.Error(t, p.Send(context.Background(), healthNotification()))
}

func TestSeverityToNtfyPriority(t *testing.T) {
	assert.Equal(t, "5", severityToNtfyPriority("critical"))
	assert.Equal(t, "3", severityToNtfyPriority("warning"))
	assert.Equal(t, "2", severityToNtfyPriority("info"))
	assert.Equal(t, "3", severityToNtfyPriority("unknown"))
}

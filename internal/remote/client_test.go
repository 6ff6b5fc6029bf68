package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchUpcomingReminders(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.RequestURI()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"reminders": [
				{
					"reminderId": "r1",
					"prescriptionId": "p1",
					"patientId": "u1",
					"medicationName": "Amoxicillin",
					"dosage": "500mg",
					"scheduledAt": "2026-03-14T09:00:00Z",
					"voiceMessage": {
						"url": "https://cdn.example.com/voice/p1.m4a",
						"filename": "p1.m4a",
						"checksum": "abc123",
						"version": 1,
						"format": "m4a"
					}
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)
	reminders, err := client.FetchUpcomingReminders(context.Background(), "tok-123", 7)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "/v1/reminders/upcoming?days=7", gotPath)
	require.Len(t, reminders, 1)
	assert.Equal(t, "r1", reminders[0].ID)
	assert.Equal(t, "Amoxicillin", reminders[0].Medication)
	require.NotNil(t, reminders[0].Voice)
	assert.Equal(t, "abc123", reminders[0].Voice.Checksum)
}

func TestFetchUpcomingReminders_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)
	_, err := client.FetchUpcomingReminders(context.Background(), "tok", 7)
	assert.Error(t, err)
}

func TestDownloadBinary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("audio-bytes"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "voice", "p1.m4a")
	client := NewClient(server.URL, 0)
	require.NoError(t, client.DownloadBinary(context.Background(), server.URL+"/voice/p1.m4a", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))
}

func TestDownloadBinary_FailureLeavesNoFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "p1.m4a")
	client := NewClient(server.URL, 0)
	err := client.DownloadBinary(context.Background(), server.URL+"/voice/p1.m4a", dest)
	assert.Error(t, err)
	assert.NoFileExists(t, dest)
}

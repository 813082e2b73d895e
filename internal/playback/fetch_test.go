package playback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dronalabs/drona/internal/audio"
	"github.com/stretchr/testify/require"
)

func TestFetchClipDecodesWAV(t *testing.T) {
	pcm := make([]byte, 3200)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(audio.EncodePCM16WAV(pcm, 16000, 1))
	}))
	defer server.Close()

	clip, err := FetchClip(context.Background(), server.Client(), server.URL+"/out.wav")
	require.NoError(t, err)
	require.Len(t, clip.Samples, len(pcm)/2)
	require.Equal(t, 16000, clip.SampleRate)
	require.Equal(t, 1, clip.Channels)
}

func TestFetchClipRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := FetchClip(context.Background(), server.Client(), server.URL+"/out.wav")
	require.Error(t, err)
	require.Contains(t, err.Error(), "HTTP 404")
}

func TestFetchClipRejectsNonAudioBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not audio</html>"))
	}))
	defer server.Close()

	_, err := FetchClip(context.Background(), server.Client(), server.URL+"/out.wav")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode clip")
}

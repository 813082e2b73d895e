package playback

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dronalabs/drona/internal/audio"
)

const maxClipBytes = 32 << 20

var defaultFetchClient = &http.Client{Timeout: 30 * time.Second}

// FetchClip downloads and decodes a playable audio reference. A nil client
// uses a default with a conservative timeout.
func FetchClip(ctx context.Context, client *http.Client, url string) (Clip, error) {
	if client == nil {
		client = defaultFetchClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Clip{}, fmt.Errorf("build clip request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Clip{}, fmt.Errorf("fetch clip: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Clip{}, fmt.Errorf("fetch clip: HTTP %d from %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxClipBytes))
	if err != nil {
		return Clip{}, fmt.Errorf("read clip body: %w", err)
	}

	samples, rate, channels, err := audio.DecodePCM16WAV(data)
	if err != nil {
		return Clip{}, fmt.Errorf("decode clip from %s: %w", url, err)
	}

	return Clip{Samples: samples, SampleRate: rate, Channels: channels}, nil
}

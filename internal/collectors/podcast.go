package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spigell/signal-fusion/internal/signal"
	"go.uber.org/zap"
)

const listenNotesAPIURL = "https://listen-api.listennotes.com/api/v2"

// PodcastCollector finds recent podcast appearances via the Listen Notes
// search API. Guest identity comes from the episode metadata, so most
// signals carry only a name; the resolver drops the ones that cannot be
// attributed.
type PodcastCollector struct {
	apiKey     string
	maxResults int
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

func NewPodcastCollector(apiKey string, maxResults int, logger *zap.Logger) *PodcastCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PodcastCollector{
		apiKey:     apiKey,
		maxResults: maxResults,
		logger:     logger,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		APIURL:     listenNotesAPIURL,
	}
}

func (c *PodcastCollector) Name() string { return "podcast" }

type listenNotesResponse struct {
	Results []struct {
		ID           string `json:"id"`
		Title        string `json:"title"`
		Description  string `json:"description"`
		PodcastTitle string `json:"podcast_title"`
		Link         string `json:"link"`
		PubDateMS    int64  `json:"pub_date_ms"`
	} `json:"results"`
}

func (c *PodcastCollector) Collect(ctx context.Context, industry, roleLevel string) ([]signal.RawSignal, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, fmt.Errorf("listen notes api key is not configured")
	}

	query := strings.TrimSpace(roleLevel + " " + industry)

	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "episode")
	q.Set("language", "English")
	q.Set("sort_by_date", "1")
	q.Set("published_after", fmt.Sprintf("%d", time.Now().AddDate(0, 0, -30).UnixMilli()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL+"/search", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-ListenAPI-Key", c.apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var data listenNotesResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	signals := make([]signal.RawSignal, 0, len(data.Results))
	for _, episode := range data.Results {
		if c.maxResults > 0 && len(signals) >= c.maxResults {
			break
		}

		signals = append(signals, signal.RawSignal{
			Source:     c.Name(),
			SignalType: "podcast_appearance",
			Content:    episode.Title + " - " + episode.Description,
			Name:       guestNameFromTitle(episode.Title),
			ProfileURL: episode.Link,
			SignalData: map[string]any{
				"episode_id":    episode.ID,
				"podcast_title": episode.PodcastTitle,
				"published_ms":  episode.PubDateMS,
			},
		})
	}

	return signals, nil
}

// guestNameFromTitle pulls a guest name from titles shaped like
// "Topic with Jane Doe" or "Jane Doe: topic". Best effort only.
func guestNameFromTitle(title string) string {
	if idx := strings.LastIndex(title, " with "); idx != -1 {
		return strings.TrimSpace(title[idx+len(" with "):])
	}
	if idx := strings.Index(title, ":"); idx != -1 {
		return strings.TrimSpace(title[:idx])
	}
	return ""
}

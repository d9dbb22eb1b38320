package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/signal-fusion/internal/signal"
	"go.uber.org/zap"
)

const (
	apifyAPIURL = "https://api.apify.com/v2"
	// Actor used for LinkedIn people search scraping.
	apifyLinkedInActor = "apify~linkedin-profile-scraper"
)

// LinkedInCollector detects job-change and activity signals via an Apify
// LinkedIn scraper run. It is a thin boundary adapter: no retry or rate
// limit engineering lives here.
type LinkedInCollector struct {
	token      string
	maxResults int
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

func NewLinkedInCollector(token string, maxResults int, logger *zap.Logger) *LinkedInCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkedInCollector{
		token:      token,
		maxResults: maxResults,
		logger:     logger,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
		APIURL:     apifyAPIURL,
	}
}

func (c *LinkedInCollector) Name() string { return "linkedin" }

type apifyProfile struct {
	FullName    string `json:"fullName"`
	URL         string `json:"url"`
	Headline    string `json:"headline"`
	Location    string `json:"location"`
	Summary     string `json:"summary"`
	Experiences []struct {
		CompanyName string `json:"companyName"`
	} `json:"experiences"`
}

// Collect runs the scraper actor synchronously and maps the dataset items to
// raw job-change signals.
func (c *LinkedInCollector) Collect(ctx context.Context, industry, roleLevel string) ([]signal.RawSignal, error) {
	if strings.TrimSpace(c.token) == "" {
		return nil, fmt.Errorf("apify token is not configured")
	}

	query := strings.TrimSpace(roleLevel + " " + industry)
	input := map[string]any{
		"startUrls": []map[string]string{
			{"url": "https://www.linkedin.com/search/results/people/?keywords=" + url.QueryEscape(query)},
		},
		"maxItems": c.maxResults,
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal actor input: %w", err)
	}

	endpoint := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items?token=%s&format=json&limit=%s",
		c.APIURL, apifyLinkedInActor, url.QueryEscape(c.token), strconv.Itoa(c.maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("starting apify linkedin scraper", zap.String("query", query))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var profiles []apifyProfile
	if err := json.NewDecoder(resp.Body).Decode(&profiles); err != nil {
		return nil, fmt.Errorf("decode dataset items: %w", err)
	}

	signals := make([]signal.RawSignal, 0, len(profiles))
	for _, p := range profiles {
		company := ""
		if len(p.Experiences) > 0 {
			company = p.Experiences[0].CompanyName
		}

		signals = append(signals, signal.RawSignal{
			Source:         c.Name(),
			SignalType:     "job_change_network",
			Content:        p.Summary,
			LinkedInURL:    p.URL,
			Name:           p.FullName,
			CurrentTitle:   p.Headline,
			CurrentCompany: company,
			Location:       p.Location,
			SignalData: map[string]any{
				"search_query": query,
			},
		})
	}

	return signals, nil
}

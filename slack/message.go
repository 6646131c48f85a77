// Package slack posts delivery report digests to a channel through the
// chat.postMessage API. Reports render as block kit sections and are
// chunked to stay under the per-message block limit.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/ip-san/devsync/metrics"
	"github.com/ip-san/devsync/report"
)

const (
	apiURL = "https://slack.com/api/chat.postMessage"

	// Slack rejects messages carrying more than 50 blocks.
	maxBlocksPerMessage = 50
)

// Client posts messages to a single Slack channel.
type Client struct {
	token      string
	channel    string
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a Client for the given bot token and channel ID.
func NewClient(token, channel string, logger *slog.Logger) (*Client, error) {
	if token == "" {
		return nil, errors.New("slack token is required")
	}
	if channel == "" {
		return nil, errors.New("slack channel is required")
	}
	return &Client{
		token:      token,
		channel:    channel,
		url:        apiURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}, nil
}

// PostReport renders the report as blocks and posts them, split across
// several messages when the digest exceeds the block limit.
func (c *Client) PostReport(ctx context.Context, r *report.Report) error {
	blocks := Message(r)
	for chunk := range slices.Chunk(blocks, maxBlocksPerMessage) {
		if err := c.post(ctx, chunk); err != nil {
			return err
		}
	}
	c.logger.Debug("posted report to slack", "channel", c.channel, "blocks", len(blocks))
	return nil
}

func (c *Client) post(ctx context.Context, blocks []map[string]any) error {
	payload := map[string]any{
		"channel": c.channel,
		"blocks":  blocks,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack API returned status %d", resp.StatusCode)
	}

	var response struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("decode slack response: %w", err)
	}
	if !response.OK {
		return fmt.Errorf("slack API error: %s", response.Error)
	}
	return nil
}

// Message renders a report as block kit blocks: a heading, one section per
// repository and a fleet summary footer.
func Message(r *report.Report) []map[string]any {
	blocks := []map[string]any{
		{
			"type": "section",
			"text": map[string]any{
				"type":  "plain_text",
				"emoji": true,
				"text":  fmt.Sprintf("Delivery report %s", r.Period),
			},
		},
		{
			"type": "divider",
		},
	}

	for _, repo := range r.Repositories {
		blocks = append(blocks, templateRepository(repo)...)
	}

	return append(blocks, templateFleet(r.Fleet))
}

func templateRepository(rep report.RepositoryReport) []map[string]any {
	d := rep.DevOps
	m := fmt.Sprintf("*%s*\nDeployments: %d (%s)\nLead time: %.1fh\nChange failure rate: %.1f%% (%d of %d)\nTime to recovery: %s",
		rep.Repository, d.DeploymentCount, d.DeploymentFrequency, d.LeadTimeHours,
		d.ChangeFailureRate, d.FailedDeployments, d.TotalDeployments, hours(d.MTTRHours))
	return []map[string]any{
		{
			"type": "section",
			"text": map[string]any{
				"type": "mrkdwn",
				"text": m,
			},
		},
		{
			"type": "divider",
		},
	}
}

func templateFleet(fleet metrics.AggregatedSummary) map[string]any {
	m := fmt.Sprintf("*Fleet* (%d repositories)\nAvg lead time: %s\nAvg change failure rate: %s\nAvg recovery: %s",
		fleet.RepositoryCount, hours(fleet.AvgLeadTimeHours),
		percent(fleet.AvgChangeFailureRate), hours(fleet.AvgMTTRHours))
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": m,
		},
	}
}

func hours(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1fh", *v)
}

func percent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v)
}

package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"contentpilot/domain/model"
	"contentpilot/infrastructure/clients/graph"

	"github.com/google/go-querystring/query"
)

// Native scheduling window mandated by the provider.
const (
	MinScheduleLead  = 10 * time.Minute
	MaxScheduleAhead = 30 * 24 * time.Hour
)

var errorTable = map[int]model.ErrorCode{
	102: model.ErrCodeAuthFailed,
	104: model.ErrCodeAuthFailed,
	190: model.ErrCodeTokenExpired,
	4:   model.ErrCodeRateLimited,
	17:  model.ErrCodeRateLimited,
	32:  model.ErrCodeRateLimited,
	341: model.ErrCodeRateLimited,
	10:  model.ErrCodePermissionDenied,
	200: model.ErrCodePermissionDenied,
	324: model.ErrCodeInvalidMedia,
}

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Client publishes to a page feed in one synchronous call; deferred posts use
// the platform's native scheduling instead of this system polling.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg *Config) *Client {
	c := &Client{baseURL: strings.TrimRight(cfg.BaseURL, "/"), http: cfg.HTTPClient}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	return c
}

// PublishRequest describes one page post. A nil ScheduledFor publishes now.
type PublishRequest struct {
	Message      string
	LinkURL      string
	PhotoURL     string
	ScheduledFor *time.Time
}

type feedParams struct {
	Message              string `url:"message,omitempty"`
	Link                 string `url:"link,omitempty"`
	URL                  string `url:"url,omitempty"`
	Published            string `url:"published"`
	ScheduledPublishTime int64  `url:"scheduled_publish_time,omitempty"`
	AccessToken          string `url:"access_token"`
}

// ValidateSchedule enforces the provider's scheduling window. Called before
// any network traffic so a bad timestamp fails fast.
func ValidateSchedule(scheduledFor time.Time, now time.Time) error {
	lead := scheduledFor.Sub(now)
	if lead < MinScheduleLead {
		return model.NewPublishError(model.ErrCodeValidation,
			"scheduled time must be at least 10 minutes from now", nil)
	}
	if lead > MaxScheduleAhead {
		return model.NewPublishError(model.ErrCodeValidation,
			"scheduled time must be within 30 days from now", nil)
	}
	return nil
}

// PublishToPage performs the single publish call and returns the platform post
// id. Scheduled posts are validated against the provider window first.
func (c *Client) PublishToPage(ctx context.Context, pageID, token string, req PublishRequest) (string, error) {
	p := feedParams{
		Message:     req.Message,
		Link:        req.LinkURL,
		AccessToken: token,
		Published:   "true",
	}
	if req.ScheduledFor != nil {
		if err := ValidateSchedule(*req.ScheduledFor, time.Now()); err != nil {
			return "", err
		}
		p.Published = "false"
		p.ScheduledPublishTime = req.ScheduledFor.Unix()
	}
	endpoint := fmt.Sprintf("/%s/feed", url.PathEscape(pageID))
	if req.PhotoURL != "" {
		endpoint = fmt.Sprintf("/%s/photos", url.PathEscape(pageID))
		p.URL = req.PhotoURL
		p.Link = ""
	}
	var out struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if err := c.postForm(ctx, endpoint, p, &out); err != nil {
		return "", err
	}
	if out.PostID != "" {
		return out.PostID, nil
	}
	if out.ID == "" {
		return "", model.NewPublishError(model.ErrCodePublishFailed, "publish returned no post id", nil)
	}
	return out.ID, nil
}

// GetPostMetrics fetches the engagement snapshot for a page post.
func (c *Client) GetPostMetrics(ctx context.Context, postID, token string) (*model.PostMetrics, error) {
	var out struct {
		Shares struct {
			Count int64 `json:"count"`
		} `json:"shares"`
		Likes struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"likes"`
		Comments struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"comments"`
	}
	params := url.Values{}
	params.Set("fields", "shares,likes.summary(true),comments.summary(true)")
	params.Set("access_token", token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+fmt.Sprintf("/%s", url.PathEscape(postID))+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &model.PostMetrics{
		Likes:    out.Likes.Summary.TotalCount,
		Comments: out.Comments.Summary.TotalCount,
		Shares:   out.Shares.Count,
	}, nil
}

func (c *Client) postForm(ctx context.Context, path string, params interface{}, out interface{}) error {
	form, err := query.Values(params)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return model.NewPublishError(model.ErrCodeNetworkError, "platform request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.NewPublishError(model.ErrCodeNetworkError, "reading platform response failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		if apiErr, ok := graph.DecodeError(body); ok {
			return graph.Classify(apiErr, errorTable)
		}
		return model.NewPublishError(model.ErrCodePublishFailed,
			fmt.Sprintf("platform returned status %d", resp.StatusCode), nil)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return model.NewPublishError(model.ErrCodePublishFailed, "decoding platform response failed", err)
	}
	return nil
}

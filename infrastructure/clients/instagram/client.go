package instagram

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
	"contentpilot/infrastructure/logger"

	"github.com/google/go-querystring/query"
)

// ContainerStatus values reported by the platform while media is ingested.
const (
	ContainerFinished   = "FINISHED"
	ContainerInProgress = "IN_PROGRESS"
	ContainerError      = "ERROR"
	ContainerExpired    = "EXPIRED"
)

// errorTable maps platform error codes onto the failure taxonomy.
var errorTable = map[int]model.ErrorCode{
	102: model.ErrCodeAuthFailed,
	104: model.ErrCodeAuthFailed,
	190: model.ErrCodeTokenExpired,
	4:   model.ErrCodeRateLimited,
	17:  model.ErrCodeRateLimited,
	32:  model.ErrCodeRateLimited,
	613: model.ErrCodeRateLimited,
	10:  model.ErrCodePermissionDenied,
	200: model.ErrCodePermissionDenied,
	324: model.ErrCodeInvalidMedia,
	352: model.ErrCodeInvalidMedia,
}

// Config configures the container-based publish client.
type Config struct {
	BaseURL         string
	HTTPClient      *http.Client
	PollInterval    time.Duration
	PollMaxAttempts int
}

// Client drives the asynchronous container publish protocol: create container
// (or one per carousel item plus a group container), poll its status, then
// exchange the finished container for a published media id.
type Client struct {
	baseURL         string
	http            *http.Client
	pollInterval    time.Duration
	pollMaxAttempts int
}

func NewClient(cfg *Config) *Client {
	c := &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		http:            cfg.HTTPClient,
		pollInterval:    cfg.PollInterval,
		pollMaxAttempts: cfg.PollMaxAttempts,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.pollInterval <= 0 {
		c.pollInterval = 5 * time.Second
	}
	if c.pollMaxAttempts <= 0 {
		c.pollMaxAttempts = 20
	}
	return c
}

type containerParams struct {
	ImageURL       string `url:"image_url,omitempty"`
	Caption        string `url:"caption,omitempty"`
	IsCarouselItem bool   `url:"is_carousel_item,omitempty"`
	MediaType      string `url:"media_type,omitempty"`
	Children       string `url:"children,omitempty"`
	AccessToken    string `url:"access_token"`
}

type idResponse struct {
	ID string `json:"id"`
}

// CreateContainer submits one media item and returns its container id. For
// carousel items the caption travels on the group container instead.
func (c *Client) CreateContainer(ctx context.Context, accountID, token, mediaURL, caption string, carouselItem bool) (string, error) {
	p := containerParams{
		ImageURL:       mediaURL,
		AccessToken:    token,
		IsCarouselItem: carouselItem,
	}
	if !carouselItem {
		p.Caption = caption
	}
	var out idResponse
	if err := c.postForm(ctx, fmt.Sprintf("/%s/media", url.PathEscape(accountID)), p, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", model.NewPublishError(model.ErrCodePublishFailed, "container creation returned no id", nil)
	}
	return out.ID, nil
}

// CreateGroupContainer creates a carousel container referencing child ids.
func (c *Client) CreateGroupContainer(ctx context.Context, accountID, token, caption string, children []string) (string, error) {
	p := containerParams{
		MediaType:   "CAROUSEL",
		Caption:     caption,
		Children:    strings.Join(children, ","),
		AccessToken: token,
	}
	var out idResponse
	if err := c.postForm(ctx, fmt.Sprintf("/%s/media", url.PathEscape(accountID)), p, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", model.NewPublishError(model.ErrCodePublishFailed, "group container creation returned no id", nil)
	}
	return out.ID, nil
}

// GetContainerStatus reads the container's status_code field.
func (c *Client) GetContainerStatus(ctx context.Context, containerID, token string) (string, error) {
	var out struct {
		StatusCode string `json:"status_code"`
	}
	params := url.Values{}
	params.Set("fields", "status_code")
	params.Set("access_token", token)
	if err := c.get(ctx, fmt.Sprintf("/%s", url.PathEscape(containerID)), params, &out); err != nil {
		return "", err
	}
	return out.StatusCode, nil
}

// WaitForContainer polls the container on a fixed interval until it finishes,
// fails, expires, or the bounded attempt count runs out. The sleep honors ctx
// so an aborted job stops polling early.
func (c *Client) WaitForContainer(ctx context.Context, containerID, token string) error {
	for attempt := 1; attempt <= c.pollMaxAttempts; attempt++ {
		status, err := c.GetContainerStatus(ctx, containerID, token)
		if err != nil {
			return err
		}
		switch status {
		case ContainerFinished:
			return nil
		case ContainerError:
			return model.NewPublishError(model.ErrCodePublishFailed, "media container processing failed", nil)
		case ContainerExpired:
			return model.NewPublishError(model.ErrCodePublishFailed, "media container expired before publish", nil)
		}
		logger.GetLogger().WithField("container_id", containerID).
			WithField("status", status).
			WithField("attempt", attempt).
			Debug("container not ready")
		select {
		case <-ctx.Done():
			return model.NewPublishError(model.ErrCodeNetworkError, "polling aborted", ctx.Err())
		case <-time.After(c.pollInterval):
		}
	}
	return model.NewPublishError(model.ErrCodePublishFailed,
		fmt.Sprintf("media container not ready after %d polls", c.pollMaxAttempts), nil)
}

// PublishContainer exchanges a finished container for a published media id.
func (c *Client) PublishContainer(ctx context.Context, accountID, token, containerID string) (string, error) {
	p := struct {
		CreationID  string `url:"creation_id"`
		AccessToken string `url:"access_token"`
	}{CreationID: containerID, AccessToken: token}
	var out idResponse
	if err := c.postForm(ctx, fmt.Sprintf("/%s/media_publish", url.PathEscape(accountID)), p, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", model.NewPublishError(model.ErrCodePublishFailed, "publish returned no media id", nil)
	}
	return out.ID, nil
}

// GetPermalink resolves the public URL of a published media object.
func (c *Client) GetPermalink(ctx context.Context, mediaID, token string) (string, error) {
	var out struct {
		Permalink string `json:"permalink"`
	}
	params := url.Values{}
	params.Set("fields", "permalink")
	params.Set("access_token", token)
	if err := c.get(ctx, fmt.Sprintf("/%s", url.PathEscape(mediaID)), params, &out); err != nil {
		return "", err
	}
	return out.Permalink, nil
}

// GetMediaMetrics fetches the engagement snapshot for a published media id.
func (c *Client) GetMediaMetrics(ctx context.Context, mediaID, token string) (*model.PostMetrics, error) {
	var out struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value int64 `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}
	params := url.Values{}
	params.Set("metric", "impressions,reach,likes,comments,shares")
	params.Set("access_token", token)
	if err := c.get(ctx, fmt.Sprintf("/%s/insights", url.PathEscape(mediaID)), params, &out); err != nil {
		return nil, err
	}
	m := &model.PostMetrics{}
	for _, d := range out.Data {
		if len(d.Values) == 0 {
			continue
		}
		v := d.Values[0].Value
		switch d.Name {
		case "impressions":
			m.Impressions = v
		case "reach":
			m.Reach = v
		case "likes":
			m.Likes = v
		case "comments":
			m.Comments = v
		case "shares":
			m.Shares = v
		}
	}
	return m, nil
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

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
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

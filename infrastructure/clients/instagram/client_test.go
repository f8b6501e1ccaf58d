package instagram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentpilot/domain/model"
)

func testClient(srv *httptest.Server) *Client {
	return NewClient(&Config{BaseURL: srv.URL, PollInterval: time.Millisecond, PollMaxAttempts: 3})
}

func TestCreateContainerSendsCaptionAndToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Nil(t, r.ParseForm())
		assert.Equal(t, "/acct-1/media", r.URL.Path)
		assert.Equal(t, "https://cdn.example.com/a.jpg", r.Form.Get("image_url"))
		assert.Equal(t, "hello", r.Form.Get("caption"))
		assert.Equal(t, "tok", r.Form.Get("access_token"))
		assert.Empty(t, r.Form.Get("is_carousel_item"))
		fmt.Fprint(w, `{"id":"container-1"}`)
	}))
	defer srv.Close()

	id, err := testClient(srv).CreateContainer(context.Background(), "acct-1", "tok", "https://cdn.example.com/a.jpg", "hello", false)
	require.Nil(t, err)
	assert.Equal(t, "container-1", id)
}

func TestCarouselItemOmitsCaption(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Nil(t, r.ParseForm())
		assert.Equal(t, "true", r.Form.Get("is_carousel_item"))
		assert.Empty(t, r.Form.Get("caption"))
		fmt.Fprint(w, `{"id":"child-1"}`)
	}))
	defer srv.Close()

	// Captions travel on the group container, not its children.
	_, err := testClient(srv).CreateContainer(context.Background(), "acct-1", "tok", "https://cdn.example.com/a.jpg", "ignored", true)
	require.Nil(t, err)
}

func TestWaitForContainerPollsUntilFinished(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&polls, 1)
		if n < 3 {
			fmt.Fprintf(w, `{"status_code":%q}`, ContainerInProgress)
			return
		}
		fmt.Fprintf(w, `{"status_code":%q}`, ContainerFinished)
	}))
	defer srv.Close()

	err := testClient(srv).WaitForContainer(context.Background(), "container-1", "tok")
	require.Nil(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&polls))
}

func TestWaitForContainerTerminalStates(t *testing.T) {
	for _, status := range []string{ContainerError, ContainerExpired} {
		t.Run(status, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `{"status_code":%q}`, status)
			}))
			defer srv.Close()

			err := testClient(srv).WaitForContainer(context.Background(), "container-1", "tok")
			require.NotNil(t, err)
			assert.Equal(t, model.ErrCodePublishFailed, model.ClassifyError(err).Code)
		})
	}
}

func TestWaitForContainerGivesUpAfterMaxPolls(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&polls, 1)
		fmt.Fprintf(w, `{"status_code":%q}`, ContainerInProgress)
	}))
	defer srv.Close()

	err := testClient(srv).WaitForContainer(context.Background(), "container-1", "tok")
	require.NotNil(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&polls))
}

func TestWaitForContainerStopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"status_code":%q}`, ContainerInProgress)
	}))
	defer srv.Close()

	client := NewClient(&Config{BaseURL: srv.URL, PollInterval: time.Minute, PollMaxAttempts: 10})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := client.WaitForContainer(ctx, "container-1", "tok")
	require.NotNil(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGraphErrorClassification(t *testing.T) {
	cases := map[int]model.ErrorCode{
		190: model.ErrCodeTokenExpired,
		4:   model.ErrCodeRateLimited,
		10:  model.ErrCodePermissionDenied,
		324: model.ErrCodeInvalidMedia,
		999: model.ErrCodePublishFailed, // unmapped codes degrade to publish_failed
	}
	for code, want := range cases {
		t.Run(fmt.Sprintf("code_%d", code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprintf(w, `{"error":{"message":"nope","type":"OAuthException","code":%d}}`, code)
			}))
			defer srv.Close()

			_, err := testClient(srv).CreateContainer(context.Background(), "acct-1", "tok", "https://cdn.example.com/a.jpg", "", false)
			require.NotNil(t, err)
			assert.Equal(t, want, model.ClassifyError(err).Code)
		})
	}
}

func TestTransportErrorsAreNetworkErrors(t *testing.T) {
	client := NewClient(&Config{BaseURL: "http://127.0.0.1:1", PollInterval: time.Millisecond})
	_, err := client.CreateContainer(context.Background(), "acct-1", "tok", "https://cdn.example.com/a.jpg", "", false)
	require.NotNil(t, err)
	perr := model.ClassifyError(err)
	assert.Equal(t, model.ErrCodeNetworkError, perr.Code)
	assert.True(t, perr.Retryable())
}

func TestGetMediaMetricsMapsInsights(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/media-1/insights", r.URL.Path)
		fmt.Fprint(w, `{"data":[
			{"name":"impressions","values":[{"value":1500}]},
			{"name":"reach","values":[{"value":1100}]},
			{"name":"likes","values":[{"value":42}]},
			{"name":"comments","values":[{"value":7}]},
			{"name":"shares","values":[{"value":3}]}
		]}`)
	}))
	defer srv.Close()

	metrics, err := testClient(srv).GetMediaMetrics(context.Background(), "media-1", "tok")
	require.Nil(t, err)
	assert.Equal(t, int64(1500), metrics.Impressions)
	assert.Equal(t, int64(1100), metrics.Reach)
	assert.Equal(t, int64(42), metrics.Likes)
	assert.Equal(t, int64(7), metrics.Comments)
	assert.Equal(t, int64(3), metrics.Shares)
}

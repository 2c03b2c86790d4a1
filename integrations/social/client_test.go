package social

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func stubHTTP(t *testing.T, fn roundTripperFunc) {
	t.Helper()
	orig := httpClient
	t.Cleanup(func() { httpClient = orig })
	httpClient = &http.Client{Transport: fn}
}

func reply(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(body)), Header: make(http.Header)}
}

func TestSchedule_FutureSlot(t *testing.T) {
	var got postPayload
	stubHTTP(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer key", req.Header.Get("Authorization"))
		assert.Equal(t, "acme-profile", req.Header.Get("Profile-Key"))
		assert.Equal(t, "/api/posts", req.URL.Path)
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		return reply(http.StatusOK, `{"id":"sp-1","status":"queued"}`), nil
	})

	at := time.Date(2026, 3, 3, 15, 0, 0, 0, time.FixedZone("CST", -6*3600))
	res, err := NewClient("https://social.test/api", "key").Schedule(context.Background(), domain.ScheduleRequest{
		ProfileKey: "acme-profile",
		Platform:   "facebook",
		Caption:    "Storm season is here.",
		Hashtags:   []string{"#roofing", "austin tx", " "},
		MediaURLs:  []string{"https://cdn.test/a.jpg"},
		At:         &at,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleResult{State: domain.JobScheduled, ExternalPostID: "sp-1"}, res)
	assert.Equal(t, []string{"facebook"}, got.Platforms)
	assert.Equal(t, "Storm season is here.\n\n#roofing #austintx", got.Post)
	assert.Equal(t, "2026-03-03T21:00:00Z", got.ScheduleDate)
}

func TestSchedule_ImmediatePublished(t *testing.T) {
	stubHTTP(t, func(req *http.Request) (*http.Response, error) {
		return reply(http.StatusOK, `{"id":"sp-2","status":"success","post_url":"https://fb.test/p/2"}`), nil
	})
	res, err := NewClient("https://social.test", "key").Schedule(context.Background(), domain.ScheduleRequest{
		ProfileKey: "p", Platform: "linkedin", Caption: "Hi",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.JobPublished, res.State)
	assert.Equal(t, "https://fb.test/p/2", res.URL)
}

func TestSchedule_RequiresProfile(t *testing.T) {
	_, err := NewClient("https://social.test", "key").Schedule(context.Background(), domain.ScheduleRequest{Platform: "x"})
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestSchedule_Rejected(t *testing.T) {
	stubHTTP(t, func(*http.Request) (*http.Response, error) {
		return reply(http.StatusOK, `{"id":"sp-3","status":"error","error":"caption too long"}`), nil
	})
	_, err := NewClient("https://social.test", "key").Schedule(context.Background(), domain.ScheduleRequest{ProfileKey: "p", Platform: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "caption too long")
}

func TestStatusAndCancel(t *testing.T) {
	stubHTTP(t, func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodDelete {
			return reply(http.StatusNotFound, ""), nil
		}
		assert.Equal(t, "/posts/sp-1", req.URL.Path)
		return reply(http.StatusOK, `{"id":"sp-1","status":"posted","post_url":"https://ig.test/1"}`), nil
	})
	c := NewClient("https://social.test", "key")

	st, err := c.Status(context.Background(), "sp-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatus{State: domain.JobPublished, URL: "https://ig.test/1", ExternalID: "sp-1"}, st)

	assert.NoError(t, c.Cancel(context.Background(), "sp-1"))
}

package strava

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewClient(nil, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	c.rateLimiter.minInterval = 0
	return c
}

func TestGetActivity(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/activities/42", r.URL.Path)
		w.Header().Set("X-RateLimit-Limit", "200,2000")
		w.Header().Set("X-RateLimit-Usage", "10,100")
		fmt.Fprint(w, `{
			"id": 42, "athlete": {"id": 7}, "name": "Tempo", "type": "Ride",
			"start_date": "2024-05-04T07:30:00Z", "moving_time": 3600, "distance": 40000,
			"average_watts": 190.5, "weighted_average_watts": 205, "device_watts": true,
			"private_note": "Fitness 40 Fatigue 52", "description": "club run"
		}`)
	}))

	a, err := c.GetActivity(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, "Tempo", a.Name)
	assert.Equal(t, "Fitness 40 Fatigue 52", a.PrivateNote)
	require.NotNil(t, a.WeightedAverageWatts)
	assert.Equal(t, 205.0, *a.WeightedAverageWatts)
	assert.Nil(t, a.AverageHeartrate)

	stored := a.ToStore()
	assert.Equal(t, int64(7), stored.AthleteID)
	assert.True(t, stored.DeviceWatts)
	assert.True(t, stored.HasPower())

	short, daily := c.RateLimitStatus()
	assert.Equal(t, 190, short)
	assert.Equal(t, 1900, daily)
}

func TestGetActivity_Errors(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/activities/1":
			http.NotFound(w, r)
		case "/activities/2":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))

	_, err := c.GetActivity(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.GetActivity(context.Background(), 2)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.GetActivity(context.Background(), 3)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestGetAllActivities_Pages(t *testing.T) {
	var pages []int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pages = append(pages, page)
		assert.Equal(t, "1704067200", r.URL.Query().Get("after"))

		n := perPage
		if page == 2 {
			n = 3
		}
		items := make([]string, n)
		for i := range items {
			items[i] = fmt.Sprintf(`{"id": %d, "type": "Ride"}`, page*1000+i)
		}
		fmt.Fprintf(w, "[%s]", strings.Join(items, ","))
	}))

	var progress []int
	after := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	all, err := c.GetAllActivities(context.Background(), after, func(n int) { progress = append(progress, n) })
	require.NoError(t, err)

	assert.Len(t, all, perPage+3)
	assert.Equal(t, []int{1, 2}, pages)
	assert.Equal(t, []int{perPage, perPage + 3}, progress)
}

func TestPowerStream(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "time,watts,heartrate,cadence", r.URL.Query().Get("keys"))
		if r.URL.Path == "/activities/5/streams" {
			fmt.Fprint(w, `{"time": {"data": [0, 1, 2]}, "heartrate": {"data": [120, 121, 122]}}`)
			return
		}
		fmt.Fprint(w, `{
			"time": {"data": [0, 1, 3, 4]},
			"watts": {"data": [200, 210, 230, 240]},
			"heartrate": {"data": [140, 141, 143, 144]}
		}`)
	}))

	watts, err := c.PowerStream(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, []float64{200, 210, 0, 230, 240}, watts)

	_, err = c.PowerStream(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStreamsToStore_NoTime(t *testing.T) {
	s := &Streams{Watts: &StreamData[float64]{Data: []float64{1, 2, 3}}}
	out := s.ToStore(3)
	assert.Equal(t, []float64{1, 2, 3}, out.Watts)
	assert.Nil(t, out.Heartrate)

	var nilStreams *Streams
	assert.False(t, nilStreams.HasWatts())
	assert.Equal(t, int64(4), nilStreams.ToStore(4).ActivityID)
}

func TestActivityType_FallsBackToSportType(t *testing.T) {
	a := Activity{SportType: "GravelRide"}
	assert.Equal(t, "GravelRide", a.ToStore().Type)
}

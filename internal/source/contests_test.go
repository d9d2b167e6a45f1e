package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contestsJSON = `[
  {"id":"abc101","start_epoch_second":1529151600,"duration_second":6000,"title":"AtCoder Beginner Contest 101","rate_change":" ~ 1199"},
  {"id":"abc100","start_epoch_second":1528546800,"duration_second":6000,"title":"AtCoder Beginner Contest 100","rate_change":" ~ 1199"},
  {"id":"","start_epoch_second":1528546800,"duration_second":6000,"title":"broken","rate_change":"-"},
  {"id":"practice","start_epoch_second":1528600000,"duration_second":0,"title":"Practice","rate_change":"-"}
]`

func TestFetchContests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(contestsJSON))
	}))
	t.Cleanup(server.Close)

	l := NewContestLister(server.URL, "https://atcoder.example/")
	contests, err := l.FetchContests(context.Background())
	require.NoError(t, err)

	require.Len(t, contests, 3, "entries without an id are dropped")
	assert.Equal(t, []string{"abc100", "practice", "abc101"}, []string{contests[0].ID, contests[1].ID, contests[2].ID})

	abc100 := contests[0]
	assert.Equal(t, "AtCoder Beginner Contest 100", abc100.Title)
	assert.Equal(t, time.Unix(1528546800, 0).UTC(), abc100.Start)
	assert.Equal(t, time.Unix(1528552800, 0).UTC(), abc100.End())
	assert.Equal(t, "https://atcoder.example/contests/abc100", abc100.URL)
	assert.True(t, abc100.Rated())
	assert.False(t, contests[1].Rated())
}

func TestFetchContestsErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/garbage" {
			w.Write([]byte(`{"not":"a list"}`))
			return
		}
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	l := NewContestLister(server.URL+"/down", "")
	l.client.RetryMax = 0
	_, err := l.FetchContests(context.Background())
	assert.ErrorContains(t, err, "failed to fetch contest list")

	l = NewContestLister(server.URL+"/garbage", "")
	_, err = l.FetchContests(context.Background())
	assert.ErrorContains(t, err, "failed to decode contest list")
}

func TestContestRated(t *testing.T) {
	for rateChange, want := range map[string]bool{
		"All":     true,
		" ~ 1999": true,
		"1200 ~ ": true,
		"-":       false,
		"×":       false,
		"":        false,
	} {
		assert.Equal(t, want, Contest{RateChange: rateChange}.Rated(), rateChange)
	}
}

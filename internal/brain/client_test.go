package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDisabledWhenUnconfigured(t *testing.T) {
	c := NewClient("")
	assert.Nil(t, c)
	assert.False(t, c.Enabled(), "nil client must report disabled")
}

func TestStartRun(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/start_run", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "h-42", req["hypothesisId"])

		fmt.Fprint(w, `{"runId": "run-1"}`)
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	runID, err := c.StartRun(context.Background(), "h-42", 42, 1.0)
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)
}

func TestStartRunRejectsEmptyRunID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).StartRun(context.Background(), "h", 1, 1.0)
	assert.Error(t, err)
}

func TestDecideRoundTrip(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/decide", r.URL.Path)

		var req struct {
			RunID  string          `json:"runId"`
			Agents []AgentSnapshot `json:"agents"`
			Extra  map[string]any  `json:"context"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "run-1", req.RunID)
		require.Len(t, req.Agents, 2)
		assert.Equal(t, "E0", req.Agents[0].ID)

		fmt.Fprint(w, `{"decisions": [
			{"id": "E0", "next_intent": {"category": "cafe", "name": "Roast House"}, "thought": "tired"}
		]}`)
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	decisions, err := c.Decide(context.Background(), "run-1", []AgentSnapshot{
		{ID: "E0", Role: "student", Pos: [2]float64{1, 2}, Needs: map[string]float64{"caffeine": 0.8}},
		{ID: "E1", Role: "worker"},
	}, map[string]any{"time_of_day": "morning"})
	require.NoError(t, err)

	// Fewer decisions than snapshots is a valid response.
	require.Len(t, decisions, 1)
	assert.Equal(t, "E0", decisions[0].ID)
	assert.Equal(t, "cafe", decisions[0].NextIntent.Category)
	assert.Equal(t, "tired", decisions[0].Thought)
}

func TestChatRoundTrip(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat", r.URL.Path)
		fmt.Fprint(w, `{"pairs": [{"aId": "E0", "bId": "E1", "a_line": "hey", "b_line": "hi"}]}`)
	}))
	defer ts.Close()

	lines, err := NewClient(ts.URL).Chat(context.Background(), "run-1",
		[]ChatPair{{AID: "E0", BID: "E1"}}, nil)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "hey", lines[0].ALine)
	assert.Equal(t, "hi", lines[0].BLine)
}

func TestErrorStatusSurfaces(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	_, err := c.Decide(context.Background(), "run-1", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decide")

	err = c.EndRun(context.Background(), "run-1")
	assert.Error(t, err)
}

func TestContextCancellation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewClient(ts.URL).EndRun(ctx, "run-1")
	assert.Error(t, err)
}

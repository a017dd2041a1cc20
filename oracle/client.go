// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cineclub/cineforum/models"
	"github.com/cineclub/cineforum/session"
)

// Client talks to the consensus oracle service. All calls are
// synchronous POSTs with JSON bodies; the configured timeout bounds
// each call end to end.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client for the oracle at baseURL. A trailing
// slash on baseURL is tolerated.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type slotDecisionRequest struct {
	SubjectTitle string         `json:"subject_title"`
	Episode      int            `json:"episode"`
	SlotCounts   map[string]int `json:"slot_counts"`
}

type slotDecisionResponse struct {
	ChosenSlot string `json:"chosen_slot"`
	Cancelled  bool   `json:"cancelled"`
	Message    string `json:"message"`
}

// DecideSlot asks the oracle to pick a final time slot (or cancel)
// from a snapshot of the slot ballot.
func (c *Client) DecideSlot(ctx context.Context, req session.SlotDecisionRequest) (session.SlotDecision, error) {
	var resp slotDecisionResponse
	err := c.post(ctx, "/v1/slot-decision", slotDecisionRequest{
		SubjectTitle: req.SubjectTitle,
		Episode:      req.SequenceNumber,
		SlotCounts:   req.SlotCounts,
	}, &resp)
	if err != nil {
		return session.SlotDecision{}, err
	}
	if !resp.Cancelled && resp.ChosenSlot == "" {
		return session.SlotDecision{}, fmt.Errorf("oracle returned neither a slot nor a cancellation")
	}
	return session.SlotDecision{
		ChosenSlot: resp.ChosenSlot,
		Cancelled:  resp.Cancelled,
		Message:    resp.Message,
	}, nil
}

type moderatorLineRequest struct {
	SubjectTitle string        `json:"subject_title"`
	Episode      int           `json:"episode"`
	Recent       []recentEntry `json:"recent"`
}

type recentEntry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type textResponse struct {
	Text string `json:"text"`
}

// ModeratorLine asks the oracle for a moderator interjection given the
// tail of the discussion log.
func (c *Client) ModeratorLine(ctx context.Context, subjectTitle string, episode int, recent []models.Message) (string, error) {
	req := moderatorLineRequest{
		SubjectTitle: subjectTitle,
		Episode:      episode,
		Recent:       make([]recentEntry, len(recent)),
	}
	for i, m := range recent {
		req.Recent[i] = recentEntry{Role: m.Role, Text: m.Text}
	}

	var resp textResponse
	if err := c.post(ctx, "/v1/moderator-line", req, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

type candidateBlurbRequest struct {
	Title     string `json:"title"`
	Rationale string `json:"rationale,omitempty"`
}

// CandidateBlurb asks the oracle for a short spoiler-free pitch for a
// ballot candidate.
func (c *Client) CandidateBlurb(ctx context.Context, title, rationale string) (string, error) {
	var resp textResponse
	if err := c.post(ctx, "/v1/candidate-blurb", candidateBlurbRequest{Title: title, Rationale: rationale}, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode oracle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("oracle call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("oracle call %s: status %d: %s", path, resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode oracle response: %w", err)
	}
	return nil
}

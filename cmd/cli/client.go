// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

func apiBaseURL() string {
	if u := os.Getenv("ADVISOR_API_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func newClient() *resty.Client {
	c := resty.New().
		SetBaseURL(apiBaseURL()).
		SetTimeout(60 * time.Second).
		SetHeader("Content-Type", "application/json")
	if tok := os.Getenv("ADVISOR_API_TOKEN"); tok != "" {
		c.SetAuthToken(tok)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse /api/v1/chat 的响应体；pending_write 作为不透明 JSON 保存，
// 下一轮原样回传即可继续确认流程
type chatResponse struct {
	Answer               string          `json:"response"`
	QueryType            string          `json:"query_type"`
	Confidence           float64         `json:"confidence_score"`
	Outcome              string          `json:"verification_outcome"`
	AwaitingConfirmation bool            `json:"awaiting_confirmation"`
	PendingWrite         json.RawMessage `json:"pending_write"`
	MissingFields        []string        `json:"missing_fields"`
	ToolsUsed            []string        `json:"tools_used"`
	Citations            []string        `json:"citations"`
	LatencySeconds       float64         `json:"latency_seconds"`
}

func buildChatRequest(query string, history []chatMessage, pending json.RawMessage) map[string]interface{} {
	body := map[string]interface{}{"query": query}
	if len(history) > 0 {
		body["history"] = history
	}
	if len(pending) > 0 {
		body["pending_write"] = pending
	}
	return body
}

func postChat(query string, history []chatMessage, pending json.RawMessage) (*chatResponse, error) {
	var out chatResponse
	resp, err := newClient().R().
		SetBody(buildChatRequest(query, history, pending)).
		SetResult(&out).
		Post("/api/v1/chat")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("POST /api/v1/chat: %s", resp.String())
	}
	return &out, nil
}

func getHealth() (map[string]interface{}, error) {
	var out map[string]interface{}
	resp, err := newClient().R().
		SetResult(&out).
		Get("/api/health")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/health: %s", resp.String())
	}
	return out, nil
}

func listTools() ([]map[string]interface{}, error) {
	var out struct {
		Tools []map[string]interface{} `json:"tools"`
	}
	resp, err := newClient().R().
		SetResult(&out).
		Get("/api/v1/tools")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/v1/tools: %s", resp.String())
	}
	return out.Tools, nil
}

func prettyJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// Package client 告警引擎HTTP API客户端
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/LENAX/alert-engine/pkg/api/dto"
	"github.com/LENAX/alert-engine/pkg/core/alert"
	"github.com/LENAX/alert-engine/pkg/core/engine"
)

// AlertEngine HTTP API客户端
type AlertEngine struct {
	baseURL    string
	httpClient *http.Client
}

// New 创建客户端
func New(baseURL string) *AlertEngine {
	return &AlertEngine{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AlertQuery 告警查询条件
type AlertQuery struct {
	WorkflowID  string
	RecipientID string
	Category    string
	Status      string
	Limit       int
}

// TriggerSweep 手动触发全量巡检
func (c *AlertEngine) TriggerSweep() (*dto.SweepAccepted, error) {
	var resp dto.APIResponse[dto.SweepAccepted]
	if err := c.post("/api/v1/sweeps", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// SweepStatus 查询巡检状态
func (c *AlertEngine) SweepStatus() (*dto.SweepStatus, error) {
	var resp dto.APIResponse[dto.SweepStatus]
	if err := c.get("/api/v1/sweeps", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// CheckWorkflow 立即检查单个工作流
func (c *AlertEngine) CheckWorkflow(id string) (*engine.CheckResult, error) {
	var resp dto.APIResponse[engine.CheckResult]
	if err := c.post("/api/v1/workflows/"+url.PathEscape(id)+"/check", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// PublishEvent 上报工作流状态变更事件
func (c *AlertEngine) PublishEvent(req dto.EventRequest) (*dto.EventAccepted, error) {
	var resp dto.APIResponse[dto.EventAccepted]
	if err := c.post("/api/v1/events", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// ListAlerts 查询告警记录
func (c *AlertEngine) ListAlerts(q AlertQuery) (*dto.ListResponse[alert.AlertRecord], error) {
	params := url.Values{}
	setParam(params, "workflow_id", q.WorkflowID)
	setParam(params, "recipient_id", q.RecipientID)
	setParam(params, "category", q.Category)
	setParam(params, "status", q.Status)
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var resp dto.APIResponse[dto.ListResponse[alert.AlertRecord]]
	if err := c.get("/api/v1/alerts", params, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// ListSuppressed 查询被拦截的告警
func (c *AlertEngine) ListSuppressed(workflowID string) (*dto.ListResponse[alert.SuppressedAlert], error) {
	params := url.Values{}
	params.Set("workflow_id", workflowID)

	var resp dto.APIResponse[dto.ListResponse[alert.SuppressedAlert]]
	if err := c.get("/api/v1/suppressed-alerts", params, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func setParam(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func (c *AlertEngine) get(path string, params url.Values, result interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	resp, err := c.httpClient.Get(u)
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	return parseResponse(resp, result)
}

func (c *AlertEngine) post(path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求体失败: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", reqBody)
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	return parseResponse(resp, result)
}

// APIError 服务端返回的错误
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("服务端错误 %d: %s", e.StatusCode, e.Message)
}

func parseResponse(resp *http.Response, result interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应体失败: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr dto.APIResponse[any]
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
			return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
		}
		return &APIError{StatusCode: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Message}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("解析响应失败: %w, body: %s", err, string(body))
	}
	return nil
}

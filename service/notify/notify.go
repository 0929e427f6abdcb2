package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"PairChat/tools/errs"
)

const TypeReminder = "REMINDER"

// Client 外部通知服务（actions）的写客户端。发了即忘：
// 单个成员失败只记日志，不影响其他成员的派发。
type Client struct {
	baseURL string
	hc      *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
	}
}

type createRequest struct {
	UserID  string `json:"userId"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Create POST /notifications。
func (c *Client) Create(ctx context.Context, userID, typ, content string) error {
	body, err := json.Marshal(createRequest{UserID: userID, Type: typ, Content: content})
	if err != nil {
		return errs.WrapMsg(err, "marshal notification")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		return errs.WrapMsg(err, "build notification request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return errs.ErrUpstream.WrapMsg("send notification", "user", userID, "err", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errs.ErrUpstream.WrapMsg("send notification", "user", userID, "status", resp.StatusCode)
	}
	return nil
}

package filter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode"

	"PairChat/logger"
	"PairChat/tools/errs"
)

const (
	cacheTTL     = 5 * time.Minute
	fetchTimeout = 5 * time.Second
	maskRune     = '*'
)

// Gateway 外部违规关键词表的读穿透缓存客户端。
// 关键词按违规类别分组下发，这里拍平成一个小写子串集合做匹配。
type Gateway struct {
	mu        sync.RWMutex
	keywords  []string
	fetchedAt time.Time

	baseURL string
	hc      *http.Client
	clock   func() time.Time
	ttl     time.Duration
}

func New(baseURL string) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: fetchTimeout},
		clock:   time.Now,
		ttl:     cacheTTL,
	}
}

// keyword 接口返回：{"data": {"SPAM": [{"text": "..."}], "HARASSMENT": [...]}}
type keywordResponse struct {
	Data map[string][]struct {
		Text string `json:"text"`
	} `json:"data"`
}

// Refresh 同步拉取关键词表并整体替换缓存。
func (g *Gateway) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/admin/violation-keywords", nil)
	if err != nil {
		return errs.WrapMsg(err, "build keyword request")
	}
	resp, err := g.hc.Do(req)
	if err != nil {
		return errs.ErrUpstream.WrapMsg("fetch violation keywords", "err", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errs.ErrUpstream.WrapMsg("fetch violation keywords", "status", resp.StatusCode)
	}

	var body keywordResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return errs.ErrUpstream.WrapMsg("decode violation keywords", "err", err)
	}

	// 按类别分组拍平；保留下发顺序（掩码按序逐词应用，重叠按此顺序决出）
	var flat []string
	for _, group := range body.Data {
		for _, k := range group {
			if k.Text != "" {
				flat = append(flat, strings.ToLower(k.Text))
			}
		}
	}

	g.mu.Lock()
	g.keywords = flat
	g.fetchedAt = g.clock()
	g.mu.Unlock()

	logger.Infof("[filter] loaded %d violation keywords", len(flat))
	return nil
}

// Ensure 缓存超期则同步刷新。刷新失败时：有旧缓存就继续用（只记日志）；
// 从未成功加载过则把错误抛给调用方，消息仍放行（fail-open 到不过滤）。
func (g *Gateway) Ensure(ctx context.Context) error {
	g.mu.RLock()
	loaded := !g.fetchedAt.IsZero()
	fresh := loaded && g.clock().Sub(g.fetchedAt) <= g.ttl
	g.mu.RUnlock()
	if fresh {
		return nil
	}
	if err := g.Refresh(ctx); err != nil {
		if !loaded {
			return err
		}
		logger.Warnf("[filter] refresh keywords err: %v", err)
	}
	return nil
}

// Apply 把每个关键词的大小写无关命中替换为等长 '*'。
// 按关键词列表顺序逐个应用；重叠片段以后应用者为准（沿用既有语义，见设计说明）。
func (g *Gateway) Apply(text string) string {
	if text == "" {
		return text
	}
	g.mu.RLock()
	keywords := g.keywords
	g.mu.RUnlock()
	if len(keywords) == 0 {
		return text
	}

	runes := []rune(text)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}

	for _, kw := range keywords {
		maskKeyword(runes, lower, []rune(kw))
	}
	return string(runes)
}

// maskKeyword 在 lower 里找 kw 的每次出现，原串与 lower 的对应位置一并改写为 '*'。
// lower 跟随改写，后续关键词是在已掩码的文本上匹配（与逐词正则替换等价）。
func maskKeyword(runes, lower, kw []rune) {
	if len(kw) == 0 || len(kw) > len(lower) {
		return
	}
	for i := 0; i+len(kw) <= len(lower); i++ {
		match := true
		for j := range kw {
			if lower[i+j] != kw[j] {
				match = false
				break
			}
		}
		if match {
			for j := range kw {
				runes[i+j] = maskRune
				lower[i+j] = maskRune
			}
			i += len(kw) - 1
		}
	}
}

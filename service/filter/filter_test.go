package filter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PairChat/tools/errs"
)

func keywordServer(t *testing.T, body string, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		require.Equal(t, "/admin/violation-keywords", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func TestApplyMasksCaseInsensitive(t *testing.T) {
	g := New("http://unused")
	g.keywords = []string{"spam"}

	assert.Equal(t, "buy **** now", g.Apply("buy SPAM now"))
	assert.Equal(t, "****", g.Apply("Spam"))
	assert.Equal(t, "clean text", g.Apply("clean text"))
}

func TestApplyMaskLengthEqualsKeyword(t *testing.T) {
	g := New("http://unused")
	g.keywords = []string{"坏词"}

	got := g.Apply("这是坏词啊")
	assert.Equal(t, "这是**啊", got)
	assert.Equal(t, len([]rune("这是坏词啊")), len([]rune(got)))
}

func TestApplySequentialKeywordOrder(t *testing.T) {
	// 后一个关键词在已掩码文本上匹配：abc 被掩掉后 bcd 不再命中
	g := New("http://unused")
	g.keywords = []string{"abc", "bcd"}
	assert.Equal(t, "***d", g.Apply("abcd"))

	// 倒过来 bcd 先赢，abc 不再命中
	g.keywords = []string{"bcd", "abc"}
	assert.Equal(t, "a***", g.Apply("abcd"))
}

func TestApplyRepeatedHits(t *testing.T) {
	g := New("http://unused")
	g.keywords = []string{"bad"}
	assert.Equal(t, "*** and *** again", g.Apply("bad and BAD again"))
}

func TestApplyEmptyKeywordListPassThrough(t *testing.T) {
	g := New("http://unused")
	assert.Equal(t, "anything", g.Apply("anything"))
}

func TestRefreshFlattensGroups(t *testing.T) {
	srv := keywordServer(t, `{"data":{"SPAM":[{"text":"Viagra"}],"HARASSMENT":[{"text":"idiot"},{"text":""}]}}`, nil)
	defer srv.Close()

	g := New(srv.URL)
	require.NoError(t, g.Refresh(context.Background()))

	assert.Len(t, g.keywords, 2)
	assert.Contains(t, g.keywords, "viagra") // 下发词统一小写匹配
	assert.Contains(t, g.keywords, "idiot")
}

func TestEnsureRespectsTTL(t *testing.T) {
	var calls int32
	srv := keywordServer(t, `{"data":{"SPAM":[{"text":"bad"}]}}`, &calls)
	defer srv.Close()

	now := time.Now()
	g := New(srv.URL)
	g.clock = func() time.Time { return now }

	require.NoError(t, g.Ensure(context.Background()))
	require.NoError(t, g.Ensure(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "fresh cache must not refetch")

	now = now.Add(cacheTTL + time.Second)
	require.NoError(t, g.Ensure(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "stale cache must refetch")
}

func TestEnsureKeepsStaleCacheOnUpstreamFailure(t *testing.T) {
	srv := keywordServer(t, `{"data":{"SPAM":[{"text":"bad"}]}}`, nil)

	now := time.Now()
	g := New(srv.URL)
	g.clock = func() time.Time { return now }
	require.NoError(t, g.Ensure(context.Background()))
	srv.Close()

	// 超期 + 上游挂了：继续用旧词表，不放行
	now = now.Add(cacheTTL + time.Second)
	require.NoError(t, g.Ensure(context.Background()))
	assert.Equal(t, "*** word", g.Apply("bad word"))
}

func TestEnsureFailOpenWhenNeverLoaded(t *testing.T) {
	g := New("http://127.0.0.1:1") // 无法连接
	// 首次加载失败要让调用方知道，但消息仍然放行（不过滤）
	assert.Error(t, g.Ensure(context.Background()))
	assert.Equal(t, "bad word", g.Apply("bad word"))
}

func TestRefreshRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := New(srv.URL)
	err := g.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsUpstream(err))
}

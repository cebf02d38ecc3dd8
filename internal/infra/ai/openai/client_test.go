package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domai "github.com/bryanwahyu/mailguard/internal/domain/ai"
	"github.com/bryanwahyu/mailguard/internal/domain/mailbox"
)

var emails = []mailbox.Email{
	{ID: "1", Sender: "Coupang", Subject: "쿠팡에 가입을 환영합니다!"},
	{ID: "8", Sender: "Netflix", Subject: "이번 달 결제 영수증"},
}

func TestClassify(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"results\":[{\"id\":\"1\",\"classification\":\"REGISTER\"},{\"id\":\"8\",\"classification\":\"OTHER\"}]}"}
			}]
		}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL, "")
	results, err := c.Classify(context.Background(), emails)
	require.NoError(t, err)

	assert.Equal(t, []domai.Result{
		{ID: "1", Classification: mailbox.ClassRegister},
		{ID: "8", Classification: mailbox.ClassOther},
	}, results)
	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.Contains(t, got, "max_tokens")
}

func TestClassify_QuotaExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL, "gpt-4o-mini")
	_, err := c.Classify(context.Background(), emails)
	assert.ErrorIs(t, err, domai.ErrQuotaExceeded)
}

func TestClassify_NoEmails(t *testing.T) {
	c := NewClientWithBaseURL("test-key", "http://127.0.0.1:0", "")
	results, err := c.Classify(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIsReasoningModel(t *testing.T) {
	assert.True(t, isReasoningModel("o3-2025-04-16"))
	assert.True(t, isReasoningModel("gpt-5-mini"))
	assert.False(t, isReasoningModel("gpt-4o-mini"))
}

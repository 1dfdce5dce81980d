package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/xinling/backend/internal/config"
	"github.com/zhouzirui/xinling/backend/internal/model/chat"
)

type fakeModel struct {
	mu     sync.Mutex
	inputs [][]*schema.Message
	reply  string
	err    error
}

func (f *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeModel) lastInput() []*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inputs) == 0 {
		return nil
	}
	return f.inputs[len(f.inputs)-1]
}

func newTestService(fm *fakeModel, builds *int) *Service {
	cfg := config.AIConfig{Provider: config.ProviderGemini, APIKey: "test-key", HistoryLimit: 15}
	return NewService(cfg, WithModelFactory(func(context.Context, config.AIConfig) (model.BaseChatModel, error) {
		if builds != nil {
			*builds++
		}
		return fm, nil
	}))
}

func transcript(n int) []chat.Message {
	out := make([]chat.Message, 0, n)
	for i := 0; i < n; i++ {
		role := chat.RoleUser
		if i%2 == 1 {
			role = chat.RoleModel
		}
		out = append(out, chat.NewMessage(fmt.Sprintf("m-%d", i), role, fmt.Sprintf("turn %d", i), time.UnixMilli(int64(i))))
	}
	return out
}

func TestConverseSendsPolicyWindowAndQuery(t *testing.T) {
	fm := &fakeModel{reply: "听起来你现在很不容易 🌱"}
	svc := newTestService(fm, nil)

	reply := svc.Converse(context.Background(), transcript(20), "我有点累")
	assert.Equal(t, "听起来你现在很不容易 🌱", reply)

	input := fm.lastInput()
	require.Len(t, input, 1+15+1, "system + 15 history + query")
	assert.Equal(t, schema.System, input[0].Role)
	assert.Contains(t, input[0].Content, "400-161-9995")
	assert.Contains(t, input[0].Content, "12355")
	assert.Equal(t, "turn 5", input[1].Content, "oldest kept message")
	assert.Equal(t, schema.User, input[1].Role)
	assert.Equal(t, schema.Assistant, input[2].Role)
	assert.Equal(t, "turn 19", input[15].Content)
	assert.Equal(t, schema.User, input[16].Role)
	assert.Equal(t, "我有点累", input[16].Content)
}

func TestConverseReusesModel(t *testing.T) {
	builds := 0
	fm := &fakeModel{reply: "ok"}
	svc := newTestService(fm, &builds)

	svc.Converse(context.Background(), nil, "一")
	svc.Converse(context.Background(), nil, "二")
	svc.Reflect(context.Background(), "今天很累，什么都不想做")

	assert.Equal(t, 1, builds)
}

func TestConverseMissingCredential(t *testing.T) {
	called := false
	svc := NewService(config.AIConfig{Provider: config.ProviderGemini}, WithModelFactory(func(context.Context, config.AIConfig) (model.BaseChatModel, error) {
		called = true
		return nil, errors.New("unreachable")
	}))

	assert.Equal(t, NoticeMissingKey, svc.Converse(context.Background(), nil, "你好"))
	assert.False(t, called, "no model is built without a credential")
}

func TestConverseFallbacks(t *testing.T) {
	cases := []struct {
		name string
		fm   *fakeModel
		want string
	}{
		{"invalid key", &fakeModel{err: errors.New("Error 400, Message: API key not valid. Please pass a valid API key.")}, NoticeInvalidKey},
		{"forbidden", &fakeModel{err: errors.New("googleapi: Error 403: permission denied")}, NoticeInvalidKey},
		{"quota", &fakeModel{err: errors.New("Error 429, RESOURCE_EXHAUSTED")}, NoticeUnavailable},
		{"empty", &fakeModel{reply: "   "}, NoticeEmpty},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(tc.fm, nil)
			assert.Equal(t, tc.want, svc.Converse(context.Background(), transcript(2), "在吗"))
		})
	}
	assert.Contains(t, NoticeUnavailable, "12355")
}

func TestFactoryFailureIsRetried(t *testing.T) {
	attempts := 0
	fm := &fakeModel{reply: "回来了"}
	svc := NewService(config.AIConfig{APIKey: "k"}, WithModelFactory(func(context.Context, config.AIConfig) (model.BaseChatModel, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("dial tcp: connection refused")
		}
		return fm, nil
	}))

	assert.Equal(t, NoticeUnavailable, svc.Converse(context.Background(), nil, "你好"))
	assert.Equal(t, "回来了", svc.Converse(context.Background(), nil, "你好"))
	assert.Equal(t, 2, attempts)
}

func TestReflect(t *testing.T) {
	fm := &fakeModel{reply: "累的时候允许自己停下来，也是一种照顾自己的方式。"}
	svc := newTestService(fm, nil)

	got := svc.Reflect(context.Background(), "今天很累，什么都不想做")
	assert.Equal(t, fm.reply, got)

	input := fm.lastInput()
	require.Len(t, input, 1)
	assert.Equal(t, schema.User, input[0].Role)
	assert.Contains(t, input[0].Content, `"今天很累，什么都不想做"`)
}

func TestReflectFallbacks(t *testing.T) {
	failing := newTestService(&fakeModel{err: errors.New("boom")}, nil)
	assert.Equal(t, ReflectionFailed, failing.Reflect(context.Background(), "心情很低落的一天"))

	empty := newTestService(&fakeModel{reply: ""}, nil)
	assert.Equal(t, ReflectionEmpty, empty.Reflect(context.Background(), "心情很低落的一天"))

	missing := NewService(config.AIConfig{})
	assert.Equal(t, ReflectionFailed, missing.Reflect(context.Background(), "心情很低落的一天"))
}

func TestWindow(t *testing.T) {
	msgs := transcript(4)
	assert.Len(t, Window(msgs, 15), 4)
	assert.Equal(t, msgs[2:], Window(msgs, 2))
	assert.Len(t, Window(msgs, 0), 4)
}

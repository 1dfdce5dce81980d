package shell

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zhouzirui/xinling/backend/internal/storage"
)

var ErrInvalidView = errors.New("unknown view")

// View 是顶层视图标签。
type View string

const (
	ViewChat      View = "chat"
	ViewMood      View = "mood"
	ViewResources View = "resources"
)

// DisclaimerText 在首次使用时展示，确认后不再出现。
const DisclaimerText = "心灵 (XinLing) 是一个 AI 心理陪伴助手，可以倾听你、陪你整理情绪，但它不是医生，也不能替代专业的心理咨询或治疗。" +
	"如果你正处于危机之中或有伤害自己的想法，请立即拨打全国心理危机干预热线 400-161-9995 或青少年服务热线 12355，或前往最近的医院。"

// LocalDataNote tells the user where their data lives.
const LocalDataNote = "您的心情日记仅保存在本服务的存储中，聊天记录不会被保存。"

// ParseView validates a view tag.
func ParseView(raw string) (View, error) {
	switch v := View(raw); v {
	case ViewChat, ViewMood, ViewResources:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidView, raw)
	}
}

// Shell holds the current view and gates first use behind the disclaimer.
type Shell struct {
	store storage.Store

	mu      sync.RWMutex
	current View
}

// New starts on the chat view.
func New(store storage.Store) *Shell {
	return &Shell{store: store, current: ViewChat}
}

// Current returns the active view.
func (s *Shell) Current() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Switch changes the active view.
func (s *Shell) Switch(raw string) (View, error) {
	view, err := ParseView(raw)
	if err != nil {
		return s.Current(), err
	}

	s.mu.Lock()
	s.current = view
	s.mu.Unlock()
	return view, nil
}

// DisclaimerRequired reports whether the acknowledgement flag is absent.
// An unreadable store shows the disclaimer again.
func (s *Shell) DisclaimerRequired(ctx context.Context) bool {
	_, ok, err := s.store.Get(ctx, storage.KeyDisclaimerSeen)
	return err != nil || !ok
}

// AcceptDisclaimer persists the one-time acknowledgement.
func (s *Shell) AcceptDisclaimer(ctx context.Context) error {
	if err := s.store.Set(ctx, storage.KeyDisclaimerSeen, "true"); err != nil {
		return fmt.Errorf("persist disclaimer flag: %w", err)
	}
	return nil
}

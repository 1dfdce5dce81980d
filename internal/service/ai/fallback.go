package ai

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"google.golang.org/genai"
)

var (
	ErrMissingCredential = errors.New("dialogue credential not configured")
	ErrEmptyResponse     = errors.New("dialogue backend returned empty response")
)

// Outcome 归类一次远程调用的结果，也用作指标标签。
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeMissingKey  Outcome = "missing_key"
	OutcomeInvalidKey  Outcome = "invalid_key"
	OutcomeEmpty       Outcome = "empty"
	OutcomeUnavailable Outcome = "unavailable"
)

// 面向用户的固定回退文案。
const (
	NoticeMissingKey  = "⚠️ 系统错误：未检测到 API Key。请在服务端设置环境变量 API_KEY。"
	NoticeInvalidKey  = "⚠️ 系统错误：API Key 无效。请检查服务端的环境变量设置。"
	NoticeEmpty       = "抱歉，我刚刚走神了。能请你再说一遍吗？🌱"
	NoticeUnavailable = "我现在连接有点不稳定，请稍后再试。如果你需要紧急帮助，请务必拨打 12355。🧡"

	ReflectionEmpty  = "谢谢你的分享。记录心情是变好的第一步。"
	ReflectionFailed = "已保存。谢谢你的记录。"
)

var invalidKeyMarkers = []string{
	"api key not valid",
	"permission_denied",
	"unauthenticated",
	"invalid api key",
}

// authStatusPattern matches 401/403 only where they read as a status code.
var authStatusPattern = regexp.MustCompile(`(?:status|code|error|http)[\s:=]*40[13]\b`)

// Classify maps an error from the dialogue backend onto an Outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrMissingCredential):
		return OutcomeMissingKey
	case errors.Is(err, ErrEmptyResponse):
		return OutcomeEmpty
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return OutcomeInvalidKey
		}
		return OutcomeUnavailable
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range invalidKeyMarkers {
		if strings.Contains(msg, marker) {
			return OutcomeInvalidKey
		}
	}
	if authStatusPattern.MatchString(msg) {
		return OutcomeInvalidKey
	}
	return OutcomeUnavailable
}

// conversationNotice returns the chat-facing fallback for a failed outcome.
func conversationNotice(outcome Outcome) string {
	switch outcome {
	case OutcomeMissingKey:
		return NoticeMissingKey
	case OutcomeInvalidKey:
		return NoticeInvalidKey
	case OutcomeEmpty:
		return NoticeEmpty
	default:
		return NoticeUnavailable
	}
}

func reflectionNotice(outcome Outcome) string {
	if outcome == OutcomeEmpty {
		return ReflectionEmpty
	}
	return ReflectionFailed
}

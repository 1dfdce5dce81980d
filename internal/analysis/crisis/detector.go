package crisis

import (
	"sort"
	"strings"
)

// Level 表示本地危机筛查的结果等级。
type Level string

const (
	None    Level = "none"
	Concern Level = "concern"
	Crisis  Level = "crisis"
)

// Category 是命中的风险类别。
type Category string

const (
	Suicide      Category = "suicide"
	SelfHarm     Category = "self_harm"
	Hopelessness Category = "hopelessness"
)

// Signal 给出筛查结果以及命中的关键词，关键词按字典序排列。
type Signal struct {
	Level      Level      `json:"level"`
	Categories []Category `json:"categories,omitempty"`
	Matched    []string   `json:"matched,omitempty"`
	Score      int        `json:"score"`
}

// Flagged reports whether the signal warrants surfacing hotlines.
func (s Signal) Flagged() bool {
	return s.Level != None
}

var keywordBuckets = map[Category][]string{
	Suicide: {
		"自杀", "轻生", "不想活", "活不下去", "想死", "去死", "结束生命", "结束这一切", "了结自己", "跳楼", "遗书",
		"suicide", "kill myself", "end my life", "want to die", "i want to end it", "better off dead",
	},
	SelfHarm: {
		"自残", "自伤", "割腕", "伤害自己", "划伤自己", "割自己", "吞药", "安眠药",
		"self-harm", "self harm", "cut myself", "hurt myself", "overdose",
	},
	Hopelessness: {
		"绝望", "没有希望", "没有意义", "撑不下去", "坚持不下去", "没人在乎", "消失就好了", "解脱",
		"hopeless", "no point", "can't go on", "nobody cares", "worthless",
	},
}

var categoryWeight = map[Category]int{
	Suicide:      5,
	SelfHarm:     4,
	Hopelessness: 2,
}

// crisisThreshold 达到该分数即视为危机，任何自杀或自伤命中都会超过它。
const crisisThreshold = 4

// Detect 对一段用户输入做关键词筛查，只用于提示热线资源，不替代模型的危机协议。
func Detect(text string) Signal {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Signal{Level: None}
	}

	var (
		score      int
		matched    []string
		categories []Category
	)
	for _, category := range []Category{Suicide, SelfHarm, Hopelessness} {
		hit := false
		for _, word := range keywordBuckets[category] {
			if strings.Contains(normalized, word) {
				score += categoryWeight[category]
				matched = append(matched, word)
				hit = true
			}
		}
		if hit {
			categories = append(categories, category)
		}
	}

	if score == 0 {
		return Signal{Level: None}
	}

	sort.Strings(matched)
	level := Concern
	if score >= crisisThreshold {
		level = Crisis
	}
	return Signal{Level: level, Categories: categories, Matched: matched, Score: score}
}

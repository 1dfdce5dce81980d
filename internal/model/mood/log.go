package mood

import "time"

// Log 是一条心情日记。除 AIAnalysis 外创建后不再修改。
type Log struct {
	ID         string `json:"id"`
	Timestamp  int64  `json:"timestamp"` // epoch millis
	Score      int    `json:"score"`
	Note       string `json:"note"`
	AIAnalysis string `json:"aiAnalysis,omitempty"`
}

// Time returns the entry timestamp.
func (l Log) Time() time.Time {
	return time.UnixMilli(l.Timestamp)
}

// Level 是五个固定心情等级之一，从非常消极到非常积极。
type Level struct {
	Score int    `json:"score"`
	Label string `json:"label"`
	Emoji string `json:"emoji"`
}

const (
	MinScore = 1
	MaxScore = 5
)

var levels = []Level{
	{Score: 1, Label: "很糟糕", Emoji: "😫"},
	{Score: 2, Label: "不太好", Emoji: "😔"},
	{Score: 3, Label: "一般", Emoji: "😐"},
	{Score: 4, Label: "还不错", Emoji: "🙂"},
	{Score: 5, Label: "很棒", Emoji: "😄"},
}

// Levels lists the supported mood levels in ascending order.
func Levels() []Level {
	return append([]Level(nil), levels...)
}

// LevelFor looks up the level for score.
func LevelFor(score int) (Level, bool) {
	if score < MinScore || score > MaxScore {
		return Level{}, false
	}
	return levels[score-MinScore], true
}

// TrendPoint 是趋势图上的一个点。
type TrendPoint struct {
	Date  string `json:"date"`
	Score int    `json:"score"`
}

const (
	// TrendWindow caps the trend series at the most recent entries.
	TrendWindow = 7
	// TrendPlaceholder is shown instead of a chart when there are fewer than two points.
	TrendPlaceholder = "记录更多数据以查看趋势"
)

// ChartReady reports whether n points are enough to draw a line.
func ChartReady(n int) bool {
	return n >= 2
}

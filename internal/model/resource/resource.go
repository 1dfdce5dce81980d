package resource

// Type 区分资源的展示方式。
type Type string

const (
	TypeArticle Type = "article"
	TypeAudio   Type = "audio"
	TypeHotline Type = "hotline"
)

// Resource 是构建期固定的静态资源条目。
type Resource struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Type        Type   `json:"type" yaml:"type"`
	Link        string `json:"link,omitempty" yaml:"link"`
	Phone       string `json:"phone,omitempty" yaml:"phone"`
	Duration    string `json:"duration,omitempty" yaml:"duration"`
}

// ValidType reports whether t is one of the known resource types.
func ValidType(t Type) bool {
	switch t {
	case TypeArticle, TypeAudio, TypeHotline:
		return true
	default:
		return false
	}
}

// Seed provides the built-in resource directory.
func Seed() []Resource {
	return []Resource{
		{
			ID:          "crisis-1",
			Title:       "全国心理危机干预热线",
			Description: "24小时免费热线，提供紧急心理支持。",
			Type:        TypeHotline,
			Phone:       "400-161-9995",
		},
		{
			ID:          "crisis-2",
			Title:       "青少年公共服务热线",
			Description: "专门针对青少年的心理咨询与法律帮助。",
			Type:        TypeHotline,
			Phone:       "12355",
		},
		{
			ID:          "med-1",
			Title:       "3分钟呼吸练习",
			Description: "通过简单的呼吸引导，快速缓解急性焦虑。吸气4秒，屏息7秒，呼气8秒。",
			Type:        TypeAudio,
			Duration:    "3 min",
		},
		{
			ID:          "art-1",
			Title:       "了解认知行为疗法 (CBT)",
			Description: "我们的想法如何影响我们的情绪？了解识别负面思维模式的基础知识。",
			Type:        TypeArticle,
			Link:        "#",
		},
		{
			ID:          "med-2",
			Title:       "睡前身体扫描",
			Description: "帮助你在睡前放松全身肌肉，改善睡眠质量。",
			Type:        TypeAudio,
			Duration:    "10 min",
		},
	}
}

// Package screen 提供屏幕模板匹配与当前屏幕识别
package screen

// Template 屏幕模板
// 一张参考图代表应用的一个可识别屏幕状态
type Template struct {
	// ID 模板标识
	ID int64 `json:"id"`
	// Name 模板名称，唯一
	Name string `json:"name"`
	// Filename 参考图文件名
	Filename string `json:"filename"`
	// Path 参考图完整路径
	Path string `json:"path"`
	// Threshold 匹配置信度阈值 (0-1)
	Threshold float64 `json:"threshold"`
	// Priority 优先级，数值大者优先
	Priority int `json:"priority"`
}

// Location 匹配区域 (左上角坐标 + 宽高)
type Location struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// MatchResult 单个模板的匹配结果
type MatchResult struct {
	// Confidence 匹配置信度 (TM_CCOEFF_NORMED 峰值)
	Confidence float64 `json:"confidence"`
	// Location 匹配区域，未达阈值时可能为空
	Location *Location `json:"location,omitempty"`
	// Scale 取得最佳置信度的模板缩放比例
	Scale float64 `json:"scale"`
	// Matched 置信度是否达到阈值
	Matched bool `json:"matched"`
}

// Candidate 达到阈值的候选屏幕
type Candidate struct {
	TemplateID   int64     `json:"template_id"`
	TemplateName string    `json:"template_name"`
	Confidence   float64   `json:"confidence"`
	Location     *Location `json:"location,omitempty"`
	Priority     int       `json:"priority"`
	Scale        float64   `json:"scale"`
}

// DetectionResult 一次屏幕识别的结果
// Success 为 false 仅表示识别本身失败 (无模板/截图不可读)；
// 没有任何屏幕匹配是正常结果，Success 为 true 且 Screen 为空
type DetectionResult struct {
	Success    bool        `json:"success"`
	Screen     string      `json:"screen,omitempty"`
	TemplateID int64       `json:"template_id,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
	Location   *Location   `json:"location,omitempty"`
	Scale      float64     `json:"scale,omitempty"`
	AllMatches []Candidate `json:"all_matches,omitempty"`
	Message    string      `json:"message,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Detected 是否识别出了屏幕
func (r *DetectionResult) Detected() bool {
	return r != nil && r.Success && r.Screen != ""
}

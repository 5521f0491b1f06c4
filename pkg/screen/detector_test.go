package screen

import (
	"errors"
	"fmt"
	"testing"
)

// fakeTemplates 固定模板列表的 TemplateSource
type fakeTemplates struct {
	templates []Template
	err       error
}

func (f *fakeTemplates) ListTemplates() ([]Template, error) {
	return f.templates, f.err
}

// stubMatch 按模板名返回预设置信度的匹配函数
func stubMatch(confidences map[string]float64) MatchFunc {
	return func(screenshotPath string, tpl Template, threshold float64, multiscale bool, scales []float64) (*MatchResult, error) {
		conf, ok := confidences[tpl.Name]
		if !ok {
			return &MatchResult{Confidence: 0, Scale: 1.0}, nil
		}
		r := &MatchResult{Confidence: conf, Scale: 1.0, Matched: conf >= threshold}
		if r.Matched {
			r.Location = &Location{X: 10, Y: 20, Width: 100, Height: 50}
		}
		return r, nil
	}
}

func newTestDetector(templates []Template, confidences map[string]float64) *Detector {
	return NewDetectorWithMatch(&fakeTemplates{templates: templates}, stubMatch(confidences))
}

func TestDetectPriorityBeatsConfidence(t *testing.T) {
	// noload 优先级高但置信度低，仍应胜出
	templates := []Template{
		{ID: 3, Name: "noload", Threshold: 0.7, Priority: 10},
		{ID: 1, Name: "login", Threshold: 0.7, Priority: 5},
	}
	d := newTestDetector(templates, map[string]float64{
		"noload": 0.75,
		"login":  0.95,
	})

	result := d.Detect("screenshot.png")

	if !result.Success {
		t.Fatalf("识别不应失败: %s", result.Error)
	}
	if result.Screen != "noload" {
		t.Errorf("胜者应为高优先级的 noload, 实际 %s", result.Screen)
	}
	if result.TemplateID != 3 {
		t.Errorf("TemplateID 不匹配: 期望 3, 实际 %d", result.TemplateID)
	}
	if len(result.AllMatches) != 2 {
		t.Fatalf("候选列表应有 2 条, 实际 %d", len(result.AllMatches))
	}
	// 候选列表同样按优先级降序
	if result.AllMatches[0].TemplateName != "noload" || result.AllMatches[1].TemplateName != "login" {
		t.Errorf("候选排序不匹配: %+v", result.AllMatches)
	}
}

func TestDetectConfidenceBreaksTie(t *testing.T) {
	templates := []Template{
		{ID: 5, Name: "nagload2", Threshold: 0.7, Priority: 6},
		{ID: 6, Name: "nagload3", Threshold: 0.7, Priority: 6},
	}
	d := newTestDetector(templates, map[string]float64{
		"nagload2": 0.81,
		"nagload3": 0.92,
	})

	result := d.Detect("screenshot.png")

	if result.Screen != "nagload3" {
		t.Errorf("同优先级应按置信度取胜: 期望 nagload3, 实际 %s", result.Screen)
	}
	if result.Confidence != 0.92 {
		t.Errorf("置信度不匹配: 期望 0.92, 实际 %v", result.Confidence)
	}
}

func TestDetectBelowThresholdExcluded(t *testing.T) {
	templates := []Template{
		{ID: 1, Name: "login", Threshold: 0.7, Priority: 5},
		{ID: 2, Name: "bionag", Threshold: 0.9, Priority: 8},
	}
	// bionag 置信度高于 login 但低于自身阈值
	d := newTestDetector(templates, map[string]float64{
		"login":  0.75,
		"bionag": 0.85,
	})

	result := d.Detect("screenshot.png")

	if result.Screen != "login" {
		t.Errorf("未达阈值的模板不应成为候选: 期望 login, 实际 %s", result.Screen)
	}
	if len(result.AllMatches) != 1 {
		t.Errorf("候选列表应只有 1 条, 实际 %d", len(result.AllMatches))
	}
}

func TestDetectThresholdOverride(t *testing.T) {
	templates := []Template{
		{ID: 1, Name: "login", Threshold: 0.7, Priority: 5},
	}
	d := newTestDetector(templates, map[string]float64{"login": 0.75})

	// 覆盖阈值抬高到 0.8 后不再匹配
	result := d.Detect("screenshot.png", WithThreshold(0.8))

	if !result.Success {
		t.Fatalf("识别不应失败: %s", result.Error)
	}
	if result.Detected() {
		t.Errorf("覆盖阈值后不应匹配, 实际识别为 %s", result.Screen)
	}
}

func TestDetectNoMatchIsNotFailure(t *testing.T) {
	templates := []Template{
		{ID: 1, Name: "login", Threshold: 0.7, Priority: 5},
	}
	d := newTestDetector(templates, map[string]float64{"login": 0.3})

	result := d.Detect("screenshot.png")

	if !result.Success {
		t.Error("无匹配是正常结果, Success 应为 true")
	}
	if result.Detected() {
		t.Error("不应识别出屏幕")
	}
	if result.Message == "" {
		t.Error("无匹配时应有说明消息")
	}
	if result.Error != "" {
		t.Errorf("无匹配不应有错误: %s", result.Error)
	}
}

func TestDetectEmptyTemplateLibrary(t *testing.T) {
	d := NewDetector(&fakeTemplates{})

	result := d.Detect("screenshot.png")

	if result.Success {
		t.Error("模板库为空应为失败")
	}
	if result.Error != ErrNoTemplates.Error() {
		t.Errorf("错误信息不匹配: %s", result.Error)
	}
}

func TestDetectTemplateSourceError(t *testing.T) {
	d := NewDetector(&fakeTemplates{err: errors.New("数据库连接断开")})

	result := d.Detect("screenshot.png")

	if result.Success {
		t.Error("模板加载失败应为失败")
	}
	if result.Error == "" {
		t.Error("应携带错误信息")
	}
}

func TestDetectSkipsUnreadableTemplate(t *testing.T) {
	templates := []Template{
		{ID: 1, Name: "broken", Threshold: 0.7, Priority: 9},
		{ID: 2, Name: "login", Threshold: 0.7, Priority: 5},
	}
	d := NewDetectorWithMatch(&fakeTemplates{templates: templates},
		func(screenshotPath string, tpl Template, threshold float64, multiscale bool, scales []float64) (*MatchResult, error) {
			if tpl.Name == "broken" {
				return nil, fmt.Errorf("读取图像失败: %s", tpl.Path)
			}
			return &MatchResult{Confidence: 0.9, Scale: 1.0, Matched: true}, nil
		})

	result := d.Detect("screenshot.png")

	if !result.Success {
		t.Fatalf("单个模板出错不应中断识别: %s", result.Error)
	}
	if result.Screen != "login" {
		t.Errorf("应跳过出错模板继续匹配: 期望 login, 实际 %s", result.Screen)
	}
}

func TestSortCandidatesStable(t *testing.T) {
	candidates := []Candidate{
		{TemplateName: "a", Priority: 3, Confidence: 0.8},
		{TemplateName: "b", Priority: 6, Confidence: 0.71},
		{TemplateName: "c", Priority: 6, Confidence: 0.71},
		{TemplateName: "d", Priority: 10, Confidence: 0.7},
	}
	sortCandidates(candidates)

	wantOrder := []string{"d", "b", "c", "a"}
	for i, want := range wantOrder {
		if candidates[i].TemplateName != want {
			t.Fatalf("排序不匹配: 位置 %d 期望 %s, 实际 %s", i, want, candidates[i].TemplateName)
		}
	}
}

func TestDetectedHelper(t *testing.T) {
	var nilResult *DetectionResult
	if nilResult.Detected() {
		t.Error("nil 结果不应视为已识别")
	}
	if (&DetectionResult{Success: true}).Detected() {
		t.Error("无屏幕名不应视为已识别")
	}
	if !(&DetectionResult{Success: true, Screen: "login"}).Detected() {
		t.Error("有屏幕名应视为已识别")
	}
}

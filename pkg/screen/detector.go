package screen

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/droidauto/screenworker/internal/logger"
)

// ErrNoTemplates 模板库为空
var ErrNoTemplates = errors.New("没有可用的屏幕模板")

// TemplateSource 模板来源，按优先级降序返回
type TemplateSource interface {
	ListTemplates() ([]Template, error)
}

// MatchFunc 单模板匹配函数
// 默认实现基于 gocv 模板匹配，可替换为其他匹配后端
type MatchFunc func(screenshotPath string, tpl Template, threshold float64, multiscale bool, scales []float64) (*MatchResult, error)

// defaultMatch 默认匹配实现
func defaultMatch(screenshotPath string, tpl Template, threshold float64, multiscale bool, scales []float64) (*MatchResult, error) {
	if multiscale {
		return MatchTemplateMultiScale(screenshotPath, tpl.Path, threshold, scales)
	}
	return MatchTemplate(screenshotPath, tpl.Path, threshold)
}

// Detector 屏幕识别器
// 无内部可变状态，同一实例可被多个设备并发使用
type Detector struct {
	templates TemplateSource
	log       *logger.Logger
	match     MatchFunc
}

// NewDetector 创建屏幕识别器
func NewDetector(templates TemplateSource) *Detector {
	return NewDetectorWithMatch(templates, defaultMatch)
}

// NewDetectorWithMatch 使用自定义匹配实现创建屏幕识别器
func NewDetectorWithMatch(templates TemplateSource, match MatchFunc) *Detector {
	if match == nil {
		match = defaultMatch
	}
	return &Detector{
		templates: templates,
		log:       logger.Default(),
		match:     match,
	}
}

// Detect 识别截图当前显示的屏幕
// 按优先级降序逐模板匹配，达到阈值者进入候选；
// 胜者按 (优先级降序, 置信度降序) 选出，同时返回完整候选列表。
// 没有任何候选不算失败，Success 为 true 且 Screen 为空
func (d *Detector) Detect(screenshotPath string, opts ...DetectOption) *DetectionResult {
	start := time.Now()

	cfg := defaultDetectConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	templates, err := d.templates.ListTemplates()
	if err != nil {
		return &DetectionResult{
			Success: false,
			Error:   fmt.Sprintf("加载模板失败: %v", err),
		}
	}
	if len(templates) == 0 {
		return &DetectionResult{
			Success: false,
			Error:   ErrNoTemplates.Error(),
		}
	}

	var candidates []Candidate
	for _, tpl := range templates {
		threshold := tpl.Threshold
		if cfg.threshold != nil {
			threshold = *cfg.threshold
		}

		match, err := d.match(screenshotPath, tpl, threshold, cfg.useMultiscale, cfg.scales)
		if err != nil {
			// 单个模板图不可读只跳过该模板，不中断其余匹配
			d.log.Warn("模板 %s 匹配出错，跳过: %v", tpl.Name, err)
			continue
		}
		if match == nil || !match.Matched {
			continue
		}

		candidates = append(candidates, Candidate{
			TemplateID:   tpl.ID,
			TemplateName: tpl.Name,
			Confidence:   match.Confidence,
			Location:     match.Location,
			Priority:     tpl.Priority,
			Scale:        match.Scale,
		})
	}

	elapsed := float64(time.Since(start).Milliseconds())

	if len(candidates) == 0 {
		d.log.LogEvent("DET", "", true, elapsed, "未识别出已知屏幕")
		return &DetectionResult{
			Success: true,
			Message: "未识别出已知屏幕",
		}
	}

	sortCandidates(candidates)
	best := candidates[0]

	d.log.LogEvent("DET", "", true, elapsed,
		fmt.Sprintf("screen=%s confidence=%.4f scale=%.2f candidates=%d",
			best.TemplateName, best.Confidence, best.Scale, len(candidates)))

	return &DetectionResult{
		Success:    true,
		Screen:     best.TemplateName,
		TemplateID: best.TemplateID,
		Confidence: best.Confidence,
		Location:   best.Location,
		Scale:      best.Scale,
		AllMatches: candidates,
	}
}

// sortCandidates 候选排序: 优先级降序，同优先级按置信度降序
// 优先级是主排序键，视觉相似的屏幕 (如叠放的对话框) 靠管理员指定的
// 优先级强制区分，不受原始得分影响
func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].Confidence > candidates[j].Confidence
	})
}

package screen

// detectConfig 识别配置
type detectConfig struct {
	threshold     *float64 // 阈值覆盖，nil 时用各模板自身阈值
	useMultiscale bool
	scales        []float64
}

// defaultDetectConfig 默认识别配置
func defaultDetectConfig() *detectConfig {
	return &detectConfig{
		useMultiscale: true,
		scales:        DefaultScales,
	}
}

// DetectOption 识别选项
type DetectOption func(*detectConfig)

// WithThreshold 用统一阈值覆盖各模板自身阈值
func WithThreshold(threshold float64) DetectOption {
	return func(c *detectConfig) {
		c.threshold = &threshold
	}
}

// WithSingleScale 关闭多尺度匹配，只按模板原始尺寸匹配
func WithSingleScale() DetectOption {
	return func(c *detectConfig) {
		c.useMultiscale = false
	}
}

// WithScales 指定多尺度匹配的缩放比例集合
func WithScales(scales []float64) DetectOption {
	return func(c *detectConfig) {
		if len(scales) > 0 {
			c.scales = scales
		}
	}
}

package screen

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// DefaultScales 默认的模板缩放比例集合
// 模板在一种分辨率下采集，其他像素密度的设备需要缩放补偿
var DefaultScales = []float64{0.8, 0.9, 1.0, 1.1, 1.2}

// readImage 读取图像文件
func readImage(filename string) (gocv.Mat, error) {
	mat := gocv.IMRead(filename, gocv.IMReadColor)
	if mat.Empty() {
		return mat, fmt.Errorf("无法读取图像: %s", filename)
	}
	return mat, nil
}

// toGray 转换为灰度图
func toGray(src gocv.Mat) gocv.Mat {
	if src.Channels() == 1 {
		return src.Clone()
	}
	dst := gocv.NewMat()
	gocv.CvtColor(src, &dst, gocv.ColorBGRToGray)
	return dst
}

// matchGray 对一对灰度图执行归一化互相关匹配，返回峰值与位置
func matchGray(sourceGray, templateGray gocv.Mat) (float64, image.Point) {
	result := gocv.NewMat()
	defer result.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(sourceGray, templateGray, &result, gocv.TmCcoeffNormed, mask)

	_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)
	return float64(maxVal), maxLoc
}

// MatchTemplate 在截图中按原始尺寸匹配模板
// 置信度为 TM_CCOEFF_NORMED 峰值；达到阈值时填充 Location
func MatchTemplate(screenshotPath, templatePath string, threshold float64) (*MatchResult, error) {
	screenshot, err := readImage(screenshotPath)
	if err != nil {
		return nil, err
	}
	defer screenshot.Close()

	template, err := readImage(templatePath)
	if err != nil {
		return nil, err
	}
	defer template.Close()

	if template.Rows() > screenshot.Rows() || template.Cols() > screenshot.Cols() {
		return nil, fmt.Errorf("模板尺寸大于截图: %s", templatePath)
	}

	screenshotGray := toGray(screenshot)
	defer screenshotGray.Close()
	templateGray := toGray(template)
	defer templateGray.Close()

	confidence, maxLoc := matchGray(screenshotGray, templateGray)

	match := &MatchResult{
		Confidence: confidence,
		Scale:      1.0,
		Matched:    confidence >= threshold,
	}
	if match.Matched {
		match.Location = &Location{
			X:      maxLoc.X,
			Y:      maxLoc.Y,
			Width:  templateGray.Cols(),
			Height: templateGray.Rows(),
		}
	}
	return match, nil
}

// MatchTemplateMultiScale 在截图中多尺度匹配模板
// 只缩放模板不缩放截图，逐尺度匹配取置信度最高者；
// 缩放后超出截图尺寸的比例直接跳过，全部跳过时返回 nil
func MatchTemplateMultiScale(screenshotPath, templatePath string, threshold float64, scales []float64) (*MatchResult, error) {
	if len(scales) == 0 {
		scales = DefaultScales
	}

	screenshot, err := readImage(screenshotPath)
	if err != nil {
		return nil, err
	}
	defer screenshot.Close()

	template, err := readImage(templatePath)
	if err != nil {
		return nil, err
	}
	defer template.Close()

	// 截图只转一次灰度
	screenshotGray := toGray(screenshot)
	defer screenshotGray.Close()

	var best *MatchResult

	for _, scale := range scales {
		newW := int(float64(template.Cols()) * scale)
		newH := int(float64(template.Rows()) * scale)

		if newH > screenshot.Rows() || newW > screenshot.Cols() {
			continue
		}
		if newW < 1 || newH < 1 {
			continue
		}

		resized := gocv.NewMat()
		gocv.Resize(template, &resized, image.Point{X: newW, Y: newH}, 0, 0, gocv.InterpolationArea)

		resizedGray := toGray(resized)
		confidence, maxLoc := matchGray(screenshotGray, resizedGray)
		resizedGray.Close()
		resized.Close()

		if best == nil || confidence > best.Confidence {
			best = &MatchResult{
				Confidence: confidence,
				Location: &Location{
					X:      maxLoc.X,
					Y:      maxLoc.Y,
					Width:  newW,
					Height: newH,
				},
				Scale:   scale,
				Matched: confidence >= threshold,
			}
		}
	}

	return best, nil
}

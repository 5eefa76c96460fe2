package utility

import (
	"fmt"
	"image"
	"log"

	"github.com/EdlinOrg/prominentcolor"
)

type ColorService struct{}

func NewColorService() *ColorService {
	log.Println("[ColorService] 初始化颜色服务：使用 'prominentcolor' (K-Means算法) 来查找预览图的主色调。")
	return &ColorService{}
}

// GetPrimaryColor 返回 img 的主色调，格式为 "#rrggbb"。
func (s *ColorService) GetPrimaryColor(img image.Image) (string, error) {
	if img == nil || img.Bounds().Empty() {
		return "", fmt.Errorf("没有可分析的图像")
	}

	colors, err := prominentcolor.KmeansWithArgs(
		prominentcolor.ArgumentNoCropping,
		img,
	)
	if err != nil {
		return "", fmt.Errorf("使用 prominentcolor (K-Means) 提取主色调失败: %w", err)
	}

	if len(colors) == 0 {
		return "", fmt.Errorf("prominentcolor (K-Means) 未能找到任何主色调")
	}

	dominantColor := colors[0].Color

	return fmt.Sprintf("#%02x%02x%02x", dominantColor.R, dominantColor.G, dominantColor.B), nil
}

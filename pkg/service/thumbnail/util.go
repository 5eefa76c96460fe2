/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-07-12 16:09:46
 * @LastEditTime: 2025-10-14 18:10:12
 * @LastEditors: 安知鱼
 */
package thumbnail

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ParseCommaSeparatedString 将 "nef, cr2,.ARW" 形式的字符串拆分为扩展名列表。
func ParseCommaSeparatedString(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(strings.ReplaceAll(s, " ", ""), ",")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// extSet 将扩展名列表规范化为带点的小写形式
func extSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[strings.ToLower(ext)] = true
	}
	return set
}

// GenerateCacheName 根据文件的公共ID和原始文件名生成导出文件名。
func GenerateCacheName(filePublicID, originalName, ext string) string {
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	// 格式: {base}_{file_public_id}.{ext}
	return fmt.Sprintf("%s_%s.%s", base, filePublicID, ext)
}

// GetCachePath 构建导出文件的完整路径，并自动创建不存在的目录。
func GetCachePath(outputDir, fileName string) (string, error) {
	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("无法创建输出目录 '%s': %w", outputDir, err)
	}
	return filepath.Join(outputDir, fileName), nil
}

package rawthumb

import (
	"sort"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/domain/model"
)

// DefaultSkip 是默认跳过的“最小”记录数。多数相机的第一张 JPEG 是极小的
// 索引缩略图，跳过它即可得到中等尺寸的预览。
const DefaultSkip = 1

// Policy 控制从多条候选记录中选择哪一条
type Policy struct {
	// Skip 按长度升序排序后跳过的记录数
	Skip int
}

// DefaultPolicy 返回默认的选择策略
func DefaultPolicy() Policy {
	return Policy{Skip: DefaultSkip}
}

// Selector 负责从缩略图目录中挑选一条 JPEG 记录
type Selector struct {
	policy Policy
}

// NewSelector 创建一个选择器，负数 Skip 会被视为 0
func NewSelector(policy Policy) *Selector {
	if policy.Skip < 0 {
		policy.Skip = 0
	}
	return &Selector{policy: policy}
}

// Select 只考虑 JPEG 记录，按 Length 稳定升序排序。
// 记录数大于 Skip+1 时返回下标为 Skip 的记录，否则返回最大的一条。
func (s *Selector) Select(dir *model.ThumbnailDirectory) (model.ThumbnailRecord, error) {
	candidates := dir.JPEG()
	if len(candidates) == 0 {
		return model.ThumbnailRecord{}, ErrNoThumbnailFound
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Length < candidates[j].Length
	})

	if len(candidates) > s.policy.Skip+1 {
		return candidates[s.policy.Skip], nil
	}
	return candidates[len(candidates)-1], nil
}

// SelectFile 解析 path 的目录并按策略挑选记录
func (s *Selector) SelectFile(path string) (model.ThumbnailRecord, error) {
	dir, err := ReadDirectory(path)
	if err != nil {
		return model.ThumbnailRecord{}, err
	}
	return s.Select(dir)
}

var defaultSelector = NewSelector(DefaultPolicy())

// SelectThumbnail 使用默认策略为 path 选择一条 JPEG 预览记录
func SelectThumbnail(path string) (model.ThumbnailRecord, error) {
	return defaultSelector.SelectFile(path)
}

package gallery

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/constant"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/idgen"
)

// Index 保存最近一次扫描的结果。只保存元信息，预览像素每次请求时重新提取。
type Index struct {
	scanner *Scanner
	root    string

	scanMu sync.Mutex

	mu       sync.RWMutex
	snapshot *model.GallerySnapshot
	byID     map[string]*model.GalleryEntry
}

// NewIndex 创建一个尚未扫描的索引
func NewIndex(scanner *Scanner, root string) *Index {
	return &Index{
		scanner: scanner,
		root:    root,
		byID:    make(map[string]*model.GalleryEntry),
	}
}

// Root 返回画廊根目录
func (i *Index) Root() string {
	return i.root
}

// Rescan 重新扫描根目录并整体替换当前结果。并发调用会依次执行。
func (i *Index) Rescan(ctx context.Context) (*model.GallerySnapshot, error) {
	i.scanMu.Lock()
	defer i.scanMu.Unlock()

	snapshot, err := i.scanner.Scan(ctx, i.root)
	if err != nil {
		log.Printf("[GalleryIndex] 错误: 扫描 '%s' 失败: %v", i.root, err)
		return nil, err
	}

	byID := make(map[string]*model.GalleryEntry, len(snapshot.Entries))
	for _, e := range snapshot.Entries {
		byID[e.PublicID] = e
	}

	i.mu.Lock()
	i.snapshot = snapshot
	i.byID = byID
	i.mu.Unlock()

	return snapshot, nil
}

// Snapshot 返回当前结果，尚未扫描时返回一个空结果
func (i *Index) Snapshot() *model.GallerySnapshot {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.snapshot == nil {
		return &model.GallerySnapshot{
			Root:    i.root,
			Columns: i.scanner.Columns(),
			Entries: []*model.GalleryEntry{},
		}
	}
	return i.snapshot
}

// Lookup 按公共 ID 查找条目
func (i *Index) Lookup(publicID string) (*model.GalleryEntry, error) {
	_, entityType, err := idgen.DecodePublicID(publicID)
	if err != nil || entityType != idgen.EntityTypeRawFile {
		return nil, fmt.Errorf("'%s': %w", publicID, constant.ErrInvalidPublicID)
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	entry, ok := i.byID[publicID]
	if !ok {
		return nil, fmt.Errorf("画廊条目 '%s': %w", publicID, constant.ErrNotFound)
	}
	return entry, nil
}

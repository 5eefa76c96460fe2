package rawthumb

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"sync"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/domain/model"
)

var (
	exifOnce    sync.Once
	exifMapping *exifcommon.IfdMapping
	exifTags    *exif.TagIndex
	exifInitErr error
)

// exifIndexes 构建全局共享的 IFD 映射与标签索引。
// 标准标签之外额外登记 CR2 切片标签，否则它会被当作未知标签跳过。
func exifIndexes() (*exifcommon.IfdMapping, *exif.TagIndex, error) {
	exifOnce.Do(func() {
		im, err := exifcommon.NewIfdMappingWithStandard()
		if err != nil {
			exifInitErr = fmt.Errorf("加载 IFD 映射失败: %w", err)
			return
		}

		ti := exif.NewTagIndex()
		if err := exif.LoadStandardTags(ti); err != nil {
			exifInitErr = fmt.Errorf("加载标准 EXIF 标签失败: %w", err)
			return
		}
		// RAW 厂商经常把标签放在“不该出现”的 IFD 里，也常用 SHORT 存放 LONG 标签
		ti.SetUniversalSearch(true)
		err = ti.Add(&exif.IndexedTag{
			Id:             tagCR2Slices,
			Name:           "CR2Slice",
			IfdPath:        exifcommon.IfdStandardIfdIdentity.UnindexedString(),
			SupportedTypes: []exifcommon.TagTypePrimitive{exifcommon.TypeShort, exifcommon.TypeLong},
		})
		if err != nil {
			exifInitErr = fmt.Errorf("登记 CR2 切片标签失败: %w", err)
			return
		}

		exifMapping, exifTags = im, ti
	})
	return exifMapping, exifTags, exifInitErr
}

// exifScanner 通过 go-exif 的 IFD 枚举器收集标准 TIFF 容器的目录
type exifScanner struct {
	r       io.ReaderAt
	size    int64
	order   binary.ByteOrder
	mapping *exifcommon.IfdMapping
	tags    *exif.TagIndex
	visited map[uint32]bool
	records *recordSet
}

// scanExifDirectory 枚举 IFD 链及其 EXIF、SubIFD 子目录。
// IFD0 自身必须可读，任何一层枚举失败都会返回错误，由调用方决定是否退回逐条目解析。
func scanExifDirectory(r io.ReaderAt, size int64, order binary.ByteOrder, first uint32) ([]model.ThumbnailRecord, error) {
	if _, _, err := newIFDWalker(r, size, order).readIFD(first, "IFD0"); err != nil {
		return nil, err
	}

	im, ti, err := exifIndexes()
	if err != nil {
		return nil, err
	}

	s := &exifScanner{
		r:       r,
		size:    size,
		order:   order,
		mapping: im,
		tags:    ti,
		visited: make(map[uint32]bool),
		records: newRecordSet(),
	}
	if err := s.scan(first, "", 0); err != nil {
		return nil, err
	}
	return s.records.records, nil
}

// scan 从 offset 开始枚举，prefix 为空表示主 IFD 链，否则表示某个 SubIFD
func (s *exifScanner) scan(offset uint32, prefix string, depth int) error {
	s.visited[offset] = true

	ebs := exif.NewExifReadSeeker(io.NewSectionReader(s.r, 0, s.size))
	ie := exif.NewIfdEnumerate(s.mapping, s.tags, ebs, s.order)

	var dirs []*tagDirectory
	byName := make(map[string]*tagDirectory)
	visitor := func(ite *exif.IfdTagEntry) error {
		name := exifDirName(prefix, ite.IfdIdentity())
		if name == "" {
			return nil
		}
		dir, ok := byName[name]
		if !ok {
			dir = newTagDirectory(name)
			byName[name] = dir
			dirs = append(dirs, dir)
		}
		dir.tags[ite.TagId()] = exifTagValue(ite)
		return nil
	}

	if _, err := ie.Scan(exifcommon.IfdStandardIfdIdentity, offset, visitor, nil); err != nil {
		return fmt.Errorf("枚举 IFD (偏移 %d) 失败: %w", offset, err)
	}

	for _, dir := range dirs {
		s.records.collect(dir)

		sub, ok := dir.get(tagSubIFDs)
		if !ok || depth >= maxIFDDepth {
			continue
		}
		for i, off := range sub.Values {
			if s.visited[uint32(off)] || len(s.visited) >= maxIFDCount {
				continue
			}
			// 子 IFD 损坏不影响其余部分
			_ = s.scan(uint32(off), fmt.Sprintf("%s.SubIFD%d", dir.Name, i), depth+1)
		}
	}
	return nil
}

// exifDirName 把 go-exif 的 IFD 路径转换成记录来源名，例如 "IFD" -> "IFD0"、"IFD/Exif" -> "IFD0.ExifIFD"。
// 返回空字符串表示该 IFD 与预览无关（GPS、互操作 IFD 等）。
func exifDirName(prefix string, ii *exifcommon.IfdIdentity) string {
	parts := strings.Split(ii.String(), "/")
	root := exifcommon.IfdStandardIfdIdentity.Name()

	var name string
	switch {
	case prefix == "" && parts[0] == root:
		name = root + "0"
	case prefix == "":
		name = parts[0]
	case parts[0] == root:
		name = prefix
	default:
		// SubIFD 之后链上的兄弟 IFD 不属于该 SubIFD
		return ""
	}

	for _, p := range parts[1:] {
		if p != exifcommon.IfdExifStandardIfdIdentity.Name() {
			return ""
		}
		name += ".ExifIFD"
	}
	return name
}

// exifTagValue 把 go-exif 解析出的条目转换为通用的标签值，只解码需要的整数标签
func exifTagValue(ite *exif.IfdTagEntry) tagValue {
	v := tagValue{Type: uint16(ite.TagType()), Count: ite.UnitCount()}
	if !wantedTags[ite.TagId()] || v.Count == 0 || v.Count > maxIFDEntries {
		return v
	}

	raw, err := ite.Value()
	if err != nil {
		return v
	}
	switch vals := raw.(type) {
	case []uint8:
		v.Values = make([]uint64, len(vals))
		for i, x := range vals {
			v.Values[i] = uint64(x)
		}
	case []uint16:
		v.Values = make([]uint64, len(vals))
		for i, x := range vals {
			v.Values[i] = uint64(x)
		}
	case []uint32:
		v.Values = make([]uint64, len(vals))
		for i, x := range vals {
			v.Values[i] = uint64(x)
		}
	}
	return v
}

package rawthumb

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/domain/model"
)

// TIFF 字段类型对应的单个分量字节数
var typeSizes = map[uint16]uint32{
	1: 1, 2: 1, 6: 1, 7: 1, // BYTE, ASCII, SBYTE, UNDEFINED
	3: 2, 8: 2, // SHORT, SSHORT
	4: 4, 9: 4, 11: 4, 13: 4, // LONG, SLONG, FLOAT, IFD
	5: 8, 10: 8, 12: 8, // RATIONAL, SRATIONAL, DOUBLE
}

// ifdEntry 是一个 12 字节的 IFD 条目
type ifdEntry struct {
	Tag   uint16
	Type  uint16
	Count uint32
	Value [4]byte
}

// ifdWalker 逐条目解析 IFD，用于 ORF/RW2 这类私有魔数的容器
type ifdWalker struct {
	r       io.ReaderAt
	size    int64
	order   binary.ByteOrder
	visited map[uint32]bool
	records *recordSet
}

func newIFDWalker(r io.ReaderAt, size int64, order binary.ByteOrder) *ifdWalker {
	return &ifdWalker{
		r:       r,
		size:    size,
		order:   order,
		visited: make(map[uint32]bool),
		records: newRecordSet(),
	}
}

// walkIFDChain 从 first 开始沿 IFD 链走查，IFD0 失败时返回错误
func walkIFDChain(r io.ReaderAt, size int64, order binary.ByteOrder, first uint32) ([]model.ThumbnailRecord, error) {
	w := newIFDWalker(r, size, order)

	offset := first
	for index := 0; offset != 0; index++ {
		name := fmt.Sprintf("IFD%d", index)
		next, err := w.walk(offset, name, 0)
		if err != nil {
			if index == 0 {
				return nil, fmt.Errorf("解析 %s 失败: %w", name, err)
			}
			break
		}
		offset = next
	}

	return w.records.records, nil
}

// walk 解析 offset 处的 IFD，收集其中的预览记录并递归进入子 IFD，返回下一个 IFD 的偏移
func (w *ifdWalker) walk(offset uint32, name string, depth int) (uint32, error) {
	if depth > maxIFDDepth || len(w.visited) >= maxIFDCount || w.visited[offset] {
		return 0, nil
	}
	w.visited[offset] = true

	dir, next, err := w.readIFD(offset, name)
	if err != nil {
		return 0, err
	}

	w.records.collect(dir)

	if e, ok := dir.get(tagSubIFDs); ok {
		for i, sub := range e.Values {
			// 子 IFD 损坏不影响其余部分
			_, _ = w.walk(uint32(sub), fmt.Sprintf("%s.SubIFD%d", name, i), depth+1)
		}
	}
	if off, ok := dir.value(tagExifIFD); ok {
		_, _ = w.walk(uint32(off), name+".ExifIFD", depth+1)
	}

	return next, nil
}

// readIFD 读取并解码 offset 处的目录条目，返回目录和下一个 IFD 的偏移
func (w *ifdWalker) readIFD(offset uint32, name string) (*tagDirectory, uint32, error) {
	var countBuf [2]byte
	if err := w.readAt(countBuf[:], int64(offset)); err != nil {
		return nil, 0, err
	}
	count := w.order.Uint16(countBuf[:])
	if count == 0 || count > maxIFDEntries {
		return nil, 0, fmt.Errorf("%w: 条目数 %d", errInvalidIFD, count)
	}

	buf := make([]byte, int(count)*ifdEntrySize+4)
	if err := w.readAt(buf, int64(offset)+2); err != nil {
		// 部分文件的最后一个 IFD 缺少 next offset，退而只读取条目
		buf = buf[:int(count)*ifdEntrySize]
		if err := w.readAt(buf, int64(offset)+2); err != nil {
			return nil, 0, err
		}
		buf = append(buf, 0, 0, 0, 0)
	}

	dir := newTagDirectory(name)
	for i := 0; i < int(count); i++ {
		raw := buf[i*ifdEntrySize : (i+1)*ifdEntrySize]
		e := ifdEntry{
			Tag:   w.order.Uint16(raw[0:2]),
			Type:  w.order.Uint16(raw[2:4]),
			Count: w.order.Uint32(raw[4:8]),
		}
		copy(e.Value[:], raw[8:12])

		v := tagValue{Type: e.Type, Count: e.Count, Inline: w.order.Uint32(e.Value[:])}
		if wantedTags[e.Tag] {
			if vals, err := w.values(e); err == nil {
				v.Values = vals
			}
		}
		dir.tags[e.Tag] = v
	}

	return dir, w.order.Uint32(buf[len(buf)-4:]), nil
}

// values 读取 BYTE/SHORT/LONG/IFD 类型条目的全部整数值
func (w *ifdWalker) values(e ifdEntry) ([]uint64, error) {
	size, ok := typeSizes[e.Type]
	if !ok || e.Type == 2 || e.Type == 5 || e.Type == 10 || e.Type == 11 || e.Type == 12 {
		return nil, fmt.Errorf("%w: 标签 0x%04X 的类型 %d 不是整数", errInvalidIFD, e.Tag, e.Type)
	}
	if e.Count == 0 || e.Count > maxIFDEntries {
		return nil, fmt.Errorf("%w: 标签 0x%04X 的数量 %d", errInvalidIFD, e.Tag, e.Count)
	}

	total := size * e.Count
	var data []byte
	if total <= 4 {
		data = e.Value[:total]
	} else {
		data = make([]byte, total)
		if err := w.readAt(data, int64(w.order.Uint32(e.Value[:]))); err != nil {
			return nil, err
		}
	}

	vals := make([]uint64, e.Count)
	for i := range vals {
		switch size {
		case 1:
			vals[i] = uint64(data[i])
		case 2:
			vals[i] = uint64(w.order.Uint16(data[i*2:]))
		case 4:
			vals[i] = uint64(w.order.Uint32(data[i*4:]))
		}
	}
	return vals, nil
}

func (w *ifdWalker) readAt(buf []byte, off int64) error {
	if off < 0 || off+int64(len(buf)) > w.size {
		return fmt.Errorf("%w: 偏移 %d 超出文件范围", errInvalidIFD, off)
	}
	if _, err := w.r.ReadAt(buf, off); err != nil && err != io.EOF {
		return err
	}
	return nil
}

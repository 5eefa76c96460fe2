package rawthumb

import (
	"encoding/binary"
	"io"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/domain/model"
)

// TIFF 头中第 2-3 字节允许出现的“魔数”。大多数 RAW 都是标准 TIFF，
// Olympus 与 Panasonic 使用了自己的变体。
const (
	tiffMagic    = 42     // 标准 TIFF / CR2 / NEF / ARW / DNG / PEF
	orfMagicRO   = 0x4F52 // Olympus "IIRO" / "MMOR"
	orfMagicRS   = 0x5352 // Olympus "IIRS"
	rw2Magic     = 0x55   // Panasonic "IIU\0"
	ifdEntrySize = 12
)

// 走查限制，防止损坏文件或环形引用导致无限递归
const (
	maxIFDEntries = 1000
	maxIFDCount   = 64
	maxIFDDepth   = 4
)

// 关心的 TIFF 标签
const (
	tagNewSubfileType     = 0x00FE
	tagImageWidth         = 0x0100
	tagImageLength        = 0x0101
	tagBitsPerSample      = 0x0102
	tagCompression        = 0x0103
	tagPhotometric        = 0x0106
	tagStripOffsets       = 0x0111
	tagSamplesPerPixel    = 0x0115
	tagStripByteCounts    = 0x0117
	tagSubIFDs            = 0x014A
	tagJPEGInterchange    = 0x0201
	tagJPEGInterchangeLen = 0x0202
	tagExifIFD            = 0x8769
	tagCR2Slices          = 0xC640
	tagRW2JpgFromRaw      = 0x002E
)

const (
	compressionNone    = 1
	compressionOldJPEG = 6
	compressionJPEG    = 7

	photometricRGB       = 2
	photometricCFA       = 32803
	photometricLinearRaw = 34892
)

// wantedTags 是判断预览记录时需要解码数值的标签，其余标签只记录是否存在
var wantedTags = map[uint16]bool{
	tagNewSubfileType:     true,
	tagImageWidth:         true,
	tagImageLength:        true,
	tagBitsPerSample:      true,
	tagCompression:        true,
	tagPhotometric:        true,
	tagStripOffsets:       true,
	tagSamplesPerPixel:    true,
	tagStripByteCounts:    true,
	tagSubIFDs:            true,
	tagJPEGInterchange:    true,
	tagJPEGInterchangeLen: true,
	tagExifIFD:            true,
}

// tagValue 是一个标签解码后的内容。Values 为 nil 表示不是整数类型或未能解码。
type tagValue struct {
	Type   uint16
	Count  uint32
	Values []uint64
	// Inline 是条目中 4 字节值域按字节序读出的原始值
	Inline uint32
}

// tagDirectory 是单个 IFD 中与预览相关的标签集合，两种走查方式产出同一结构
type tagDirectory struct {
	Name string
	tags map[uint16]tagValue
}

func newTagDirectory(name string) *tagDirectory {
	return &tagDirectory{Name: name, tags: make(map[uint16]tagValue)}
}

func (d *tagDirectory) get(tag uint16) (tagValue, bool) {
	v, ok := d.tags[tag]
	return v, ok
}

// value 返回标签的第一个整数值
func (d *tagDirectory) value(tag uint16) (uint64, bool) {
	v, ok := d.tags[tag]
	if !ok || len(v.Values) == 0 {
		return 0, false
	}
	return v.Values[0], true
}

func (d *tagDirectory) valueOr(tag uint16, def uint64) uint64 {
	if v, ok := d.value(tag); ok {
		return v
	}
	return def
}

// recordSet 按发现顺序保存记录，同一偏移只保留一条，JPEG 优先于位图
type recordSet struct {
	byOffset map[uint64]int
	records  []model.ThumbnailRecord
}

func newRecordSet() *recordSet {
	return &recordSet{byOffset: make(map[uint64]int)}
}

func (s *recordSet) add(rec model.ThumbnailRecord) {
	if i, ok := s.byOffset[rec.Offset]; ok {
		if s.records[i].Format == model.ThumbnailFormatBitmap && rec.Format == model.ThumbnailFormatJPEG {
			s.records[i] = rec
		}
		return
	}
	s.byOffset[rec.Offset] = len(s.records)
	s.records = append(s.records, rec)
}

// collect 根据目录内容判断其描述的是哪一类预览
func (s *recordSet) collect(dir *tagDirectory) {
	// 1. JPEGInterchangeFormat / JPEGInterchangeFormatLength
	off, ok1 := dir.value(tagJPEGInterchange)
	length, ok2 := dir.value(tagJPEGInterchangeLen)
	if ok1 && ok2 && length > 0 {
		s.add(model.ThumbnailRecord{
			Format: model.ThumbnailFormatJPEG,
			Offset: off,
			Length: length,
			Source: dir.Name,
		})
	}

	// 2. Panasonic RW2 的 JpgFromRaw，值本身就是一段完整的 JPEG
	if e, ok := dir.get(tagRW2JpgFromRaw); ok && e.Type == 7 && e.Count > 4 {
		s.add(model.ThumbnailRecord{
			Format: model.ThumbnailFormatJPEG,
			Offset: uint64(e.Inline),
			Length: uint64(e.Count),
			Source: dir.Name + ".JpgFromRaw",
		})
	}

	// 3. 单条带（strip）存储的预览图
	s.collectStrip(dir)
}

func (s *recordSet) collectStrip(dir *tagDirectory) {
	compression, ok := dir.value(tagCompression)
	if !ok {
		return
	}
	offE, ok1 := dir.get(tagStripOffsets)
	cntE, ok2 := dir.get(tagStripByteCounts)
	if !ok1 || !ok2 || offE.Count != 1 || cntE.Count != 1 {
		return
	}
	off, ok1 := dir.value(tagStripOffsets)
	length, ok2 := dir.value(tagStripByteCounts)
	if !ok1 || !ok2 || length == 0 {
		return
	}

	photometric := dir.valueOr(tagPhotometric, 0)
	bits := dir.valueOr(tagBitsPerSample, 8)
	width := uint32(dir.valueOr(tagImageWidth, 0))
	height := uint32(dir.valueOr(tagImageLength, 0))

	switch compression {
	case compressionOldJPEG, compressionJPEG:
		// 排除原始传感器数据：CFA/LinearRaw、CR2 切片、高位深的无损 JPEG
		if photometric == photometricCFA || photometric == photometricLinearRaw {
			return
		}
		if _, sliced := dir.get(tagCR2Slices); sliced {
			return
		}
		if bits > 8 {
			return
		}
		s.add(model.ThumbnailRecord{
			Format: model.ThumbnailFormatJPEG,
			Offset: off,
			Length: length,
			Width:  width,
			Height: height,
			Source: dir.Name,
		})
	case compressionNone:
		reduced := dir.valueOr(tagNewSubfileType, 0)&1 == 1
		samples := dir.valueOr(tagSamplesPerPixel, 1)
		if photometric != photometricRGB || samples != 3 || bits != 8 {
			return
		}
		// IFD0 中未压缩的 RGB 在 NEF/DNG 里就是缩略图；其余位置需要显式标记为缩小版本
		if !reduced && dir.Name != "IFD0" {
			return
		}
		s.add(model.ThumbnailRecord{
			Format: model.ThumbnailFormatBitmap,
			Offset: off,
			Length: length,
			Width:  width,
			Height: height,
			Source: dir.Name,
		})
	}
}

// parseTIFFHeader 校验字节序与魔数，返回字节序、魔数和 IFD0 偏移
func parseTIFFHeader(header []byte) (binary.ByteOrder, uint16, uint32, bool) {
	if len(header) < 8 {
		return nil, 0, 0, false
	}
	var order binary.ByteOrder
	switch string(header[0:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, 0, 0, false
	}
	magic := order.Uint16(header[2:4])
	switch magic {
	case tiffMagic, orfMagicRO, orfMagicRS, rw2Magic:
	default:
		return nil, 0, 0, false
	}
	return order, magic, order.Uint32(header[4:8]), true
}

// readTIFFDirectory 解析 TIFF 家族容器中的全部预览记录。
// 标准 TIFF 由 go-exif 枚举；ORF/RW2 的私有魔数以及 go-exif 无法完整枚举的文件
// 走逐条目解析。IFD0 解析失败视为容器无法解析，更深层的 IFD 损坏只会被跳过。
func readTIFFDirectory(r io.ReaderAt, size int64, header []byte) ([]model.ThumbnailRecord, error) {
	order, magic, first, ok := parseTIFFHeader(header)
	if !ok {
		return nil, errUnknownContainer
	}

	if magic == tiffMagic {
		if records, err := scanExifDirectory(r, size, order, first); err == nil {
			return records, nil
		}
	}

	return walkIFDChain(r, size, order, first)
}

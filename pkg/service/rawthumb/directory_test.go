package rawthumb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image/jpeg"
	"io"
	"path/filepath"
	"testing"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/constant"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/domain/model"
)

func TestSelectThumbnailEndToEnd(t *testing.T) {
	fixture := makeJPEG(t, 24, 16)

	t.Run("三条记录选中2000字节的那条", func(t *testing.T) {
		payloads := [][]byte{filler(500, 0x11), padded(t, fixture, 2000), filler(8000, 0x22)}
		// 故意打乱容器内顺序
		ifds := []testIFD{jpegIFD(2, 2), jpegIFD(0, 3), jpegIFD(1, 0)}
		path := writeFile(t, "three.nef", buildTIFF(binary.LittleEndian, tiffMagic, ifds, payloads))

		rec, err := SelectThumbnail(path)
		if err != nil {
			t.Fatalf("SelectThumbnail() 返回了意外错误: %v", err)
		}
		if rec.Length != 2000 {
			t.Fatalf("SelectThumbnail() 选中的长度 = %d, want 2000", rec.Length)
		}

		data, err := ReadRecord(path, rec)
		if err != nil {
			t.Fatalf("ReadRecord() 返回了意外错误: %v", err)
		}
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("选中的数据无法解码: %v", err)
		}
		if cfg.Width != 24 || cfg.Height != 16 {
			t.Errorf("解码尺寸 = %dx%d, want 24x16", cfg.Width, cfg.Height)
		}
	})

	t.Run("只有一条500字节记录", func(t *testing.T) {
		payloads := [][]byte{filler(500, 0x33)}
		path := writeFile(t, "one.cr2", buildTIFF(binary.LittleEndian, tiffMagic, []testIFD{jpegIFD(0, 0)}, payloads))

		rec, err := SelectThumbnail(path)
		if err != nil {
			t.Fatalf("SelectThumbnail() 返回了意外错误: %v", err)
		}
		if rec.Length != 500 || rec.Offset != 8+30 {
			t.Errorf("SelectThumbnail() = %+v, want offset=38 length=500", rec)
		}
	})
}

func TestReadDirectory(t *testing.T) {
	fixture := makeJPEG(t, 8, 8)

	tests := []struct {
		name    string
		order   binary.ByteOrder
		magic   uint16
		ifds    []testIFD
		data    [][]byte
		want    []model.ThumbnailFormat
		sources []string
	}{
		{
			name:    "大端序子IFD中的条带JPEG",
			order:   binary.BigEndian,
			magic:   tiffMagic,
			ifds:    []testIFD{{Entries: []testEntry{{Tag: tagSubIFDs, Type: 4, Count: 1, Ref: refIFD, Index: 1}}}, {Entries: stripEntries(0, compressionOldJPEG, 6, 8, 8, 8)}},
			data:    [][]byte{fixture},
			want:    []model.ThumbnailFormat{model.ThumbnailFormatJPEG},
			sources: []string{"IFD0.SubIFD0"},
		},
		{
			name:  "IFD0的未压缩RGB是位图",
			order: binary.LittleEndian,
			magic: tiffMagic,
			ifds:  []testIFD{{Entries: stripEntries(0, compressionNone, photometricRGB, 8, 4, 4)}},
			data:  [][]byte{filler(48, 0x80)},
			want:  []model.ThumbnailFormat{model.ThumbnailFormatBitmap},
		},
		{
			name:  "CFA数据不是预览",
			order: binary.LittleEndian,
			magic: tiffMagic,
			ifds:  []testIFD{{Entries: stripEntries(0, compressionJPEG, photometricCFA, 8, 8, 8)}},
			data:  [][]byte{fixture},
			want:  nil,
		},
		{
			name:  "高位深的无损JPEG不是预览",
			order: binary.LittleEndian,
			magic: tiffMagic,
			ifds:  []testIFD{{Entries: stripEntries(0, compressionJPEG, 6, 14, 8, 8)}},
			data:  [][]byte{fixture},
			want:  nil,
		},
		{
			name:  "带CR2切片标签的条带不是预览",
			order: binary.LittleEndian,
			magic: tiffMagic,
			ifds: []testIFD{{Entries: append(stripEntries(0, compressionOldJPEG, 6, 8, 8, 8),
				testEntry{Tag: tagCR2Slices, Type: 3, Count: 1, Value: 2})}},
			data: [][]byte{fixture},
			want: nil,
		},
		{
			name:  "指向同一偏移的记录只保留一条",
			order: binary.LittleEndian,
			magic: tiffMagic,
			ifds: []testIFD{{Entries: append(stripEntries(0, compressionOldJPEG, 6, 8, 8, 8),
				testEntry{Tag: tagJPEGInterchange, Type: 4, Count: 1, Ref: refPayloadOffset, Index: 0},
				testEntry{Tag: tagJPEGInterchangeLen, Type: 4, Count: 1, Ref: refPayloadLength, Index: 0})}},
			data: [][]byte{fixture},
			want: []model.ThumbnailFormat{model.ThumbnailFormatJPEG},
		},
		{
			name:  "同一偏移上位图让位于JPEG",
			order: binary.LittleEndian,
			magic: tiffMagic,
			ifds: []testIFD{
				{Entries: stripEntries(0, compressionNone, photometricRGB, 8, 4, 4), Next: 2},
				jpegIFD(0, 0),
			},
			data:    [][]byte{fixture},
			want:    []model.ThumbnailFormat{model.ThumbnailFormatJPEG},
			sources: []string{"IFD1"},
		},
		{
			name:    "EXIF IFD中的预览",
			order:   binary.LittleEndian,
			magic:   tiffMagic,
			ifds:    []testIFD{{Entries: []testEntry{{Tag: tagExifIFD, Type: 4, Count: 1, Ref: refIFD, Index: 1}}}, jpegIFD(0, 0)},
			data:    [][]byte{fixture},
			want:    []model.ThumbnailFormat{model.ThumbnailFormatJPEG},
			sources: []string{"IFD0.ExifIFD"},
		},
		{
			name:    "Olympus ORF魔数",
			order:   binary.LittleEndian,
			magic:   orfMagicRO,
			ifds:    []testIFD{jpegIFD(0, 0)},
			data:    [][]byte{fixture},
			want:    []model.ThumbnailFormat{model.ThumbnailFormatJPEG},
			sources: []string{"IFD0"},
		},
		{
			name:  "Panasonic RW2的JpgFromRaw",
			order: binary.LittleEndian,
			magic: rw2Magic,
			ifds: []testIFD{{Entries: []testEntry{
				{Tag: tagRW2JpgFromRaw, Type: 7, Count: uint32(len(fixture)), Ref: refPayloadOffset, Index: 0},
			}}},
			data:    [][]byte{fixture},
			want:    []model.ThumbnailFormat{model.ThumbnailFormatJPEG},
			sources: []string{"IFD0.JpgFromRaw"},
		},
		{
			name:  "IFD链形成环也能结束",
			order: binary.LittleEndian,
			magic: tiffMagic,
			ifds:  []testIFD{jpegIFD(0, 2), jpegIFD(1, 1)},
			data:  [][]byte{fixture, filler(100, 1)},
			want:  []model.ThumbnailFormat{model.ThumbnailFormatJPEG, model.ThumbnailFormatJPEG},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "sample.raw", buildTIFF(tt.order, tt.magic, tt.ifds, tt.data))
			dir, err := ReadDirectory(path)
			if err != nil {
				t.Fatalf("ReadDirectory() 返回了意外错误: %v", err)
			}
			if dir.Len() != len(tt.want) {
				t.Fatalf("ReadDirectory() 得到 %d 条记录, want %d: %+v", dir.Len(), len(tt.want), dir.Records)
			}
			for i, f := range tt.want {
				if dir.Records[i].Format != f {
					t.Errorf("记录 %d 的格式 = %v, want %v", i, dir.Records[i].Format, f)
				}
			}
			for i, s := range tt.sources {
				if dir.Records[i].Source != s {
					t.Errorf("记录 %d 的来源 = %q, want %q", i, dir.Records[i].Source, s)
				}
			}
		})
	}
}

func TestReadDirectoryStripDimensions(t *testing.T) {
	fixture := makeJPEG(t, 8, 8)
	ifds := []testIFD{{Entries: stripEntries(0, compressionJPEG, 6, 8, 640, 480)}}
	path := writeFile(t, "dims.dng", buildTIFF(binary.LittleEndian, tiffMagic, ifds, [][]byte{fixture}))

	dir, err := ReadDirectory(path)
	if err != nil {
		t.Fatalf("ReadDirectory() 返回了意外错误: %v", err)
	}
	if dir.Len() != 1 {
		t.Fatalf("ReadDirectory() 得到 %d 条记录, want 1", dir.Len())
	}
	if rec := dir.Records[0]; rec.Width != 640 || rec.Height != 480 {
		t.Errorf("声明尺寸 = %dx%d, want 640x480", rec.Width, rec.Height)
	}
}

func TestReadDirectoryRAF(t *testing.T) {
	fixture := makeJPEG(t, 16, 16)
	header := make([]byte, 100)
	copy(header, rafMagic)
	binary.BigEndian.PutUint32(header[rafJPEGOffsetPos:], 100)
	binary.BigEndian.PutUint32(header[rafJPEGOffsetPos+4:], uint32(len(fixture)))
	path := writeFile(t, "sample.raf", append(header, fixture...))

	rec, err := SelectThumbnail(path)
	if err != nil {
		t.Fatalf("SelectThumbnail() 返回了意外错误: %v", err)
	}
	if rec.Offset != 100 || rec.Length != uint64(len(fixture)) || rec.Source != "RAF" {
		t.Errorf("SelectThumbnail() = %+v", rec)
	}
}

func TestReadDirectoryNoJPEG(t *testing.T) {
	ifds := []testIFD{{Entries: stripEntries(0, compressionNone, photometricRGB, 8, 4, 4)}}
	path := writeFile(t, "bitmap.nef", buildTIFF(binary.LittleEndian, tiffMagic, ifds, [][]byte{filler(48, 0x40)}))

	_, err := SelectThumbnail(path)
	if !errors.Is(err, ErrNoThumbnailFound) {
		t.Fatalf("SelectThumbnail() error = %v, want ErrNoThumbnailFound", err)
	}
	var openErr *ContainerOpenError
	if errors.As(err, &openErr) {
		t.Errorf("没有预览时不应返回 ContainerOpenError")
	}
}

func TestReadDirectoryContainerErrors(t *testing.T) {
	emptyIFD := buildTIFF(binary.LittleEndian, tiffMagic, []testIFD{{}}, nil)
	badOffset := buildTIFF(binary.LittleEndian, tiffMagic, nil, nil)
	binary.LittleEndian.PutUint32(badOffset[4:], 1<<20)

	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{name: "文件不存在", path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.nef") }},
		{name: "路径是目录", path: func(t *testing.T) string { return t.TempDir() }},
		{name: "空文件", path: func(t *testing.T) string { return writeFile(t, "empty.nef", nil) }},
		{name: "不认识的格式", path: func(t *testing.T) string { return writeFile(t, "photo.nef", []byte("PK\x03\x04 definitely not a raw file")) }},
		{name: "TIFF魔数错误", path: func(t *testing.T) string { return writeFile(t, "bad.nef", []byte{'I', 'I', 43, 0, 8, 0, 0, 0, 0, 0}) }},
		{name: "IFD0条目数为0", path: func(t *testing.T) string { return writeFile(t, "zero.nef", emptyIFD) }},
		{name: "IFD0偏移越界", path: func(t *testing.T) string { return writeFile(t, "offset.nef", badOffset) }},
		{name: "RAF头部不完整", path: func(t *testing.T) string { return writeFile(t, "short.raf", []byte(rafMagic+"0201")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SelectThumbnail(tt.path(t))
			var openErr *ContainerOpenError
			if !errors.As(err, &openErr) {
				t.Fatalf("SelectThumbnail() error = %v, want *ContainerOpenError", err)
			}
			if !errors.Is(err, constant.ErrContainerOpen) {
				t.Errorf("errors.Is(err, constant.ErrContainerOpen) 应为 true")
			}
			if errors.Is(err, ErrNoThumbnailFound) {
				t.Errorf("打开失败不应被识别为 ErrNoThumbnailFound")
			}
		})
	}
}

func TestRecordSetAdd(t *testing.T) {
	jpegAt := func(off, n uint64, src string) model.ThumbnailRecord {
		return model.ThumbnailRecord{Format: model.ThumbnailFormatJPEG, Offset: off, Length: n, Source: src}
	}
	bitmapAt := func(off, n uint64, src string) model.ThumbnailRecord {
		return model.ThumbnailRecord{Format: model.ThumbnailFormatBitmap, Offset: off, Length: n, Source: src}
	}

	tests := []struct {
		name string
		add  []model.ThumbnailRecord
		want []model.ThumbnailRecord
	}{
		{
			name: "位图在前时被JPEG替换并保持原位置",
			add:  []model.ThumbnailRecord{bitmapAt(100, 48, "IFD0"), jpegAt(900, 10, "IFD2"), jpegAt(100, 48, "IFD1")},
			want: []model.ThumbnailRecord{jpegAt(100, 48, "IFD1"), jpegAt(900, 10, "IFD2")},
		},
		{
			name: "JPEG在前时忽略后来的位图",
			add:  []model.ThumbnailRecord{jpegAt(100, 48, "IFD0"), bitmapAt(100, 48, "IFD1")},
			want: []model.ThumbnailRecord{jpegAt(100, 48, "IFD0")},
		},
		{
			name: "同格式重复只保留第一条",
			add:  []model.ThumbnailRecord{jpegAt(100, 48, "IFD0"), jpegAt(100, 64, "IFD0.ExifIFD")},
			want: []model.ThumbnailRecord{jpegAt(100, 48, "IFD0")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newRecordSet()
			for _, rec := range tt.add {
				s.add(rec)
			}
			if len(s.records) != len(tt.want) {
				t.Fatalf("得到 %d 条记录, want %d: %+v", len(s.records), len(tt.want), s.records)
			}
			for i := range tt.want {
				if s.records[i] != tt.want[i] {
					t.Errorf("记录 %d = %+v, want %+v", i, s.records[i], tt.want[i])
				}
			}
		})
	}
}

type failingReaderAt struct{ err error }

func (r failingReaderAt) ReadAt([]byte, int64) (int, error) { return 0, r.err }

func TestSniffHeader(t *testing.T) {
	readErr := errors.New("设备 I/O 错误")

	tests := []struct {
		name    string
		r       io.ReaderAt
		want    string
		wantErr error
	}{
		{name: "完整文件头", r: bytes.NewReader([]byte("II*\x00\x08\x00\x00\x00 trailing bytes here")), want: "II*\x00\x08\x00\x00\x00 trailin"},
		{name: "短文件返回已读部分", r: bytes.NewReader([]byte("MM\x00*")), want: "MM\x00*"},
		{name: "读取失败", r: failingReaderAt{err: readErr}, wantErr: readErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sniffHeader(tt.r)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("sniffHeader() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("sniffHeader() 返回了意外错误: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("sniffHeader() = %q, want %q", got, tt.want)
			}
		})
	}
}

package rawthumb

import (
	"errors"
	"testing"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/constant"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/domain/model"
)

func jpegRec(offset, length uint64) model.ThumbnailRecord {
	return model.ThumbnailRecord{Format: model.ThumbnailFormatJPEG, Offset: offset, Length: length}
}

func bitmapRec(offset, length uint64) model.ThumbnailRecord {
	return model.ThumbnailRecord{Format: model.ThumbnailFormatBitmap, Offset: offset, Length: length}
}

func TestSelectorSelect(t *testing.T) {
	tests := []struct {
		name       string
		skip       int
		records    []model.ThumbnailRecord
		wantOffset uint64
		wantErr    error
	}{
		{
			name:    "空目录",
			skip:    DefaultSkip,
			records: nil,
			wantErr: ErrNoThumbnailFound,
		},
		{
			name:    "只有位图记录",
			skip:    DefaultSkip,
			records: []model.ThumbnailRecord{bitmapRec(100, 57600), bitmapRec(200, 1200)},
			wantErr: ErrNoThumbnailFound,
		},
		{
			name:       "只有一条JPEG",
			skip:       DefaultSkip,
			records:    []model.ThumbnailRecord{jpegRec(10, 500)},
			wantOffset: 10,
		},
		{
			name:       "一条JPEG且跳过数很大",
			skip:       5,
			records:    []model.ThumbnailRecord{jpegRec(10, 500)},
			wantOffset: 10,
		},
		{
			name:       "两条JPEG取最大",
			skip:       DefaultSkip,
			records:    []model.ThumbnailRecord{jpegRec(10, 9000), jpegRec(20, 400)},
			wantOffset: 10,
		},
		{
			name:       "三条JPEG取第二小",
			skip:       DefaultSkip,
			records:    []model.ThumbnailRecord{jpegRec(30, 8000), jpegRec(10, 500), jpegRec(20, 2000)},
			wantOffset: 20,
		},
		{
			name: "五条JPEG取第二小",
			skip: DefaultSkip,
			records: []model.ThumbnailRecord{
				jpegRec(1, 50000), jpegRec(2, 300), jpegRec(3, 1200000), jpegRec(4, 9000), jpegRec(5, 700),
			},
			wantOffset: 5,
		},
		{
			name:       "位图记录不参与排序",
			skip:       DefaultSkip,
			records:    []model.ThumbnailRecord{bitmapRec(1, 100), jpegRec(2, 500), bitmapRec(3, 1000), jpegRec(4, 2000)},
			wantOffset: 4,
		},
		{
			name:       "跳过数为0取最小",
			skip:       0,
			records:    []model.ThumbnailRecord{jpegRec(30, 8000), jpegRec(10, 500), jpegRec(20, 2000)},
			wantOffset: 10,
		},
		{
			name:       "跳过数为2且只有三条取最大",
			skip:       2,
			records:    []model.ThumbnailRecord{jpegRec(30, 8000), jpegRec(10, 500), jpegRec(20, 2000)},
			wantOffset: 30,
		},
		{
			name:       "跳过数为2且有四条",
			skip:       2,
			records:    []model.ThumbnailRecord{jpegRec(40, 90000), jpegRec(30, 8000), jpegRec(10, 500), jpegRec(20, 2000)},
			wantOffset: 30,
		},
		{
			name:       "负数跳过数按0处理",
			skip:       -3,
			records:    []model.ThumbnailRecord{jpegRec(30, 8000), jpegRec(10, 500), jpegRec(20, 2000)},
			wantOffset: 10,
		},
		{
			name:       "长度相同时保持目录顺序",
			skip:       DefaultSkip,
			records:    []model.ThumbnailRecord{jpegRec(1, 100), jpegRec(2, 500), jpegRec(3, 500), jpegRec(4, 500)},
			wantOffset: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelector(Policy{Skip: tt.skip})
			got, err := s.Select(&model.ThumbnailDirectory{Records: tt.records})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Select() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select() 返回了意外错误: %v", err)
			}
			if got.Offset != tt.wantOffset {
				t.Errorf("Select() 选中了 offset=%d, want %d", got.Offset, tt.wantOffset)
			}
			if got.Format != model.ThumbnailFormatJPEG {
				t.Errorf("Select() 选中了非 JPEG 记录: %v", got.Format)
			}
		})
	}
}

func TestSelectorDoesNotReorderDirectory(t *testing.T) {
	dir := &model.ThumbnailDirectory{Records: []model.ThumbnailRecord{jpegRec(30, 8000), jpegRec(10, 500), jpegRec(20, 2000)}}
	if _, err := NewSelector(DefaultPolicy()).Select(dir); err != nil {
		t.Fatalf("Select() 返回了意外错误: %v", err)
	}
	if dir.Records[0].Offset != 30 || dir.Records[1].Offset != 10 || dir.Records[2].Offset != 20 {
		t.Errorf("Select() 不应修改目录中的记录顺序: %+v", dir.Records)
	}
}

func TestNoThumbnailIsSentinel(t *testing.T) {
	_, err := NewSelector(DefaultPolicy()).Select(nil)
	if !errors.Is(err, constant.ErrNoThumbnailFound) {
		t.Errorf("空目录应返回 constant.ErrNoThumbnailFound，实际是 %v", err)
	}
}

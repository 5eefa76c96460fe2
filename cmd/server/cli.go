package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/config"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/service/gallery"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/service/rawthumb"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/service/thumbnail"
)

// ExportReport 汇总一次导出的结果
type ExportReport struct {
	Exported    int
	NoThumbnail int
	Failed      int
}

// ShouldFail 只有一个文件都没导出并且发生了错误时才视为失败
func (r *ExportReport) ShouldFail() bool {
	return r.Exported == 0 && r.Failed > 0
}

// Export 将 srcDir（为空时使用 Gallery.Root）下每个 RAW 文件的预览保存到 outDir，并逐个打印结果
func Export(ctx context.Context, cfg *config.Config, srcDir, outDir string, w io.Writer) (*ExportReport, error) {
	p, err := newPipeline(cfg)
	if err != nil {
		return nil, err
	}
	if srcDir == "" {
		srcDir = cfg.GetString(config.KeyGalleryRoot)
	}

	var mu sync.Mutex
	saved := make(map[string]string)
	saveErrs := make(map[string]error)

	opts := p.galleryOpts
	opts.OnReady = func(entry *model.GalleryEntry, res *thumbnail.Result) {
		name := thumbnail.GenerateCacheName(entry.PublicID, entry.Name, p.render.Ext())
		path, err := thumbnail.GetCachePath(outDir, name)
		if err == nil {
			err = thumbnail.Save(res.Image, path, p.render)
		}
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			saveErrs[entry.Name] = err
			return
		}
		saved[entry.Name] = path
	}

	snap, err := gallery.NewScanner(p.thumbnailSvc, nil, opts).Scan(ctx, srcDir)
	if err != nil {
		return nil, err
	}

	report := &ExportReport{}
	for _, entry := range snap.Entries {
		switch {
		case entry.Status == model.GalleryStatusReady && saveErrs[entry.Name] != nil:
			report.Failed++
			fmt.Fprintf(w, "❌ %s: 保存失败: %v\n", entry.Name, saveErrs[entry.Name])
		case entry.Status == model.GalleryStatusReady:
			report.Exported++
			fmt.Fprintf(w, "✅ %s -> %s (%dx%d)\n", entry.Name, saved[entry.Name], entry.Width, entry.Height)
		case entry.ErrorKind == model.ErrorKindNoThumbnail:
			report.NoThumbnail++
			fmt.Fprintf(w, "⏭️  %s: 没有可用的 JPEG 预览\n", entry.Name)
		default:
			report.Failed++
			fmt.Fprintf(w, "❌ %s [%s]: %s\n", entry.Name, entry.ErrorKind, entry.Error)
		}
	}
	fmt.Fprintf(w, "共 %d 个文件: 导出 %d，无预览 %d，失败 %d\n",
		len(snap.Entries), report.Exported, report.NoThumbnail, report.Failed)
	return report, nil
}

// Inspect 打印文件的完整缩略图目录，并用 * 标出按当前策略选中的记录
func Inspect(cfg *config.Config, path string, w io.Writer) error {
	dir, err := rawthumb.ReadDirectory(path)
	if err != nil {
		return err
	}
	selected, selErr := rawthumb.NewSelector(rawthumb.Policy{Skip: cfg.GetInt(config.KeyThumbnailSkip)}).Select(dir)

	fmt.Fprintf(w, "%s: %d 条预览记录\n", path, dir.Len())
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\t#\tFORMAT\tOFFSET\tLENGTH\tSIZE\tSOURCE")
	for i, rec := range dir.Records {
		mark := ""
		if selErr == nil && rec == selected {
			mark = "*"
		}
		size := "-"
		if rec.Width > 0 && rec.Height > 0 {
			size = fmt.Sprintf("%dx%d", rec.Width, rec.Height)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%s\t%s\n", mark, i, rec.Format, rec.Offset, rec.Length, size, rec.Source)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if selErr != nil {
		if errors.Is(selErr, rawthumb.ErrNoThumbnailFound) {
			fmt.Fprintln(w, "未选中任何记录: 没有 JPEG 格式的预览")
			return nil
		}
		return selErr
	}
	return nil
}

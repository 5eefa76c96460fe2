package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "conf.ini")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() 返回了意外错误: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("应自动创建默认配置文件: %v", err)
	}

	if got := cfg.GetString(KeyServerPort); got != "8091" {
		t.Errorf("端口 = %q, want 8091", got)
	}
	if got := cfg.GetInt(KeyThumbnailSkip); got != 1 {
		t.Errorf("Skip = %d, want 1", got)
	}
	if got := cfg.GetDuration(KeyThumbnailTimeout); got != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", got)
	}
	if got := cfg.GetStringSlice(KeyGalleryExtensions); len(got) == 0 || got[0] != "nef" {
		t.Errorf("Extensions = %v", got)
	}
	if cfg.GetBool(KeyServerDebug) {
		t.Errorf("默认不应开启调试模式")
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.ini")
	content := `[Gallery]
Root = /photos
Columns = 4
Extensions = NEF, cr2 ,,dng

[Thumbnail]
Skip = 0
Timeout = 5

[Output]
Format = png
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RAWVIEW_GALLERY_COLUMNS", "6")
	t.Setenv("RAWVIEW_SYSTEM_DEBUG", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() 返回了意外错误: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{name: "文件中的字符串", got: cfg.GetString(KeyGalleryRoot), want: "/photos"},
		{name: "环境变量覆盖文件", got: cfg.GetInt(KeyGalleryColumns), want: 6},
		{name: "环境变量覆盖默认值", got: cfg.GetBool(KeyServerDebug), want: true},
		{name: "显式的零值", got: cfg.GetInt(KeyThumbnailSkip), want: 0},
		{name: "纯数字时长按秒处理", got: cfg.GetDuration(KeyThumbnailTimeout), want: 5 * time.Second},
		{name: "列表去掉空白和空项", got: cfg.GetStringSlice(KeyGalleryExtensions), want: []string{"NEF", "cr2", "dng"}},
		{name: "文件未写的键使用默认值", got: cfg.GetInt(KeyOutputJPEGQuality), want: 90},
		{name: "输出格式", got: cfg.GetString(KeyOutputFormat), want: "png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.ini")
	if err := os.WriteFile(path, []byte("[Gallery\nRoot = x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("格式错误的配置文件应返回错误")
	}
}

func TestSet(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "conf.ini"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Set(KeyGalleryRoot, "/override")
	if got := cfg.GetString(KeyGalleryRoot); got != "/override" {
		t.Errorf("Set 后 Root = %q", got)
	}
}

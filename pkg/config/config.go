/*
 * @Description: 统一配置管理，手动加载
 * @Author: 安知鱼
 * @Date: 2025-06-28 00:21:55
 * @LastEditTime: 2025-10-14 21:02:37
 * @LastEditors: 安知鱼
 */
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-ini/ini"
	"github.com/spf13/viper"
)

// DefaultPath 是默认配置文件位置
const DefaultPath = "data/conf.ini"

const envPrefix = "RAWVIEW"

const (
	KeyServerPort            = "System.Port"
	KeyServerDebug           = "System.Debug"
	KeyGalleryRoot           = "Gallery.Root"
	KeyGalleryColumns        = "Gallery.Columns"
	KeyGalleryExtensions     = "Gallery.Extensions"
	KeyGalleryRescanSchedule = "Gallery.RescanSchedule"
	KeyGalleryRescanTimeout  = "Gallery.RescanTimeout"
	KeyThumbnailSkip         = "Thumbnail.Skip"
	KeyThumbnailWorkers      = "Thumbnail.Workers"
	KeyThumbnailTimeout      = "Thumbnail.Timeout"
	KeyThumbnailMaxFileSize  = "Thumbnail.MaxFileSize"
	KeyThumbnailMaxPixels    = "Thumbnail.MaxPixels"
	KeyOutputFormat          = "Output.Format"
	KeyOutputMaxWidth        = "Output.MaxWidth"
	KeyOutputJPEGQuality     = "Output.JPEGQuality"
	KeyRateLimitPerMinute    = "RateLimit.PerMinute"
	KeyRateLimitBurst        = "RateLimit.Burst"
	KeyIDSeed                = "ID.Seed"
)

// defaults 同时是所有已知配置键的列表，环境变量只会覆盖这里出现的键
var defaults = map[string]any{
	KeyServerPort:            "8091",
	KeyServerDebug:           false,
	KeyGalleryRoot:           "data/raw",
	KeyGalleryColumns:        3,
	KeyGalleryExtensions:     "nef,nrw,cr2,dng,arw,srf,sr2,orf,rw2,raf,pef,srw,3fr,erf,kdc,dcr,mos,iiq",
	KeyGalleryRescanSchedule: "@every 5m",
	KeyGalleryRescanTimeout:  "10m",
	KeyThumbnailSkip:         1,
	KeyThumbnailWorkers:      0,
	KeyThumbnailTimeout:      "30s",
	KeyThumbnailMaxFileSize:  0,
	KeyThumbnailMaxPixels:    0,
	KeyOutputFormat:          "jpeg",
	KeyOutputMaxWidth:        0,
	KeyOutputJPEGQuality:     90,
	KeyRateLimitPerMinute:    120,
	KeyRateLimitBurst:        20,
	KeyIDSeed:                "",
}

type Config struct {
	vp *viper.Viper
}

// NewConfig 从 DefaultPath 加载配置
func NewConfig() (*Config, error) {
	return Load(DefaultPath)
}

// Load 手动加载配置：先读 ini 文件，再用环境变量覆盖，文件不存在时自动创建默认文件
func Load(filePath string) (*Config, error) {
	vp := viper.New()
	for key, value := range defaults {
		vp.SetDefault(key, value)
	}

	// --- 步骤 1: 使用 go-ini 从文件加载配置 ---
	iniCfg, err := ini.Load(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("提示: 未找到 %s，将创建默认配置文件。", filePath)
			if err := createDefaultConfigFile(filePath); err != nil {
				log.Printf("警告: 创建默认配置文件失败: %v，将仅依赖环境变量或内部默认值。", err)
			} else {
				log.Printf("✅ 已创建默认配置文件: %s", filePath)
				iniCfg, err = ini.Load(filePath)
				if err != nil {
					log.Printf("警告: 重新加载配置文件失败: %v", err)
				}
			}
		} else {
			return nil, fmt.Errorf("错误: 解析配置文件 '%s' 失败: %w", filePath, err)
		}
	}

	if iniCfg != nil {
		for _, section := range iniCfg.Sections() {
			for _, key := range section.Keys() {
				// 构建 Viper 使用的 key，例如 "Gallery.Root"
				viperKey := fmt.Sprintf("%s.%s", section.Name(), key.Name())
				if section.Name() == ini.DefaultSection {
					viperKey = key.Name()
				}
				vp.Set(viperKey, key.Value())
			}
		}
		log.Printf("从 %s 文件加载了配置。", filePath)
	}

	// --- 步骤 2: 手动检查并覆盖环境变量 ---
	envReplacer := strings.NewReplacer(".", "_")
	for key := range defaults {
		// 构建环境变量名，例如 RAWVIEW_GALLERY_ROOT
		envVarName := fmt.Sprintf("%s_%s", envPrefix, envReplacer.Replace(strings.ToUpper(key)))
		if value, found := os.LookupEnv(envVarName); found {
			vp.Set(key, value)
			log.Printf("发现环境变量: %s, 已覆盖配置 '%s'。", envVarName, key)
		}
	}

	log.Println("✅ 配置加载器初始化完成。")
	return &Config{vp: vp}, nil
}

func (c *Config) GetString(key string) string {
	return c.vp.GetString(key)
}

func (c *Config) GetInt(key string) int {
	return c.vp.GetInt(key)
}

func (c *Config) GetInt64(key string) int64 {
	return c.vp.GetInt64(key)
}

func (c *Config) GetBool(key string) bool {
	return c.vp.GetBool(key)
}

// GetDuration 接受 "30s"、"2m" 这样的时长字符串，纯数字按秒处理
func (c *Config) GetDuration(key string) time.Duration {
	raw := strings.TrimSpace(c.vp.GetString(key))
	if raw == "" {
		return 0
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if n := c.vp.GetInt(key); n > 0 {
		return time.Duration(n) * time.Second
	}
	log.Printf("警告: 配置 '%s' 的值 '%s' 不是有效的时长，已忽略。", key, raw)
	return 0
}

// GetStringSlice 读取逗号分隔的列表，去掉空白和空项
func (c *Config) GetStringSlice(key string) []string {
	var out []string
	for _, part := range strings.Split(c.vp.GetString(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Set 覆盖单个配置项，供命令行参数使用
func (c *Config) Set(key string, value any) {
	c.vp.Set(key, value)
}

// createDefaultConfigFile 创建默认的配置文件
func createDefaultConfigFile(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	defaultConfig := `[System]
Port = 8091
Debug = false

[Gallery]
# 存放 RAW 文件的目录，只扫描第一层
Root = data/raw
Columns = 3
Extensions = nef,nrw,cr2,dng,arw,srf,sr2,orf,rw2,raf,pef,srw,3fr,erf,kdc,dcr,mos,iiq
# cron 表达式，支持秒字段和 @every
RescanSchedule = @every 5m
RescanTimeout = 10m

[Thumbnail]
# 按长度排序后跳过的最小预览数量
Skip = 1
# 0 表示使用 CPU 核数
Workers = 0
Timeout = 30s
# 0 表示不限制
MaxFileSize = 0
MaxPixels = 0

[Output]
# jpeg 或 png
Format = jpeg
MaxWidth = 0
JPEGQuality = 90

[RateLimit]
# 每个 IP 每分钟可请求的预览数，0 表示不限制
PerMinute = 120
Burst = 20

[ID]
# 公共 ID 字母表的打乱种子，留空时使用默认字母表
Seed =
`

	if err := os.WriteFile(filePath, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-06-28 00:21:55
 * @LastEditTime: 2025-10-14 21:48:03
 * @LastEditors: 安知鱼
 */
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/anzhiyu-c/anheyu-rawview/cmd/server"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/config"
)

// @title           Anheyu RawView API
// @version         1.0
// @description     RAW 文件内嵌预览画廊接口文档

// @contact.name   安知鱼
// @contact.url    https://github.com/anzhiyu-c/anheyu-rawview

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8091
// @BasePath  /api
func main() {
	// 解析命令行参数
	var exportDir, srcDir, inspectFile string
	flag.StringVar(&exportDir, "export", "", "将画廊目录中所有 RAW 文件的预览导出到指定目录后退出")
	flag.StringVar(&srcDir, "dir", "", "导出时使用的 RAW 目录，默认为配置中的 Gallery.Root")
	flag.StringVar(&inspectFile, "inspect", "", "打印指定 RAW 文件的缩略图目录后退出")
	flag.Parse()

	if exportDir != "" || inspectFile != "" {
		cfg, err := config.NewConfig()
		if err != nil {
			log.Fatalf("加载配置失败: %v", err)
		}

		if inspectFile != "" {
			if err := server.Inspect(cfg, inspectFile, os.Stdout); err != nil {
				log.Fatalf("解析文件失败: %v", err)
			}
			return
		}

		report, err := server.Export(context.Background(), cfg, srcDir, exportDir, os.Stdout)
		if err != nil {
			log.Fatalf("导出预览失败: %v", err)
		}
		if report.ShouldFail() {
			os.Exit(1)
		}
		return
	}

	// 调用位于 cmd/server 包中的 NewApp 函数来构建整个应用
	app, cleanup, err := server.NewApp()
	if err != nil {
		log.Fatalf("应用初始化失败: %v", err)
	}

	// 使用 defer 来确保 cleanup 函数在 main 退出时被调用
	defer cleanup()

	// 确保后台任务在程序退出时被停止
	defer app.Stop()

	app.PrintBanner()

	// 启动应用
	if err := app.Run(); err != nil {
		log.Fatalf("应用运行失败: %v", err)
	}
}

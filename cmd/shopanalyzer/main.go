package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mirror173/shop-analyzer/internal/analyzer"
	"github.com/mirror173/shop-analyzer/internal/config"
	"github.com/mirror173/shop-analyzer/internal/model"
	"github.com/mirror173/shop-analyzer/internal/schema"
	"github.com/mirror173/shop-analyzer/internal/server"
	"github.com/mirror173/shop-analyzer/internal/service/excel"
	"github.com/mirror173/shop-analyzer/internal/service/report"
	"github.com/mirror173/shop-analyzer/internal/util"
)

var (
	port        = flag.Int("port", 0, "服务端口 (覆盖config.toml)")
	devMode     = flag.Bool("dev", false, "开发模式")
	dataDir     = flag.String("dataDir", "", "数据目录 (覆盖配置文件)")
	analyzeFile = flag.String("analyze", "", "命令行模式：分析单个Excel文件")
	compareBase = flag.String("baseline", "", "命令行模式：对比基期Excel文件")
	compareCur  = flag.String("current", "", "命令行模式：对比本期Excel文件")
	outputPath  = flag.String("output", "", "命令行模式：分析结果Excel输出路径")
	reportPath  = flag.String("report", "", "命令行模式：文本报告输出路径（缺省打印到控制台）")
	topN        = flag.Int("top", 0, "榜单长度 (覆盖配置)")
)

func main() {
	flag.Parse()

	// .env 仅用于本地开发覆盖
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("加载配置失败，使用默认配置: %v", err)
		cfg = config.DefaultConfig()
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}
	if *topN > 0 {
		cfg.Analysis.TopN = *topN
	}

	// 命令行模式
	if *compareBase != "" || *compareCur != "" {
		if err := runCompare(cfg); err != nil {
			log.Fatalf("对比失败: %v", err)
		}
		return
	}
	if *analyzeFile != "" {
		if err := runAnalyze(cfg); err != nil {
			log.Fatalf("分析失败: %v", err)
		}
		return
	}

	runServer(cfg)
}

// runServer 启动仪表板服务
func runServer(cfg *config.AppConfig) {
	fmt.Println("==========================================")
	fmt.Println("  店铺业绩分析系统")
	fmt.Println("==========================================")

	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		log.Printf("创建数据目录失败: %v", err)
	} else {
		fmt.Printf("数据目录: %s\n", dataDir)
	}

	srv := server.NewServer(cfg)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

	go func() {
		fmt.Printf("服务启动中，监听端口 %d ...\n", cfg.Server.Port)
		if err := srv.Run(addr); err != nil {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	if !cfg.Server.DevMode {
		fmt.Printf("正在打开浏览器: %s\n", url)
		if err := util.OpenBrowserWithFallback(url); err != nil {
			fmt.Printf("无法自动打开浏览器，请手动访问: %s\n", url)
		}
	} else {
		fmt.Printf("开发模式: 请访问 %s\n", url)
	}

	fmt.Println("\n按 Ctrl+C 停止服务...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\n服务已停止")
}

// runAnalyze 单文件分析：文本报告 + Excel导出
func runAnalyze(cfg *config.AppConfig) error {
	ds, mapping, err := openFirstSheet(*analyzeFile)
	if err != nil {
		return err
	}
	fmt.Printf("✓ 成功加载数据，共 %d 行\n", ds.Len())

	opts := analyzer.Options{TopN: cfg.Analysis.TopN}
	if baseline, current, ok := analyzer.LatestPeriods(ds.Records, mapping); ok {
		opts.BaselineMonth = baseline
		opts.CurrentMonth = current
	}

	bundle := analyzer.Analyze(ds.Records, mapping, opts)

	text := report.NewGenerator().Generate(bundle)
	if *reportPath != "" {
		if err := os.WriteFile(*reportPath, []byte(text), 0644); err != nil {
			return fmt.Errorf("写入报告失败: %w", err)
		}
		fmt.Printf("✓ 报告已保存到: %s\n", *reportPath)
	} else {
		fmt.Println(text)
	}

	out := *outputPath
	if out == "" {
		out = filepath.Join(filepath.Dir(*analyzeFile),
			fmt.Sprintf("分析结果_%s.xlsx", time.Now().Format("20060102_150405")))
	}

	file, err := excel.NewExporter().Export(bundle)
	if err != nil {
		return err
	}
	if err := file.SaveAs(out); err != nil {
		return fmt.Errorf("导出Excel失败: %w", err)
	}
	fmt.Printf("✓ 分析结果已导出到: %s\n", out)

	return nil
}

// runCompare 两文件对比模式
func runCompare(cfg *config.AppConfig) error {
	if *compareBase == "" || *compareCur == "" {
		return fmt.Errorf("对比模式需要同时指定 -baseline 和 -current")
	}

	baseDS, baseMapping, err := openFirstSheet(*compareBase)
	if err != nil {
		return fmt.Errorf("基期文件: %w", err)
	}
	curDS, curMapping, err := openFirstSheet(*compareCur)
	if err != nil {
		return fmt.Errorf("本期文件: %w", err)
	}

	comparison, ok := analyzer.CompareDatasets(baseDS.Records, baseMapping, curDS.Records, curMapping, analyzer.GroupByProduct)
	if !ok {
		return fmt.Errorf("缺少分组列或数值列，无法对比")
	}

	bundle := &analyzer.Bundle{
		Comparison: comparison,
		MonthlyStats: analyzer.Overview(
			analyzer.Summarize(baseDS.Records, baseMapping),
			analyzer.Summarize(curDS.Records, curMapping)),
	}

	fmt.Println("\n【月度对比分析】")
	fmt.Println(report.NewGenerator().Generate(bundle))

	if *outputPath != "" {
		file, err := excel.NewExporter().Export(bundle)
		if err != nil {
			return err
		}
		if err := file.SaveAs(*outputPath); err != nil {
			return fmt.Errorf("导出Excel失败: %w", err)
		}
		fmt.Printf("✓ 对比结果已保存到: %s\n", *outputPath)
	}

	return nil
}

// openFirstSheet 打开Excel文件的第一个工作表并解析角色映射
func openFirstSheet(path string) (*model.Dataset, schema.RoleMapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	parser := excel.NewParser()
	if err := parser.LoadFile(f); err != nil {
		return nil, nil, err
	}

	sheet, err := parser.FirstSheet()
	if err != nil {
		return nil, nil, err
	}

	ds, err := parser.Records(sheet)
	if err != nil {
		return nil, nil, err
	}

	mapping := schema.Resolve(ds.Columns)
	if mapping.Empty() {
		fmt.Println("⚠ 无法自动识别列名，将只输出原始统计")
		fmt.Printf("当前列名: %v\n", ds.Columns)
	}

	return ds, mapping, nil
}

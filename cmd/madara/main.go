package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/John-Robertt/madara/internal/infra/httpx"
	"github.com/John-Robertt/madara/internal/infra/logx"
	"github.com/John-Robertt/madara/internal/platform"
	"github.com/John-Robertt/madara/internal/profile"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("madara", flag.ContinueOnError)
	var (
		siteName    = fs.String("site", "", "内置站点名（与 -profile 二选一）")
		profilePath = fs.String("profile", "", "站点 profile 的 yaml 文件路径")
		proxyURL    = fs.String("proxy", "", "代理地址（可选）")
		logFile     = fs.String("log-file", "", "同时把日志写入轮转文件（可选）")
		verbose     = fs.Bool("v", false, "输出 debug 级日志")
	)
	fs.Usage = func() { printUsage(fs) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(fs)
		return 2
	}

	level := zapcore.InfoLevel
	if *verbose {
		level = zapcore.DebugLevel
	}
	core := logx.NewStderrCore(level)
	if *logFile != "" {
		fileCore, closer := logx.NewFileCore(*logFile, level)
		defer closer.Close()
		core = zapcore.NewTee(core, fileCore)
	}
	logger := logx.New(core)
	defer logger.Sync()

	p, err := resolveProfile(*siteName, *profilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载站点配置失败：%v\n", err)
		return 1
	}

	client, err := httpx.New(*proxyURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化 HTTP client 失败：%v\n", err)
		return 1
	}

	src := platform.NewSource(p, client, logger)
	ctx := context.Background()

	if err := dispatch(ctx, src, rest[0], rest[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return 0
}

func resolveProfile(siteName, profilePath string) (profile.Profile, error) {
	if profilePath != "" {
		return profile.LoadFile(profilePath)
	}
	if siteName == "" {
		return profile.Profile{}, fmt.Errorf("必须指定 -site 或 -profile")
	}
	reg, err := profile.Builtin()
	if err != nil {
		return profile.Profile{}, err
	}
	p, ok := reg.Get(siteName)
	if !ok {
		return profile.Profile{}, fmt.Errorf("未知站点 %q（可用：%s）", siteName, strings.Join(reg.Names(), ", "))
	}
	return p, nil
}

func dispatch(ctx context.Context, src *platform.Source, cmd string, args []string) error {
	switch cmd {
	case "detail":
		if len(args) != 1 {
			return fmt.Errorf("用法：detail <标题 slug>")
		}
		m, err := src.GetMangaDetails(ctx, args[0])
		if err != nil {
			return err
		}
		return emit(m)

	case "chapters":
		if len(args) != 1 {
			return fmt.Errorf("用法：chapters <数字 id>")
		}
		chapters, err := src.GetChapters(ctx, args[0])
		if err != nil {
			return err
		}
		return emit(chapters)

	case "pages":
		if len(args) != 2 {
			return fmt.Errorf("用法：pages <标题 id> <章节 id>")
		}
		pages, err := src.GetChapterDetails(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return emit(pages)

	case "search":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("用法：search <关键词> [页号]")
		}
		meta, err := pageArg(args, 1)
		if err != nil {
			return err
		}
		results, err := src.Search(ctx, args[0], meta)
		if err != nil {
			return err
		}
		return emit(results)

	case "home":
		if len(args) != 0 {
			return fmt.Errorf("用法：home")
		}
		// 每个栏目会回调两次（空壳 + 数据）；CLI 只输出有数据的那次。
		return src.GetHomeSections(ctx, func(s platform.HomeSection) {
			if len(s.Items) > 0 {
				_ = emit(s)
			}
		})

	case "more":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("用法：more <栏目 id> [页号]")
		}
		meta, err := pageArg(args, 1)
		if err != nil {
			return err
		}
		results, err := src.GetViewMoreItems(ctx, args[0], meta)
		if err != nil {
			return err
		}
		return emit(results)

	case "tags":
		if len(args) != 0 {
			return fmt.Errorf("用法：tags")
		}
		sections, err := src.GetTags(ctx)
		if err != nil {
			return err
		}
		return emit(sections)

	case "updates":
		if len(args) < 2 {
			return fmt.Errorf("用法：updates <回看时长，如 72h> <id> [id...]")
		}
		d, err := time.ParseDuration(args[0])
		if err != nil {
			return fmt.Errorf("无法解析回看时长 %q：%w", args[0], err)
		}
		return src.FilterUpdatedManga(ctx, func(ids []string) {
			_ = emit(ids)
		}, time.Now().Add(-d), args[1:])

	default:
		return fmt.Errorf("未知命令：%q", cmd)
	}
}

func pageArg(args []string, idx int) (*platform.PageMetadata, error) {
	if len(args) <= idx {
		return nil, nil
	}
	page, err := strconv.Atoi(args[idx])
	if err != nil || page < 0 {
		return nil, fmt.Errorf("页号必须是非负整数：%q", args[idx])
	}
	return &platform.PageMetadata{Page: page}, nil
}

func emit(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprint(os.Stderr, `madara - Madara 模板站点的目录抓取工具

用法：
  madara [-site 名称 | -profile 文件] [-proxy 地址] [-v] <命令> [参数]

命令：
  detail   <标题 slug>            标题详情
  chapters <数字 id>              章节列表
  pages    <标题 id> <章节 id>    章节页面图片
  search   <关键词> [页号]        搜索一页
  home                            首页栏目
  more     <栏目 id> [页号]       续取栏目一页
  tags                            站点分类
  updates  <回看时长> <id>...     增量更新扫描

选项：
`)
	fs.PrintDefaults()
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/TErenberger/PhotoPuller/internal/app/session"
	"github.com/TErenberger/PhotoPuller/internal/config"
	"github.com/TErenberger/PhotoPuller/internal/domain"
	"github.com/TErenberger/PhotoPuller/internal/infra/fsx"
)

// runReport 是 run 命令对外稳定输出的结构（stdout JSON 契约）。
type runReport struct {
	Source      string           `json:"source"`
	Destination string           `json:"destination"`
	DryRun      bool             `json:"dry_run"`
	Scan        domain.ScanStats `json:"scan"`
	Copy        domain.CopyStats `json:"copy"`
}

func newRunCommand() *cobra.Command {
	var (
		source      string
		destination string
		photos      bool
		videos      bool
		pdfs        bool
		exclude     []string
		organizeBy  string
		dryRun      bool
		seedDest    bool
		exifDates   bool
		jsonOut     bool
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "扫描源目录并把匹配文件拷贝到目标目录",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}

			eff, err := config.LoadEffective(cwd, config.CLIArgs{
				Source:        source,
				Destination:   destination,
				Photos:        photos,
				Videos:        videos,
				PDFs:          pdfs,
				TypesSet:      photos || videos || pdfs,
				OrganizeBy:    organizeBy,
				OrganizeBySet: cmd.Flags().Changed("organize-by"),
				DryRun:        dryRun,
				DryRunSet:     cmd.Flags().Changed("dry-run"),
				Exclude:       exclude,
				SeedDest:      seedDest,
				SeedDestSet:   cmd.Flags().Changed("seed-dest"),
				ExifDates:     exifDates,
				ExifDatesSet:  cmd.Flags().Changed("exif-dates"),
			})
			if err != nil {
				return err
			}

			// Ctrl-C：协作式取消，在文件系统条目之间生效，返回部分统计。
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			sess := session.New()
			for _, d := range eff.ExcludeDirs {
				sess.AddExclusion(d)
			}

			ui := newProgressUI(os.Stderr, quiet)

			ui.printf("扫描：%s\n", eff.Source)
			scanStats, err := sess.Scan(ctx, eff.Source, eff.Filters, ui.onScanProgress)
			if err != nil {
				return err
			}
			ui.scanDone(scanStats)

			copyStats, err := sess.CopyFiles(ctx, eff.Destination, eff.OrganizeBy, session.CopyOptions{
				DryRun:       eff.DryRun,
				SeedDest:     eff.SeedDest,
				ExifDates:    eff.ExifDates,
				Progress:     ui.onCopyProgress,
				FileProgress: ui.onFileProgress,
			})
			if err != nil {
				return err
			}
			ui.copyDone(copyStats)

			report := runReport{
				Source:      eff.Source,
				Destination: eff.Destination,
				DryRun:      eff.DryRun,
				Scan:        scanStats,
				Copy:        copyStats,
			}

			// 真实 run：把报告落盘到目标根（dry-run 禁止任何写入）。
			if !eff.DryRun {
				if werr := writeReportFile(eff.Destination, report); werr != nil {
					fmt.Fprintf(os.Stderr, "写入报告失败：%v\n", werr)
				}
			}

			emitRunReport(report, jsonOut)

			if copyStats.Failed > 0 {
				return fmt.Errorf("%d 个文件拷贝失败（详见统计）", copyStats.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "要扫描的源目录")
	cmd.Flags().StringVarP(&destination, "destination", "d", "", "拷贝到的目标目录")
	cmd.Flags().BoolVar(&photos, "photos", false, "包含照片")
	cmd.Flags().BoolVar(&videos, "videos", false, "包含视频")
	cmd.Flags().BoolVar(&pdfs, "pdfs", false, "包含 PDF")
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "排除的目录（可重复）")
	cmd.Flags().StringVar(&organizeBy, "organize-by", "date", "组织方式：date（年/月）或 source（按来源）")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "只报告将会拷贝什么，不实际拷贝")
	cmd.Flags().BoolVar(&seedDest, "seed-dest", false, "先预扫目标目录做跨 run 去重")
	cmd.Flags().BoolVar(&exifDates, "exif-dates", false, "date 布局的照片优先使用 EXIF 拍摄时间")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "以 JSON 输出结果")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "不输出进度")
	return cmd
}

// emitRunReport：stdout 非 TTY 或 --json 时，stdout 必须且仅输出一个 JSON 报告
// （人类可读的摘要走 stderr）；交互终端输出摘要表格。
func emitRunReport(r runReport, forceJSON bool) {
	if forceJSON || !stdoutIsTTY() {
		enc := json.NewEncoder(os.Stdout)
		_ = enc.Encode(r)
		fmt.Fprintf(os.Stderr, "完成：copied=%d duplicates=%d skipped=%d failed=%d\n",
			r.Copy.Copied, r.Copy.Duplicates, r.Copy.Skipped, r.Copy.Failed)
		return
	}

	fmt.Fprintln(os.Stdout, renderScanTable(r.Scan))
	fmt.Fprintln(os.Stdout, renderCopyTable(r.Copy))
	printFailures(os.Stderr, r.Copy)
}

// printFailures 列出前若干条失败（路径 + 原因），避免刷屏。
func printFailures(w *os.File, c domain.CopyStats) {
	const maxShown = 20
	for i, f := range c.Failures {
		if i >= maxShown {
			fmt.Fprintf(w, "…… 以及另外 %d 条失败\n", len(c.Failures)-maxShown)
			break
		}
		fmt.Fprintf(w, "%s %s: %s\n", f.Path, f.Kind, f.Msg)
	}
}

func writeReportFile(destRoot string, r runReport) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(destRoot, "photopull-report.json", b)
}

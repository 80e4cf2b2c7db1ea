package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/TErenberger/PhotoPuller/internal/app/session"
	"github.com/TErenberger/PhotoPuller/internal/domain"
)

func newScanCommand() *cobra.Command {
	var (
		source  string
		photos  bool
		videos  bool
		pdfs    bool
		exclude []string
		jsonOut bool
		quiet   bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "只扫描，不拷贝（输出统计）",
		RunE: func(cmd *cobra.Command, args []string) error {
			if source == "" && len(args) > 0 {
				source = args[0]
			}
			if source == "" {
				return fmt.Errorf("缺少源目录（--source 或位置参数）")
			}

			filters := domain.TypeFilters{Photos: photos, Videos: videos, PDFs: pdfs}
			if !filters.Any() {
				// 未指定任何类型：默认全选。
				filters = domain.TypeFilters{Photos: true, Videos: true, PDFs: true}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			sess := session.New()
			for _, d := range exclude {
				sess.AddExclusion(d)
			}

			ui := newProgressUI(os.Stderr, quiet)
			stats, err := sess.Scan(ctx, source, filters, ui.onScanProgress)
			if err != nil {
				return err
			}
			ui.scanDone(stats)

			if jsonOut || !stdoutIsTTY() {
				enc := json.NewEncoder(os.Stdout)
				return enc.Encode(stats)
			}
			fmt.Fprintln(os.Stdout, renderScanTable(stats))
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "要扫描的源目录")
	cmd.Flags().BoolVar(&photos, "photos", false, "包含照片")
	cmd.Flags().BoolVar(&videos, "videos", false, "包含视频")
	cmd.Flags().BoolVar(&pdfs, "pdfs", false, "包含 PDF")
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "排除的目录（可重复）")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "以 JSON 输出结果")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "不输出进度")
	return cmd
}

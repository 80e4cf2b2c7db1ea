package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/TErenberger/PhotoPuller/internal/domain"
)

// renderStatsTable 渲染一个两列的“指标 / 值”表。
func renderStatsTable(title string, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(title)
	tw.AppendHeader(table.Row{"指标", "值"})
	for _, row := range rows {
		tw.AppendRow(table.Row{row[0], row[1]})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func renderScanTable(s domain.ScanStats) string {
	rows := [][]string{
		{"源目录", s.Root},
		{"访问条目", fmt.Sprintf("%d", s.TotalScanned)},
		{"匹配文件", fmt.Sprintf("%d", s.TotalFiles)},
		{"照片", fmt.Sprintf("%d", s.Found.Photos)},
		{"视频", fmt.Sprintf("%d", s.Found.Videos)},
		{"PDF", fmt.Sprintf("%d", s.Found.PDFs)},
		{"排除", fmt.Sprintf("%d", s.Excluded)},
		{"无法进入的目录", fmt.Sprintf("%d", len(s.SkippedDirs))},
		{"总字节", formatBytes(s.TotalBytes)},
		{"耗时", formatShortDuration(s.FinishedAt.Sub(s.StartedAt))},
	}
	title := "扫描"
	if s.Cancelled {
		title = "扫描（已取消，部分结果）"
	}
	return renderStatsTable(title, rows)
}

func renderCopyTable(c domain.CopyStats) string {
	copied := "拷贝"
	if c.DryRun {
		copied = "将会拷贝"
	}
	rows := [][]string{
		{"目标目录", c.Destination},
		{"布局", string(c.Layout)},
		{"总数", fmt.Sprintf("%d", c.Total)},
		{copied, fmt.Sprintf("%d", c.Copied)},
		{copied + "（照片）", fmt.Sprintf("%d", c.CopiedBy.Photos)},
		{copied + "（视频）", fmt.Sprintf("%d", c.CopiedBy.Videos)},
		{copied + "（PDF）", fmt.Sprintf("%d", c.CopiedBy.PDFs)},
		{"重复", fmt.Sprintf("%d", c.Duplicates)},
		{"已存在跳过", fmt.Sprintf("%d", c.Skipped)},
		{"失败", fmt.Sprintf("%d", c.Failed)},
		{"拷贝字节", formatBytes(c.BytesCopied)},
		{"耗时", formatShortDuration(c.FinishedAt.Sub(c.StartedAt))},
	}
	title := "拷贝"
	switch {
	case c.DryRun && c.Cancelled:
		title = "拷贝（dry-run，已取消）"
	case c.DryRun:
		title = "拷贝（dry-run）"
	case c.Cancelled:
		title = "拷贝（已取消，部分结果）"
	}
	return renderStatsTable(title, rows)
}

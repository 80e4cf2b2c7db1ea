package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TErenberger/PhotoPuller/internal/config"
	"github.com/TErenberger/PhotoPuller/internal/exclude"
)

// exclusions 子命令负责排除列表的跨进程持久化（写回 photopull.json）。
// 核心只在进程内维护排除集合；装载/保存是这一层的职责。
func newExclusionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exclusions",
		Short: "管理持久化的排除目录列表",
	}
	cmd.AddCommand(
		newExclusionsListCommand(),
		newExclusionsAddCommand(),
		newExclusionsRemoveCommand(),
		newExclusionsClearCommand(),
	)
	return cmd
}

func newExclusionsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "列出排除目录",
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, _, err := loadExclusionSet()
			if err != nil {
				return err
			}
			for _, d := range set.List() {
				fmt.Fprintln(os.Stdout, d)
			}
			return nil
		},
	}
}

func newExclusionsAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <目录>...",
		Short: "加入排除目录（重复加入是 no-op）",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, cwd, err := loadExclusionSet()
			if err != nil {
				return err
			}
			for _, d := range args {
				set.Add(d)
			}
			return config.SaveExclusions(cwd, set.List())
		},
	}
}

func newExclusionsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <目录>...",
		Short: "移除排除目录（移除不存在的是 no-op）",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, cwd, err := loadExclusionSet()
			if err != nil {
				return err
			}
			for _, d := range args {
				set.Remove(d)
			}
			return config.SaveExclusions(cwd, set.List())
		},
	}
}

func newExclusionsClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "清空排除目录列表",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cwd, err := loadExclusionSet()
			if err != nil {
				return err
			}
			return config.SaveExclusions(cwd, nil)
		},
	}
}

// loadExclusionSet 从 <cwd>/photopull.json 装载排除集合。
func loadExclusionSet() (*exclude.Set, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", err
	}
	dirs, err := config.LoadExclusions(cwd)
	if err != nil {
		return nil, "", err
	}
	set := exclude.NewSet()
	for _, d := range dirs {
		set.Add(d)
	}
	return set, cwd, nil
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sfidfw/fw/app"
	"sfidfw/fw/common/logx"
	"sfidfw/fw/common/ttime"
	"sfidfw/fw/core/firewall"
	"sfidfw/fw/db"
	"sfidfw/fw/db/dao"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var ops = logx.New(logx.WithPrefix("ops"))

/********** 事件历史清理（按天表） **********/

var purgeCmd = &cobra.Command{
	Use:   "purge <DATESPEC>",
	Short: "删除事件历史的日表",
	Long: `按日期删除 firewall_event_YYYYMMDD 表。
DATESPEC 支持两种：
  20250906-20251006   闭区间范围
  20250906,20250907   逗号分隔的日期列表`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error { return purgeEvents(a, args[0]) })
	},
}

func purgeEvents(a *app.App, dateSpec string) error {
	if a.LogDB == nil {
		return fmt.Errorf("log db disabled")
	}
	days, err := expandDateSpec(dateSpec)
	if err != nil {
		return err
	}
	if len(days) == 0 {
		ops.Infof("[purge] nothing to do")
		return nil
	}
	for _, d := range days {
		dropped, err := db.DropEventTable(a.LogDB, d)
		if err != nil {
			return fmt.Errorf("purge %s: %w", d, err)
		}
		if dropped {
			ops.Infof("[purge] dropped day %s", d)
		} else {
			ops.Infof("[purge] skip (not exists): %s", d)
		}
	}
	return nil
}

/********** 导出 / 导入 **********/

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "导出规则为 JSON 文档",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		return withApp(func(a *app.App) error {
			b, err := a.Engine.ExportJSON()
			if err != nil {
				return err
			}
			if exportOut == "" {
				_, err = c.OutOrStdout().Write(append(b, '\n'))
				return err
			}
			if exportOut == "." {
				exportOut = firewall.ExportFileName(time.Now())
			}
			if err := os.WriteFile(exportOut, b, 0o644); err != nil {
				return err
			}
			ops.Infof("[export] %d bytes -> %s", len(b), exportOut)
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "用导出文档替换全部规则",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		b, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return withApp(func(a *app.App) error {
			n, err := a.Engine.ImportRules(context.Background(), b)
			if err != nil {
				return err
			}
			ops.Infof("[import] %d rules imported from %s", n, args[0])
			return nil
		})
	},
}

/********** 状态重置 **********/

var resetLogsOnly bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "删除持久化的规则/配置档/日志，下次启动时重新写入默认值",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withApp(func(a *app.App) error {
			if a.KV == nil {
				return fmt.Errorf("master db disabled, nothing persisted")
			}
			removed, err := resetState(context.Background(), a.KV, resetLogsOnly)
			if err != nil {
				return err
			}
			ops.Infof("[reset] removed keys=%v", removed)
			return nil
		})
	},
}

// resetState 返回实际删除的 key
func resetState(ctx context.Context, kv *dao.KVStore, logsOnly bool) ([]string, error) {
	keys := []string{firewall.KeyRules, firewall.KeyProfiles, firewall.KeyLogs}
	if logsOnly {
		keys = []string{firewall.KeyLogs}
	}
	var removed []string
	for _, k := range keys {
		deleted, err := kv.Delete(ctx, k)
		if err != nil {
			return removed, fmt.Errorf("reset %s: %w", k, err)
		}
		if deleted {
			removed = append(removed, k)
		}
	}
	return removed, nil
}

/********** 规则列表 **********/

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "按优先级打印规则表",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		return withApp(func(a *app.App) error {
			printRules(c.OutOrStdout(), a.Engine.Info(), a.Engine.AllRules())
			return nil
		})
	},
}

func printRules(out io.Writer, info firewall.Info, rules []firewall.Rule) {
	fmt.Fprintf(out, "firewall enabled=%v profile=%s rules=%d active=%d\n",
		info.Enabled, info.CurrentProfile, info.TotalRules, info.ActiveRules)
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tPRIO\tON\tACTION\tDIR\tPROTO\tPORT\tSOURCE\tDEST\tNAME")
	for _, r := range rules {
		on := "-"
		if r.Enabled {
			on = "✓"
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Priority, on, r.Action, r.Direction, r.Protocol, r.Port, r.Source, r.Destination, r.Name)
	}
	w.Flush()
}

/********** 工具 **********/

// withApp 组装应用（不启动 HTTP / 后台任务），用完即关
func withApp(fn func(a *app.App) error) error {
	cfg, p, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.NewWithConfig(cfg, p)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Stop()
	return fn(a)
}

/********** 日期展开 **********/

// expandDateSpec "20250906-20251006" 范围（闭区间）或 "20250906,20250907" 列表，结果升序去重
func expandDateSpec(spec string) ([]string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	if strings.Contains(spec, "-") {
		ps := strings.Split(spec, "-")
		if len(ps) != 2 {
			return nil, fmt.Errorf("bad range: %s", spec)
		}
		start, err := parseDay(ps[0])
		if err != nil {
			return nil, err
		}
		end, err := parseDay(ps[1])
		if err != nil {
			return nil, err
		}
		if end.Before(start) {
			return nil, fmt.Errorf("bad range: end before start")
		}
		var out []string
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			out = append(out, ttime.Day(d))
		}
		return out, nil
	}

	uniq := make(map[string]struct{})
	for _, p := range strings.Split(spec, ",") {
		d, err := parseDay(p)
		if err != nil {
			return nil, err
		}
		uniq[ttime.Day(d)] = struct{}{}
	}
	out := make([]string, 0, len(uniq))
	for k := range uniq {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// parseDay 只接受 8 位 YYYYMMDD
func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) != 8 {
		return time.Time{}, fmt.Errorf("bad date: %s", s)
	}
	return ttime.ParseDay(s)
}

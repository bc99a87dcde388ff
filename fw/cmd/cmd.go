package cmd

import (
	"os"
	"sfidfw/fw/common/config"
	"sfidfw/fw/common/logx"
	"sfidfw/fw/server"

	"github.com/spf13/cobra"
)

var cmdLog = logx.New(logx.WithPrefix("cmd"))

const defaultConfig = "./config/config.yaml"

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "sfidfw [command]",
	Short: "SFID 防火墙规则引擎服务",
	Long: `sfidfw 是一个防火墙规则评估服务：
按优先级匹配规则、记录事件与统计，并通过 HTTP API / websocket 提供管理。
不带子命令时直接启动服务。`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(*cobra.Command, []string) error {
	cfg, p, err := loadConfig()
	if err != nil {
		return err
	}
	return server.Run(cfg, p)
}

// loadConfig --debug 覆盖配置中的日志级别
func loadConfig() (*config.Config, string, error) {
	cfg, p, err := config.Load(cfgFile)
	if err != nil {
		return nil, p, err
	}
	if debug {
		cfg.Logging.Level = "debug"
	}
	logx.SetLevelString(cfg.Logging.Level)
	return cfg, p, nil
}

// Execute 由 main.main() 调用
func Execute() {
	must(rootCmd.Execute())
}

func must(err error) {
	if err != nil {
		cmdLog.Errorf("%v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfig, "配置文件路径（不存在时回退到 "+config.EtcPath+"）")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "开启调试日志")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "输出文件（\".\" 使用默认文件名，空则写 stdout）")
	resetCmd.Flags().BoolVar(&resetLogsOnly, "logs-only", false, "只清除事件日志缓冲")
	rootCmd.AddCommand(serveCmd, purgeCmd, exportCmd, importCmd, rulesCmd, resetCmd)
}

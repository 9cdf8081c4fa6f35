package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	openResult bool
)

var rootCmd = &cobra.Command{
	Use:   "stdcheck",
	Short: "检查报告中引用的国家/行业标准是否现行、名称是否正确",
	Long: `stdcheck 维护一份从 www.csres.com 检索得到的标准库工作簿，
并用它检查 .docx 报告中的标准引用。

  stdcheck update   重新检索标准库中的全部编号
  stdcheck check    检查报告目录中的全部 .docx
  stdcheck serve    启动查询/检查 HTTP 接口

账号通过环境变量或 .env 提供：CSRES_USERNAME、CSRES_PASSWORD；
SRC / DEST 可覆盖读取和写出的标准库路径。`,
	SilenceUsage: true,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "更新标准库：逐个重新检索已有编号",
	Args:  cobra.NoArgs,
	RunE:  runUpdate,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "检查报告：抽取标准引用，补充检索未收录的编号后逐条检查",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 接口",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "配置文件管理",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "写出默认配置文件",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "显示生效的配置",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var (
	servePort  int
	forceWrite bool
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认：可执行文件目录下的 config.toml）")

	checkCmd.Flags().BoolVar(&openResult, "open", false, "完成后打开结果目录")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "服务端口（覆盖配置文件）")
	serveCmd.Flags().BoolVar(&openResult, "open", false, "启动后打开浏览器")
	configInitCmd.Flags().BoolVarP(&forceWrite, "force", "f", false, "覆盖已存在的配置文件")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

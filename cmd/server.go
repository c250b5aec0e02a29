package cmd

import (
	"StemShare/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动StemShare服务器",
	Long:  `启动HTTP服务器，提供上传接口、分享页、分轨文件代理和播放器WebSocket`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StemShare/config"
	"StemShare/core/upload"
	"StemShare/core/watch"
	"StemShare/logger"

	"github.com/spf13/cobra"
)

var (
	watchSettle time.Duration
	watchOrigin string
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "监听导出目录并自动上传",
	Long: `监听 DAW 的导出目录。文件写入完成并稳定一段时间后，
按文件名推断的曲名分组，每组作为一首曲目上传并输出分享链接。`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		initCLILogger(cfg, true)
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		uploader, closeDeps, err := newUploader(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeDeps()

		origin := cliOrigin(cfg, watchOrigin)
		w := watch.New(args[0], watchSettle, func(ctx context.Context, g watch.Group) error {
			files := make([]upload.File, 0, len(g.Paths))
			for _, p := range g.Paths {
				f, err := upload.FromPath(p)
				if err != nil {
					return err
				}
				files = append(files, f)
			}
			var draft upload.Draft
			draft.AddFiles(files)
			if draft.Stems.Count() == 0 {
				logger.Info("没有可识别的分轨，跳过", logger.String("title", g.Title))
				return nil
			}

			result, err := uploader.Submit(ctx, upload.SubmitRequest{
				Origin: origin,
				Title:  draft.Title,
				Stems:  draft.Stems,
			}, nil)
			if err != nil {
				return err
			}
			fmt.Printf("%s -> %s\n", draft.Title, result.ShareURL)
			return nil
		})
		return w.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchSettle, "settle", watch.DefaultSettle, "文件多长时间没有变化才开始上传")
	watchCmd.Flags().StringVar(&watchOrigin, "origin", "", "分享链接的站点地址，默认使用 PUBLIC_ORIGIN")
}

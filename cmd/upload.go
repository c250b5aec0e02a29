package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"StemShare/config"
	"StemShare/core/stem"
	"StemShare/core/upload"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

var (
	uploadTitle   string
	uploadOrigin  string
	uploadCopy    bool
	uploadVerbose bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file|dir>...",
	Short: "上传分轨并生成分享链接",
	Long: `按文件名自动识别分轨类型（Vocals/Drums/Bass/Guitar/Piano/Other），
逐个上传到对象存储并写入曲目记录，最后输出分享链接。
传入目录时读取目录下的音频文件（不递归）。`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		initCLILogger(cfg, uploadVerbose)

		files, err := collectFiles(args)
		if err != nil {
			return err
		}

		draft := upload.Draft{Title: uploadTitle}
		placed := draft.AddFiles(files)
		for _, f := range files {
			t, ok := stem.Classify(f.Name)
			switch {
			case !stem.IsAudioFile(f.Name, f.ContentType):
				fmt.Printf("  跳过 %s（不是音频文件）\n", f.Name)
			case !ok:
				fmt.Printf("  跳过 %s（无法识别分轨类型）\n", f.Name)
			case draft.Stems[t] == nil || draft.Stems[t].Name != f.Name:
				fmt.Printf("  跳过 %s（%s 已有文件）\n", f.Name, t.Label())
			}
		}
		for _, t := range placed {
			fmt.Printf("  %-7s %s\n", t.Label(), draft.Stems[t].Name)
		}
		if err := upload.Validate(draft.Title, draft.Stems); err != nil {
			return errors.New(upload.Message(err))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		uploader, closeDeps, err := newUploader(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeDeps()

		fmt.Printf("上传 %q（%d 个分轨）\n", draft.Title, draft.Stems.Count())
		result, err := uploader.Submit(ctx, upload.SubmitRequest{
			Origin: cliOrigin(cfg, uploadOrigin),
			Title:  draft.Title,
			Stems:  draft.Stems,
		}, func(p float64) {
			fmt.Printf("\r  进度 %3.0f%%", p)
		})
		fmt.Println()
		if err != nil {
			return err
		}

		fmt.Println("分享链接:", result.ShareURL)
		if uploadCopy {
			if err := clipboard.WriteAll(result.ShareURL); err != nil {
				fmt.Println("复制到剪贴板失败:", err)
			} else {
				fmt.Println("Copied!")
			}
		}
		return nil
	},
}

// collectFiles 展开参数中的目录，只保留音频文件（单独指定的文件原样保留，由分类器决定）
func collectFiles(args []string) ([]upload.File, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var inDir []string
		for _, e := range entries {
			if !e.IsDir() && stem.HasAudioExtension(e.Name()) && !strings.HasPrefix(e.Name(), ".") {
				inDir = append(inDir, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(inDir)
		paths = append(paths, inDir...)
	}

	files := make([]upload.File, 0, len(paths))
	for _, p := range paths {
		f, err := upload.FromPath(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVarP(&uploadTitle, "title", "t", "", "曲名，默认从第一个识别出的文件名推断")
	uploadCmd.Flags().StringVar(&uploadOrigin, "origin", "", "分享链接的站点地址，默认使用 PUBLIC_ORIGIN")
	uploadCmd.Flags().BoolVarP(&uploadCopy, "copy", "c", false, "把分享链接复制到剪贴板")
	uploadCmd.Flags().BoolVarP(&uploadVerbose, "verbose", "v", false, "输出详细日志")

	uploadCmd.Example = `  # 上传一个导出目录
  stemshare upload ./bounces/MySong

  # 指定曲名并复制链接
  stemshare upload -t "My Song" -c Song_Vocals.wav Song_Drums.wav`
}

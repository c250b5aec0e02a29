package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"StemShare/config"
	"StemShare/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix    string
	minioStats     bool
	minioRecursive bool
	minioDelete    bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看和管理分轨存储桶：列出文件、查看统计信息、按曲目显示分轨、删除某个曲目目录。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		initCLILogger(cfg, false)
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		store, err := storage.NewMinioStore(cfg)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		switch {
		case minioDelete:
			n, err := store.DeletePrefix(ctx, minioPrefix)
			if err != nil {
				return fmt.Errorf("删除目录失败: %w", err)
			}
			fmt.Printf("成功删除目录 %s 及其下的 %d 个文件\n", minioPrefix, n)
			return nil
		case minioStats:
			_, stats, err := store.List(ctx, minioPrefix, true)
			if err != nil {
				return err
			}
			printStats(store.Bucket(), stats)
			return nil
		case minioRecursive:
			objects, stats, err := store.List(ctx, minioPrefix, true)
			if err != nil {
				return err
			}
			printStats(store.Bucket(), stats)
			printTracks(storage.GroupByTrack(objects))
			return nil
		default:
			objects, _, err := store.List(ctx, minioPrefix, false)
			if err != nil {
				return err
			}
			for _, obj := range objects {
				fmt.Printf("%-40s %10s  %s\n", obj.Key, storage.FormatSize(obj.Size), obj.LastModified.Format(time.RFC3339))
			}
			return nil
		}
	},
}

func printStats(bucket string, stats *storage.BucketStats) {
	fmt.Printf("\n=== 存储桶统计信息 ===\n")
	fmt.Printf("存储桶名称: %s\n", bucket)
	fmt.Printf("总大小: %s\n", storage.FormatSize(stats.TotalSize))
	fmt.Printf("对象总数: %d\n", stats.TotalObjects)
	if !stats.LastModified.IsZero() {
		fmt.Printf("最后修改时间: %s\n", stats.LastModified.Format(time.RFC3339))
	}

	exts := make([]string, 0, len(stats.ByExtension))
	for ext := range stats.ByExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	fmt.Printf("\n文件类型统计:\n")
	for _, ext := range exts {
		fmt.Printf("  %s: %d 个文件\n", ext, stats.ByExtension[ext])
	}
}

func printTracks(tracks []storage.TrackObjects) {
	fmt.Printf("\n曲目:\n")
	for _, t := range tracks {
		name := t.TrackID
		if name == "" {
			name = "(根目录)"
		}
		fmt.Printf("📁 %s/ (%s)\n", name, storage.FormatSize(t.Size))
		for _, obj := range t.Objects {
			fmt.Printf("  📄 %s (%s)\n", obj.Key, storage.FormatSize(obj.Size))
		}
	}
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤文件或指定要操作的目录（曲目ID）")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "显示存储桶统计信息")
	minioCmd.Flags().BoolVarP(&minioRecursive, "recursive", "r", false, "按曲目显示全部分轨")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "删除指定目录及其下的所有文件")

	minioCmd.Example = `  # 列出所有曲目目录
  stemshare minio

  # 显示存储桶统计信息
  stemshare minio -s

  # 按曲目显示分轨
  stemshare minio -r

  # 删除上传失败留下的曲目目录
  stemshare minio -d -p "V1StGXR8_Z/"`
}

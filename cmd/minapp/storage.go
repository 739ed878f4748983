package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dnslin/minapp-go/core/query"
)

func newUploadCmd(a *app) *cobra.Command {
	var category string
	var noFetch bool
	var parallel int
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "上传一个或多个文件",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			results := make([]any, len(args))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(parallel)
			for i, path := range args {
				g.Go(func() error {
					f, err := os.Open(path)
					if err != nil {
						return err
					}
					defer f.Close()
					st, err := f.Stat()
					if err != nil {
						return err
					}
					name := filepath.Base(path)
					a.log.Info("开始上传", zap.String("file", name), zap.Int64("size", st.Size()))

					var res any
					if noFetch {
						id, err := a.client.UploadStreamWithoutFetch(gctx, name, category, f, st.Size())
						if err != nil {
							return err
						}
						res = map[string]string{"id": id, "name": name}
					} else {
						file, err := a.client.UploadStream(gctx, name, category, f, st.Size())
						if err != nil {
							return err
						}
						res = file
					}
					results[i] = res
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			return a.print(results)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "文件分类 ID")
	cmd.Flags().BoolVar(&noFetch, "no-fetch", false, "只返回文件 ID，不等待文件就绪")
	cmd.Flags().IntVar(&parallel, "parallel", 2, "并发上传数")
	return cmd
}

func newFileCmd(a *app) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "file [id]",
		Short: "查询文件信息，不带 id 时列出文件",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			if len(args) == 1 {
				file, err := a.client.File(ctx, args[0])
				if err != nil {
					return err
				}
				return a.print(file)
			}
			list, err := a.client.Files(ctx, query.New().Limit(limit).Offset(offset).OrderBy("-created_at"))
			if err != nil {
				return err
			}
			return a.print(list)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "每页条数")
	cmd.Flags().IntVar(&offset, "offset", 0, "偏移量")
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>...",
		Short: "删除文件",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			return a.client.DeleteFiles(ctx, args...)
		},
	})
	return cmd
}

func newUsersCmd(a *app) *cobra.Command {
	var limit, offset int
	var username string
	cmd := &cobra.Command{
		Use:   "users",
		Short: "列出用户",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			q := query.New().Limit(limit).Offset(offset)
			if username != "" {
				q.Put(query.NewWhere().Contains("username", username))
			}
			list, err := a.client.Users(ctx, q)
			if err != nil {
				return err
			}
			return a.print(list)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "每页条数")
	cmd.Flags().IntVar(&offset, "offset", 0, "偏移量")
	cmd.Flags().StringVar(&username, "username", "", "按用户名模糊匹配")
	return cmd
}

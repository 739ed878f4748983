package main

import (
	"github.com/spf13/cobra"

	"github.com/dnslin/minapp-go/core/dispatch"
	"github.com/dnslin/minapp-go/core/model"
)

func newInvokeCmd(a *app) *cobra.Command {
	var data string
	var sync, background bool
	cmd := &cobra.Command{
		Use:   "invoke <function>",
		Short: "调用云函数",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if background {
				// 走后台调度器，回调在主 Looper 上执行
				done := make(chan dispatch.Outcome[*model.CloudFuncResp], 1)
				a.client.InvokeCloudFuncInBackground(args[0], data, sync, func(resp *model.CloudFuncResp, err error) {
					done <- dispatch.Outcome[*model.CloudFuncResp]{Value: resp, Err: err}
				})
				select {
				case out := <-done:
					if out.Err != nil {
						return out.Err
					}
					return a.print(out.Value)
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				}
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			resp, err := a.client.InvokeCloudFunc(ctx, args[0], data, sync)
			if err != nil {
				return err
			}
			return a.print(resp)
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "JSON 参数")
	cmd.Flags().BoolVar(&sync, "sync", true, "等待函数执行完成")
	cmd.Flags().BoolVar(&background, "background", false, "使用后台调用")
	return cmd
}

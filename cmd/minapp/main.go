// minapp 命令行工具，演示登录、云函数、文件上传与列表查询。
// 运行: go run ./cmd/minapp --help
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

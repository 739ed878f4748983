package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dnslin/minapp-go/core/baas"
	"github.com/dnslin/minapp-go/core/codec"
	"github.com/dnslin/minapp-go/core/config"
	"github.com/dnslin/minapp-go/core/logging"
	"github.com/dnslin/minapp-go/core/model"
	"github.com/dnslin/minapp-go/core/store"
)

// app 持有一次命令执行期间的配置、日志与客户端。
type app struct {
	configPath string
	envFile    string
	endpoint   string
	clientID   string
	timeout    time.Duration

	out    io.Writer
	log    *zap.Logger
	client *baas.Client
	pretty *codec.Codec
}

func newRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}
	root := &cobra.Command{
		Use:           "minapp",
		Short:         "BaaS 客户端命令行工具",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML 配置文件路径")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", ".env 文件路径，不存在时忽略")
	root.PersistentFlags().StringVar(&a.endpoint, "endpoint", "", "服务地址，覆盖配置 (env MINAPP_ENDPOINT)")
	root.PersistentFlags().StringVar(&a.clientID, "client-id", "", "客户端 ID，覆盖配置 (env MINAPP_CLIENT_ID)")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 2*time.Minute, "单条命令的整体超时")

	root.AddCommand(
		newSignInCmd(a),
		newSignOutCmd(a),
		newWhoAmICmd(a),
		newSmsCmd(a),
		newInvokeCmd(a),
		newUploadCmd(a),
		newFileCmd(a),
		newUsersCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath, a.envFile)
	if err != nil {
		return err
	}
	if a.endpoint != "" {
		cfg.Endpoint = a.endpoint
	}
	if a.clientID != "" {
		cfg.ClientID = a.clientID
	}
	a.log = logging.New(logging.Config{Env: cfg.Log.Env, Level: cfg.Log.Level, Name: "minapp"})

	sessionFile := cfg.Session.File
	if sessionFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("minapp: 无法定位用户目录: %w", err)
		}
		sessionFile = filepath.Join(home, ".minapp", "session.json")
	}

	opts, err := cfg.ClientOptions(logging.Sugar(a.log), nil)
	if err != nil {
		return err
	}
	opts = append(opts, baas.WithSessionStore(store.NewFileStore[*model.SignInResp](sessionFile, nil)))
	a.client = baas.New(opts...)
	a.pretty = a.client.Provider().Codec().Pretty()
	a.log.Debug("客户端已就绪", zap.String("endpoint", cfg.Endpoint), zap.String("session", sessionFile))
	return nil
}

func (a *app) teardown() error {
	if a.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := a.client.Close(ctx)
	_ = a.log.Sync()
	return err
}

// context 返回带整体超时的 context。
func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.timeout)
}

func (a *app) print(v any) error {
	data, err := a.pretty.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(data))
	return err
}

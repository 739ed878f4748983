package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dnslin/minapp-go/core/model"
)

// readPassword 便于测试替换。
var readPassword = term.ReadPassword

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := readPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newSignInCmd(a *app) *cobra.Command {
	var email, username, password string
	var anonymous, signUp bool
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "登录 (邮箱、用户名或匿名)，--signup 时先注册",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			if anonymous {
				resp, err := a.client.SignInAnonymous(ctx)
				if err != nil {
					return err
				}
				return a.print(resp)
			}
			if email == "" && username == "" {
				return errors.New("需要 --email 或 --username")
			}
			if password == "" {
				p, err := promptPassword()
				if err != nil {
					return err
				}
				password = p
			}

			var (
				resp *model.SignInResp
				err  error
			)
			switch {
			case email != "" && signUp:
				resp, err = a.client.SignUpByEmail(ctx, email, password)
			case email != "":
				resp, err = a.client.SignInByEmail(ctx, email, password)
			case signUp:
				resp, err = a.client.SignUpByUsername(ctx, username, password)
			default:
				resp, err = a.client.SignInByUsername(ctx, username, password)
			}
			if err != nil {
				return err
			}
			return a.print(resp)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "邮箱")
	cmd.Flags().StringVar(&username, "username", "", "用户名")
	cmd.Flags().StringVar(&password, "password", "", "密码，留空时交互输入")
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "匿名登录")
	cmd.Flags().BoolVar(&signUp, "signup", false, "注册新账号")
	return cmd
}

func newSignOutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "登出并清除本地登录态",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			return a.client.SignOut(ctx)
		},
	}
}

func newWhoAmICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "显示当前登录信息",
		RunE: func(cmd *cobra.Command, args []string) error {
			user := a.client.CurrentUser()
			if user == nil {
				return errors.New("当前未登录")
			}
			return a.print(user)
		},
	}
}

func newSmsCmd(a *app) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "sms <phone>",
		Short: "发送短信验证码，带 --code 时校验验证码",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			var (
				ok  bool
				err error
			)
			if code != "" {
				ok, err = a.client.VerifySmsCode(ctx, args[0], code)
			} else {
				ok, err = a.client.SendSmsCode(ctx, args[0])
			}
			if err != nil {
				return err
			}
			return a.print(map[string]bool{"ok": ok})
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "验证码")
	return cmd
}

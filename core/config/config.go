// Package config 按 默认值 -> YAML 文件 -> .env -> 进程环境变量 的顺序加载客户端配置。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	coreerrors "github.com/dnslin/minapp-go/core/errors"
	"github.com/dnslin/minapp-go/core/httpclient"
)

// Config 客户端配置。
type Config struct {
	ClientID string `yaml:"client_id"`
	Endpoint string `yaml:"endpoint"`

	HTTP struct {
		ConnectTimeoutMS         int  `yaml:"connect_timeout_ms"`
		ReadTimeoutMS            int  `yaml:"read_timeout_ms"`
		WriteTimeoutMS           int  `yaml:"write_timeout_ms"`
		FollowRedirects          bool `yaml:"follow_redirects"`
		RetryOnConnectionFailure bool `yaml:"retry_on_connection_failure"`
	} `yaml:"http"`

	Dispatch struct {
		Workers int `yaml:"workers"`
	} `yaml:"dispatch"`

	Upload struct {
		ConfirmIntervalMS  int `yaml:"confirm_interval_ms"`
		ConfirmMaxAttempts int `yaml:"confirm_max_attempts"`
	} `yaml:"upload"`

	Log struct {
		Env   string `yaml:"env"`
		Level string `yaml:"level"`
	} `yaml:"log"`

	Metrics struct {
		Enabled   bool   `yaml:"enabled"`
		Namespace string `yaml:"namespace"`
	} `yaml:"metrics"`

	Session struct {
		// File 非空时把登录态持久化到该文件。
		File string `yaml:"file"`
	} `yaml:"session"`
}

// Default 返回默认配置。
func Default() *Config {
	var c Config
	c.HTTP.ConnectTimeoutMS = 10000
	c.HTTP.ReadTimeoutMS = 10000
	c.HTTP.WriteTimeoutMS = 10000
	c.HTTP.FollowRedirects = true
	c.HTTP.RetryOnConnectionFailure = true
	c.Dispatch.Workers = 5
	c.Upload.ConfirmIntervalMS = 500
	c.Log.Env = "dev"
	c.Log.Level = "info"
	c.Metrics.Namespace = "minapp"
	return &c
}

// Load 加载配置。path 为空时跳过 YAML，envFile 不存在时忽略。
func Load(path, envFile string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: 读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("config: 解析配置文件失败: %w", err)
		}
	}
	if envFile != "" {
		// godotenv 不会覆盖已存在的环境变量
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: 读取 %s 失败: %w", envFile, err)
		}
	}
	c.applyEnvOverrides()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("MINAPP_CLIENT_ID"); ok {
		c.ClientID = v
	}
	if v, ok := getEnvStr("MINAPP_ENDPOINT"); ok {
		c.Endpoint = v
	}
	if v, ok := getEnvInt("MINAPP_HTTP_TIMEOUT_MS"); ok {
		c.HTTP.ConnectTimeoutMS = v
		c.HTTP.ReadTimeoutMS = v
		c.HTTP.WriteTimeoutMS = v
	}
	if v, ok := getEnvInt("MINAPP_WORKERS"); ok {
		c.Dispatch.Workers = v
	}
	if v, ok := getEnvStr("MINAPP_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := getEnvStr("MINAPP_LOG_ENV"); ok {
		c.Log.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("MINAPP_SESSION_FILE"); ok {
		c.Session.File = v
	}
}

// Validate 校验数值范围。服务地址缺失不在此报错，由请求构造阶段返回 ErrEndpointUnset。
func (c *Config) Validate() error {
	switch {
	case c.HTTP.ConnectTimeoutMS < 0, c.HTTP.ReadTimeoutMS < 0, c.HTTP.WriteTimeoutMS < 0:
		return coreerrors.New(coreerrors.ErrCodeInvalidConfig, "config: 超时不能为负数")
	case c.Dispatch.Workers < 0:
		return coreerrors.New(coreerrors.ErrCodeInvalidConfig, "config: workers 不能为负数")
	case c.Upload.ConfirmIntervalMS < 0, c.Upload.ConfirmMaxAttempts < 0:
		return coreerrors.New(coreerrors.ErrCodeInvalidConfig, "config: 上传确认参数不能为负数")
	}
	return nil
}

// Transport 转换为默认传输层参数。
func (c *Config) Transport() httpclient.TransportConfig {
	return httpclient.TransportConfig{
		ConnectTimeout:           ms(c.HTTP.ConnectTimeoutMS),
		ReadTimeout:              ms(c.HTTP.ReadTimeoutMS),
		WriteTimeout:             ms(c.HTTP.WriteTimeoutMS),
		FollowRedirects:          c.HTTP.FollowRedirects,
		RetryOnConnectionFailure: c.HTTP.RetryOnConnectionFailure,
	}
}

// ConfirmInterval 上传确认轮询间隔。
func (c *Config) ConfirmInterval() time.Duration {
	return ms(c.Upload.ConfirmIntervalMS)
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func getEnvStr(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
	}
	return 0, false
}

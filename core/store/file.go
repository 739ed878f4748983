package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dnslin/minapp-go/core/codec"
)

// FileStore 以 JSON 文件持久化会话，命令行工具跨进程复用登录态时使用。
type FileStore[T any] struct {
	mu    sync.Mutex
	path  string
	codec *codec.Codec
}

// NewFileStore 创建文件存储，cd 为 nil 时使用默认编解码器。
func NewFileStore[T any](path string, cd *codec.Codec) *FileStore[T] {
	if cd == nil {
		cd = codec.New()
	}
	return &FileStore[T]{path: path, codec: cd}
}

// Path 返回文件路径。
func (f *FileStore[T]) Path() string {
	return f.path
}

// SaveSession 先写临时文件再重命名，避免留下半截内容。
func (f *FileStore[T]) SaveSession(session T) error {
	data, err := f.codec.Marshal(session)
	if err != nil {
		return fmt.Errorf("store: 编码会话失败: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("store: 创建目录失败: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("store: 写入会话失败: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store: 写入会话失败: %w", err)
	}
	return nil
}

// LoadSession 文件不存在时返回 ErrNotFound。
func (f *FileStore[T]) LoadSession() (T, error) {
	var out T
	f.mu.Lock()
	data, err := os.ReadFile(f.path)
	f.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return out, ErrNotFound
	}
	if err != nil {
		return out, fmt.Errorf("store: 读取会话失败: %w", err)
	}
	if err := f.codec.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("store: 解码会话失败: %w", err)
	}
	return out, nil
}

// ClearSession 删除文件，文件不存在不算错误。
func (f *FileStore[T]) ClearSession() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("store: 删除会话失败: %w", err)
	}
	return nil
}

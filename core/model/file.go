package model

import "github.com/dnslin/minapp-go/core/codec"

// CategoryRef 文件所属分类的简要信息。
type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// CloudFile 云端文件。
type CloudFile struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Path      string       `json:"path,omitempty"`
	MimeType  string       `json:"mime_type,omitempty"`
	MediaType string       `json:"media_type,omitempty"`
	Size      int64        `json:"size,omitempty"`
	Category  *CategoryRef `json:"category,omitempty"`
	CreatedAt codec.Date   `json:"created_at,omitempty"`
}

// FileCategory 文件分类。
type FileCategory struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Files     int        `json:"files,omitempty"`
	CreatedAt codec.Date `json:"created_at,omitempty"`
	UpdatedAt codec.Date `json:"updated_at,omitempty"`
}

// UploadInfoReq 上传凭证请求。FileSize 仅在文件超过阈值时填写。
type UploadInfoReq struct {
	FileName   string `json:"filename"`
	CategoryID string `json:"category_id,omitempty"`
	FileSize   int64  `json:"file_size,omitempty"`
}

// UploadInfoResp 一次性上传凭证，推送完成后即失效。
type UploadInfoResp struct {
	ID            string `json:"id"`
	Name          string `json:"file_link,omitempty"`
	Path          string `json:"path,omitempty"`
	Policy        string `json:"policy"`
	Authorization string `json:"authorization"`
	UploadURL     string `json:"upload_url"`
}

// BatchDeleteReq 批量删除文件请求。
type BatchDeleteReq struct {
	IDs []string `json:"id__in"`
}

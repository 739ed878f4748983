package baas

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/sethvargo/go-retry"

	"github.com/dnslin/minapp-go/core/httpclient"
	"github.com/dnslin/minapp-go/core/model"
)

const (
	// PartAuthorization 上传凭证字段。
	PartAuthorization = "authorization"
	// PartPolicy 上传策略字段。
	PartPolicy = "policy"
	// PartFile 文件字段。
	PartFile = "file"

	// sizeHintMiB 超过该大小（MiB）时才在凭证请求中携带文件大小。
	sizeHintMiB = 100
)

// UploadFileWithoutFetch 上传文件，返回文件 ID，不等待服务端处理完成。
func (c *Client) UploadFileWithoutFetch(ctx context.Context, filename, categoryID string, data []byte) (string, error) {
	return c.UploadStreamWithoutFetch(ctx, filename, categoryID, bytes.NewReader(data), int64(len(data)))
}

// UploadFile 上传文件并轮询直到文件信息可查询。
func (c *Client) UploadFile(ctx context.Context, filename, categoryID string, data []byte) (*model.CloudFile, error) {
	return c.UploadStream(ctx, filename, categoryID, bytes.NewReader(data), int64(len(data)))
}

// UploadStreamWithoutFetch 以流的方式上传，size 仅用于决定是否上报文件大小。
func (c *Client) UploadStreamWithoutFetch(ctx context.Context, filename, categoryID string, r io.Reader, size int64) (string, error) {
	meta, err := c.upload(ctx, filename, categoryID, r, size)
	if err != nil {
		return "", err
	}
	return meta.ID, nil
}

// UploadStream 以流的方式上传并等待文件就绪。
func (c *Client) UploadStream(ctx context.Context, filename, categoryID string, r io.Reader, size int64) (*model.CloudFile, error) {
	meta, err := c.upload(ctx, filename, categoryID, r, size)
	if err != nil {
		return nil, err
	}
	return c.confirm(ctx, meta.ID)
}

// upload 先获取一次性凭证，再把文件推送到凭证给出的地址。
func (c *Client) upload(ctx context.Context, filename, categoryID string, r io.Reader, size int64) (*model.UploadInfoResp, error) {
	if r == nil {
		return nil, errors.New("baas: 上传数据为空")
	}
	body := model.UploadInfoReq{FileName: filename, CategoryID: categoryID}
	if size/1024/1024 > sizeHintMiB {
		body.FileSize = size
	}
	var meta model.UploadInfoResp
	if err := c.sessionCall(ctx, "uploadFile", http.MethodPost, c.paths.UploadInfo, nil, body, &meta); err != nil {
		return nil, err
	}
	if meta.UploadURL == "" || meta.ID == "" {
		return nil, &httpclient.EmptyResponseError{Status: http.StatusOK, Err: errors.New("上传凭证缺少 upload_url 或 id")}
	}
	if err := c.push(ctx, &meta, filename, r); err != nil {
		c.logger.Errorf("baas: 推送文件 %s 失败: %v", filename, err)
		return nil, err
	}
	c.logger.Debugf("baas: 文件 %s 已推送, id=%s", filename, meta.ID)
	return &meta, nil
}

// push 走上传传输层：不限超时、不重试、不带会话头。
func (c *Client) push(ctx context.Context, meta *model.UploadInfoResp, filename string, r io.Reader) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeParts(mw, meta, filename, r))
	}()
	defer pr.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, meta.UploadURL, pr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.provider.Upload().Do(req, nil)
}

func writeParts(mw *multipart.Writer, meta *model.UploadInfoResp, filename string, r io.Reader) error {
	if err := mw.WriteField(PartAuthorization, meta.Authorization); err != nil {
		return err
	}
	if err := mw.WriteField(PartPolicy, meta.Policy); err != nil {
		return err
	}
	part, err := mw.CreateFormFile(PartFile, filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

// confirm 文件信息返回 404 时按固定间隔重查，其它结果立即返回。
func (c *Client) confirm(ctx context.Context, id string) (*model.CloudFile, error) {
	interval := c.confirmInterval
	if interval <= 0 {
		interval = DefaultConfirmInterval
	}
	b := retry.NewConstant(interval)
	if c.confirmMaxAttempts > 0 {
		b = retry.WithMaxRetries(uint64(c.confirmMaxAttempts-1), b)
	}

	var file *model.CloudFile
	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		f, err := c.File(ctx, id)
		if err != nil {
			if httpclient.IsNotFound(err) {
				c.logger.Debugf("baas: 文件 %s 尚未就绪 (第 %d 次查询)", id, attempt)
				return retry.RetryableError(err)
			}
			return err
		}
		file = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

package baas

import (
	"context"
	"net/http"

	coreerrors "github.com/dnslin/minapp-go/core/errors"
	"github.com/dnslin/minapp-go/core/model"
	"github.com/dnslin/minapp-go/core/query"
)

// File 查询文件信息。
func (c *Client) File(ctx context.Context, id string) (*model.CloudFile, error) {
	if id == "" {
		return nil, coreerrors.New(coreerrors.ErrCodeInvalidArgument, "baas: 文件 ID 为空")
	}
	var file model.CloudFile
	if err := c.sessionCall(ctx, "file", http.MethodGet, item(c.paths.Files, id), nil, nil, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// Files 查询文件列表。
func (c *Client) Files(ctx context.Context, q *query.Query) (*model.PagedList[model.CloudFile], error) {
	params, err := c.queryValues(q)
	if err != nil {
		return nil, err
	}
	var page model.Page[model.CloudFile]
	if err := c.sessionCall(ctx, "files", http.MethodGet, c.paths.Files, params, nil, &page); err != nil {
		return nil, err
	}
	return page.ReadOnly(), nil
}

// DeleteFiles 删除文件：没有 ID 时直接返回，一个走单条删除，多个走批量删除。
func (c *Client) DeleteFiles(ctx context.Context, ids ...string) error {
	switch len(ids) {
	case 0:
		return nil
	case 1:
		return c.sessionCall(ctx, "deleteFile", http.MethodDelete, item(c.paths.Files, ids[0]), nil, nil, nil)
	default:
		body := model.BatchDeleteReq{IDs: append([]string(nil), ids...)}
		return c.sessionCall(ctx, "deleteFiles", http.MethodDelete, c.paths.Files, nil, body, nil)
	}
}

// Category 查询文件分类。
func (c *Client) Category(ctx context.Context, id string) (*model.FileCategory, error) {
	if id == "" {
		return nil, coreerrors.New(coreerrors.ErrCodeInvalidArgument, "baas: 分类 ID 为空")
	}
	var category model.FileCategory
	if err := c.sessionCall(ctx, "category", http.MethodGet, item(c.paths.Categories, id), nil, nil, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// Categories 查询文件分类列表。
func (c *Client) Categories(ctx context.Context, q *query.Query) (*model.PagedList[model.FileCategory], error) {
	params, err := c.queryValues(q)
	if err != nil {
		return nil, err
	}
	var page model.Page[model.FileCategory]
	if err := c.sessionCall(ctx, "categories", http.MethodGet, c.paths.Categories, params, nil, &page); err != nil {
		return nil, err
	}
	return page.ReadOnly(), nil
}

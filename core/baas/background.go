package baas

import (
	"context"

	"github.com/dnslin/minapp-go/core/dispatch"
	"github.com/dnslin/minapp-go/core/model"
	"github.com/dnslin/minapp-go/core/query"
)

// 以下方法在后台工作 goroutine 上执行对应的阻塞接口，结果在主上下文上回调一次，返回任务 ID。

func (c *Client) SignUpByEmailInBackground(email, password string, cb dispatch.Callback[*model.SignInResp]) string {
	return dispatch.Go(c.dispatcher, "signUpByEmail", func(ctx context.Context) (*model.SignInResp, error) {
		return c.SignUpByEmail(ctx, email, password)
	}, cb)
}

func (c *Client) SignUpByUsernameInBackground(username, password string, cb dispatch.Callback[*model.SignInResp]) string {
	return dispatch.Go(c.dispatcher, "signUpByUsername", func(ctx context.Context) (*model.SignInResp, error) {
		return c.SignUpByUsername(ctx, username, password)
	}, cb)
}

func (c *Client) SignInByEmailInBackground(email, password string, cb dispatch.Callback[*model.SignInResp]) string {
	return dispatch.Go(c.dispatcher, "signInByEmail", func(ctx context.Context) (*model.SignInResp, error) {
		return c.SignInByEmail(ctx, email, password)
	}, cb)
}

func (c *Client) SignInByUsernameInBackground(username, password string, cb dispatch.Callback[*model.SignInResp]) string {
	return dispatch.Go(c.dispatcher, "signInByUsername", func(ctx context.Context) (*model.SignInResp, error) {
		return c.SignInByUsername(ctx, username, password)
	}, cb)
}

func (c *Client) SignInAnonymousInBackground(cb dispatch.Callback[*model.SignInResp]) string {
	return dispatch.Go(c.dispatcher, "signInAnonymous", c.SignInAnonymous, cb)
}

func (c *Client) SignOutInBackground(cb dispatch.Callback[struct{}]) string {
	return dispatch.Go(c.dispatcher, "signOut", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.SignOut(ctx)
	}, cb)
}

func (c *Client) RequestEmailVerifyInBackground(cb dispatch.Callback[bool]) string {
	return dispatch.Go(c.dispatcher, "requestEmailVerify", c.RequestEmailVerify, cb)
}

func (c *Client) SendSmsCodeInBackground(phone string, cb dispatch.Callback[bool]) string {
	return dispatch.Go(c.dispatcher, "sendSmsCode", func(ctx context.Context) (bool, error) {
		return c.SendSmsCode(ctx, phone)
	}, cb)
}

func (c *Client) VerifySmsCodeInBackground(phone, code string, cb dispatch.Callback[bool]) string {
	return dispatch.Go(c.dispatcher, "verifySmsCode", func(ctx context.Context) (bool, error) {
		return c.VerifySmsCode(ctx, phone, code)
	}, cb)
}

func (c *Client) InvokeCloudFuncInBackground(name, data string, sync bool, cb dispatch.Callback[*model.CloudFuncResp]) string {
	return dispatch.Go(c.dispatcher, "invokeCloudFunc", func(ctx context.Context) (*model.CloudFuncResp, error) {
		return c.InvokeCloudFunc(ctx, name, data, sync)
	}, cb)
}

func (c *Client) UsersInBackground(q *query.Query, cb dispatch.Callback[*model.PagedList[model.User]]) string {
	return dispatch.Go(c.dispatcher, "users", func(ctx context.Context) (*model.PagedList[model.User], error) {
		return c.Users(ctx, q)
	}, cb)
}

func (c *Client) UserInBackground(id int64, cb dispatch.Callback[*model.User]) string {
	return dispatch.Go(c.dispatcher, "user", func(ctx context.Context) (*model.User, error) {
		return c.User(ctx, id)
	}, cb)
}

func (c *Client) FileInBackground(id string, cb dispatch.Callback[*model.CloudFile]) string {
	return dispatch.Go(c.dispatcher, "file", func(ctx context.Context) (*model.CloudFile, error) {
		return c.File(ctx, id)
	}, cb)
}

func (c *Client) FilesInBackground(q *query.Query, cb dispatch.Callback[*model.PagedList[model.CloudFile]]) string {
	return dispatch.Go(c.dispatcher, "files", func(ctx context.Context) (*model.PagedList[model.CloudFile], error) {
		return c.Files(ctx, q)
	}, cb)
}

func (c *Client) DeleteFilesInBackground(ids []string, cb dispatch.Callback[struct{}]) string {
	ids = append([]string(nil), ids...)
	return dispatch.Go(c.dispatcher, "deleteFiles", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.DeleteFiles(ctx, ids...)
	}, cb)
}

func (c *Client) CategoryInBackground(id string, cb dispatch.Callback[*model.FileCategory]) string {
	return dispatch.Go(c.dispatcher, "category", func(ctx context.Context) (*model.FileCategory, error) {
		return c.Category(ctx, id)
	}, cb)
}

func (c *Client) CategoriesInBackground(q *query.Query, cb dispatch.Callback[*model.PagedList[model.FileCategory]]) string {
	return dispatch.Go(c.dispatcher, "categories", func(ctx context.Context) (*model.PagedList[model.FileCategory], error) {
		return c.Categories(ctx, q)
	}, cb)
}

func (c *Client) UploadFileWithoutFetchInBackground(filename, categoryID string, data []byte, cb dispatch.Callback[string]) string {
	return dispatch.Go(c.dispatcher, "uploadFileWithoutFetch", func(ctx context.Context) (string, error) {
		return c.UploadFileWithoutFetch(ctx, filename, categoryID, data)
	}, cb)
}

func (c *Client) UploadFileInBackground(filename, categoryID string, data []byte, cb dispatch.Callback[*model.CloudFile]) string {
	return dispatch.Go(c.dispatcher, "uploadFile", func(ctx context.Context) (*model.CloudFile, error) {
		return c.UploadFile(ctx, filename, categoryID, data)
	}, cb)
}

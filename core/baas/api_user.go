package baas

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dnslin/minapp-go/core/model"
	"github.com/dnslin/minapp-go/core/query"
)

// Users 查询用户列表，q 为 nil 时不带条件。
func (c *Client) Users(ctx context.Context, q *query.Query) (*model.PagedList[model.User], error) {
	params, err := c.queryValues(q)
	if err != nil {
		return nil, err
	}
	var page model.Page[model.User]
	if err := c.sessionCall(ctx, "users", http.MethodGet, c.paths.Users, params, nil, &page); err != nil {
		return nil, err
	}
	return page.ReadOnly(), nil
}

// User 查询单个用户。
func (c *Client) User(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	path := item(c.paths.Users, strconv.FormatInt(id, 10))
	if err := c.sessionCall(ctx, "user", http.MethodGet, path, nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

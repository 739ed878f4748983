package baas

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnslin/minapp-go/core/auth"
	"github.com/dnslin/minapp-go/core/dispatch"
	"github.com/dnslin/minapp-go/core/httpclient"
	"github.com/dnslin/minapp-go/core/model"
	"github.com/dnslin/minapp-go/core/query"
)

const uploadURL = "https://upload.mock/put"

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := f(req)
	if resp != nil && resp.Request == nil {
		resp.Request = req
	}
	return resp, err
}

func jsonResponse(status int, body string) *http.Response {
	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "application/json")
	rec.WriteHeader(status)
	rec.Body.WriteString(body)
	return rec.Result()
}

// onLooper 通过调用栈判断当前是否运行在 Looper.Run 中。
func onLooper() bool {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if strings.HasSuffix(f.Function, "dispatch.(*Looper).Run") {
			return true
		}
		if !more {
			return false
		}
	}
}

func newTestClient(t *testing.T, rt http.RoundTripper, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithClientID("cid"),
		WithEndpoint("https://mock.local"),
		WithRoundTripper(rt),
	}
	c := New(append(base, opts...)...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		c.Close(ctx)
	})
	return c
}

func signedIn(t *testing.T, c *Client) {
	t.Helper()
	require.NoError(t, c.Session().Record(&model.SignInResp{Token: "tok", UserID: 1}))
}

func readBody(t *testing.T, req *http.Request) map[string]any {
	t.Helper()
	if req.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	if len(raw) == 0 {
		return nil
	}
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestSignInTokenReachesNetwork(t *testing.T) {
	var seen []*http.Request
	var mu sync.Mutex
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		seen = append(seen, req.Clone(context.Background()))
		mu.Unlock()
		switch req.URL.Path {
		case "/hserve/v2.0/login/email/":
			return jsonResponse(http.StatusCreated, `{"token":"tok-1","user_id":7}`), nil
		case "/hserve/v1.8/sms-verification-code/":
			return jsonResponse(http.StatusOK, `{"status":"ok"}`), nil
		}
		return jsonResponse(http.StatusNotFound, `{}`), nil
	})
	c := newTestClient(t, rt)

	ok, err := c.SendSmsCode(context.Background(), "13800000000")
	require.NoError(t, err)
	assert.True(t, ok)

	resp, err := c.SignInByEmail(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	resp.Token = "mutated"
	assert.Equal(t, "tok-1", c.CurrentToken())

	_, err = c.SendSmsCode(context.Background(), "13800000000")
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Empty(t, seen[0].Header.Get(auth.HeaderAuthorization), "未登录时不应携带 token")
	assert.Equal(t, "cid", seen[0].Header.Get(auth.HeaderClientID))
	assert.Equal(t, Platform, seen[0].Header.Get(HeaderPlatform))
	assert.Equal(t, DefaultUserAgent, seen[0].Header.Get("User-Agent"))
	assert.NotEmpty(t, seen[0].Header.Get(httpclient.HeaderRequestID))
	assert.Equal(t, auth.TokenPrefix+"tok-1", seen[2].Header.Get(auth.HeaderAuthorization))
}

func TestUploadFilePollsUntilReady(t *testing.T) {
	var fileCalls atomic.Int32
	var pushed atomic.Bool
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		switch {
		case req.URL.Path == "/hserve/v2.1/upload/":
			body := readBody(t, req)
			assert.Equal(t, "a.txt", body["filename"])
			assert.Equal(t, "cat-1", body["category_id"])
			_, hasSize := body["file_size"]
			assert.False(t, hasSize, "小文件不应携带 file_size")
			return jsonResponse(http.StatusOK, `{"id":"f1","policy":"p","authorization":"sig","upload_url":"`+uploadURL+`"}`), nil
		case req.URL.String() == uploadURL:
			assert.Empty(t, req.Header.Get(auth.HeaderAuthorization), "上传传输层不应携带会话")
			assert.Empty(t, req.Header.Get(auth.HeaderClientID))
			require.NoError(t, req.ParseMultipartForm(1<<20))
			assert.Equal(t, "sig", req.FormValue(PartAuthorization))
			assert.Equal(t, "p", req.FormValue(PartPolicy))
			f, hdr, err := req.FormFile(PartFile)
			require.NoError(t, err)
			data, _ := io.ReadAll(f)
			assert.Equal(t, "a.txt", hdr.Filename)
			assert.Equal(t, "hello", string(data))
			pushed.Store(true)
			return jsonResponse(http.StatusOK, `{}`), nil
		case req.URL.Path == "/hserve/v2.1/uploaded-file/f1/":
			if fileCalls.Add(1) <= 3 {
				return jsonResponse(http.StatusNotFound, `{"error_msg":"not found"}`), nil
			}
			return jsonResponse(http.StatusOK, `{"id":"f1","name":"a.txt","size":5}`), nil
		}
		t.Errorf("意外请求 %s", req.URL)
		return jsonResponse(http.StatusTeapot, `{}`), nil
	})
	c := newTestClient(t, rt)
	signedIn(t, c)

	start := time.Now()
	file, err := c.UploadFile(context.Background(), "a.txt", "cat-1", []byte("hello"))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.True(t, pushed.Load())
	assert.Equal(t, "f1", file.ID)
	assert.Equal(t, int64(5), file.Size)
	assert.Equal(t, int32(4), fileCalls.Load())
	assert.GreaterOrEqual(t, elapsed, 1500*time.Millisecond)
}

func TestUploadConfirmMaxAttempts(t *testing.T) {
	var fileCalls atomic.Int32
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		switch {
		case req.URL.Path == "/hserve/v2.1/upload/":
			return jsonResponse(http.StatusOK, `{"id":"f1","upload_url":"`+uploadURL+`"}`), nil
		case req.URL.String() == uploadURL:
			io.Copy(io.Discard, req.Body)
			return jsonResponse(http.StatusOK, ``), nil
		}
		fileCalls.Add(1)
		return jsonResponse(http.StatusNotFound, `{}`), nil
	})
	c := newTestClient(t, rt, WithConfirmInterval(5*time.Millisecond), WithConfirmMaxAttempts(2))
	signedIn(t, c)

	_, err := c.UploadFile(context.Background(), "a.txt", "", []byte("x"))
	require.Error(t, err)
	assert.True(t, httpclient.IsNotFound(err))
	assert.Equal(t, int32(2), fileCalls.Load())
}

func TestUploadConfirmStopsOnOtherError(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		switch {
		case req.URL.Path == "/hserve/v2.1/upload/":
			return jsonResponse(http.StatusOK, `{"id":"f1","upload_url":"`+uploadURL+`"}`), nil
		case req.URL.String() == uploadURL:
			io.Copy(io.Discard, req.Body)
			return jsonResponse(http.StatusOK, ``), nil
		}
		return jsonResponse(http.StatusInternalServerError, `{}`), nil
	})
	c := newTestClient(t, rt, WithConfirmInterval(5*time.Millisecond))
	signedIn(t, c)

	_, err := c.UploadFile(context.Background(), "a.txt", "", []byte("x"))
	status, ok := httpclient.StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestUploadLargeFileSendsSize(t *testing.T) {
	const size = 101 << 20
	var got any
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == "/hserve/v2.1/upload/" {
			got = readBody(t, req)["file_size"]
			return jsonResponse(http.StatusOK, `{"id":"big","upload_url":"`+uploadURL+`"}`), nil
		}
		io.Copy(io.Discard, req.Body)
		return jsonResponse(http.StatusOK, `{}`), nil
	})
	c := newTestClient(t, rt)
	signedIn(t, c)

	id, err := c.UploadStreamWithoutFetch(context.Background(), "big.bin", "", strings.NewReader("payload"), size)
	require.NoError(t, err)
	assert.Equal(t, "big", id)
	assert.Equal(t, float64(size), got)
}

func TestUploadPushFailure(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == "/hserve/v2.1/upload/" {
			return jsonResponse(http.StatusOK, `{"id":"f1","upload_url":"`+uploadURL+`"}`), nil
		}
		return nil, errors.New("connection reset")
	})
	c := newTestClient(t, rt)
	signedIn(t, c)

	_, err := c.UploadFileWithoutFetch(context.Background(), "a.txt", "", []byte("x"))
	var netErr *httpclient.NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestInvokeCloudFuncInBackgroundDeliversOnMain(t *testing.T) {
	var httpDone atomic.Bool
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		body := readBody(t, req)
		assert.Equal(t, "hello", body["function_name"])
		assert.Equal(t, true, body["sync"])
		assert.Equal(t, map[string]any{"k": "v"}, body["data"])
		time.Sleep(20 * time.Millisecond)
		httpDone.Store(true)
		return jsonResponse(http.StatusOK, `{"code":0,"data":{"answer":42}}`), nil
	})
	looper := dispatch.NewLooper(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go looper.Run(ctx)
	c := newTestClient(t, rt, WithMainPoster(looper))

	var calls atomic.Int32
	done := make(chan struct{})
	c.InvokeCloudFuncInBackground("hello", `{"k":"v"}`, true, dispatch.Callbacks(
		func(resp *model.CloudFuncResp) {
			calls.Add(1)
			assert.True(t, onLooper(), "回调应在主上下文执行")
			assert.True(t, httpDone.Load())
			assert.JSONEq(t, `{"answer":42}`, string(resp.Data))
			close(done)
		},
		func(err error) {
			t.Errorf("不应失败: %v", err)
		},
	))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("回调未被调用")
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvokeCloudFuncInvalidDataSendsNull(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		body := readBody(t, req)
		v, ok := body["data"]
		assert.True(t, ok)
		assert.Nil(t, v)
		return jsonResponse(http.StatusOK, `{"code":0,"job_id":"j1"}`), nil
	})
	c := newTestClient(t, rt)

	resp, err := c.InvokeCloudFunc(context.Background(), "f", "{not json", false)
	require.NoError(t, err)
	assert.Equal(t, "j1", resp.JobID)
}

func TestPaymentRequiredInBothForms(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusPaymentRequired, `{"error_msg":"payment required"}`), nil
	})
	c := newTestClient(t, rt)

	_, err := c.InvokeCloudFunc(context.Background(), "f", "", true)
	var httpErr *httpclient.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusPaymentRequired, httpErr.Status)

	got := make(chan error, 1)
	c.InvokeCloudFuncInBackground("f", "", true, func(resp *model.CloudFuncResp, err error) {
		assert.Nil(t, resp)
		got <- err
	})
	select {
	case err := <-got:
		var bgErr *httpclient.HTTPError
		require.ErrorAs(t, err, &bgErr)
		assert.Equal(t, http.StatusPaymentRequired, bgErr.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("回调未被调用")
	}
}

func TestUsersPaging(t *testing.T) {
	var rawQuery []string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		rawQuery = append(rawQuery, req.URL.RawQuery)
		return jsonResponse(http.StatusOK, `{
			"meta":{"limit":2,"offset":0,"next":"/next","previous":null,"total_count":5},
			"objects":[{"id":1,"username":"a"},{"id":2,"username":"b"}]}`), nil
	})
	c := newTestClient(t, rt)
	signedIn(t, c)

	list, err := c.Users(context.Background(), query.New().Limit(2).Put(query.NewWhere().EqualTo("username", "a")))
	require.NoError(t, err)
	require.Equal(t, 2, list.Len())
	assert.Equal(t, int64(5), list.TotalCount())
	assert.True(t, list.HasNext())
	assert.Equal(t, "a", list.At(0).Username)

	items := list.Items()
	items[0].Username = "changed"
	assert.Equal(t, "a", list.At(0).Username, "修改拷贝不应影响列表")

	_, err = c.Users(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, rawQuery, 2)
	assert.Contains(t, rawQuery[0], "limit=2")
	assert.Contains(t, rawQuery[0], "where=")
	assert.Empty(t, rawQuery[1])
}

func TestSessionRequired(t *testing.T) {
	var calls atomic.Int32
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return jsonResponse(http.StatusUnauthorized, `{"error_msg":"unauthorized"}`), nil
	})
	c := newTestClient(t, rt)

	_, err := c.Files(context.Background(), nil)
	assert.ErrorIs(t, err, auth.ErrSessionMissing)
	assert.Equal(t, int32(0), calls.Load(), "未登录时不应发出请求")

	signedIn(t, c)
	_, err = c.File(context.Background(), "f1")
	var missing *auth.SessionMissingError
	require.ErrorAs(t, err, &missing)
	status, ok := httpclient.StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestDeleteFiles(t *testing.T) {
	type call struct {
		method, path string
		body         map[string]any
	}
	var calls []call
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls = append(calls, call{req.Method, req.URL.Path, readBody(t, req)})
		return jsonResponse(http.StatusNoContent, ``), nil
	})
	c := newTestClient(t, rt)
	signedIn(t, c)
	ctx := context.Background()

	require.NoError(t, c.DeleteFiles(ctx))
	assert.Empty(t, calls)

	require.NoError(t, c.DeleteFiles(ctx, "a"))
	require.NoError(t, c.DeleteFiles(ctx, "a", "b"))
	require.Len(t, calls, 2)
	assert.Equal(t, call{http.MethodDelete, "/hserve/v2.1/uploaded-file/a/", nil}, calls[0])
	assert.Equal(t, "/hserve/v2.1/uploaded-file/", calls[1].path)
	assert.Equal(t, []any{"a", "b"}, calls[1].body["id__in"])
}

func TestMissingEndpointFailsPerRequest(t *testing.T) {
	c := New(WithClientID("cid"))
	t.Cleanup(func() { c.Close(context.Background()) })

	require.NotNil(t, c.Provider().Default())
	_, err := c.SendSmsCode(context.Background(), "1")
	assert.ErrorIs(t, err, httpclient.ErrEndpointUnset)
}

func TestCloseDeliversQueuedCallbacks(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"status":"ok"}`), nil
	})
	c := New(WithEndpoint("https://mock.local"), WithRoundTripper(rt), WithWorkers(2))

	var delivered atomic.Int32
	for i := 0; i < 10; i++ {
		c.SendSmsCodeInBackground("1", func(ok bool, err error) {
			assert.NoError(t, err)
			assert.True(t, ok)
			delivered.Add(1)
		})
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Close(ctx))
	assert.Equal(t, int32(10), delivered.Load())
}

func TestSubmitAfterCloseDeliversOnce(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		t.Error("关闭后不应发出请求")
		return jsonResponse(http.StatusOK, `{"status":"ok"}`), nil
	})
	c := New(WithEndpoint("https://mock.local"), WithRoundTripper(rt))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Close(ctx))

	var calls atomic.Int32
	got := make(chan error, 2)
	c.SendSmsCodeInBackground("1", func(ok bool, err error) {
		calls.Add(1)
		got <- err
	})
	select {
	case err := <-got:
		assert.ErrorIs(t, err, dispatch.ErrDispatcherShutdown)
	case <-time.After(time.Second):
		t.Fatal("关闭后提交的回调未被调用")
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

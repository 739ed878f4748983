package httpclient

import (
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/patrickmn/go-cache"
	"golang.org/x/net/publicsuffix"
)

// CookieStore 进程内存中的 CookieJar，按可注册域名(eTLD+1)各持一个 cookiejar.Jar，进程退出即丢失。
type CookieStore struct {
	jars *cache.Cache
}

// NewCookieStore 创建空的 CookieStore。
func NewCookieStore() *CookieStore {
	return &CookieStore{jars: cache.New(cache.NoExpiration, 0)}
}

// SetCookies 实现 http.CookieJar。
func (s *CookieStore) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if u == nil || len(cookies) == 0 {
		return
	}
	if jar := s.jar(u, true); jar != nil {
		jar.SetCookies(u, cookies)
	}
}

// Cookies 实现 http.CookieJar。
func (s *CookieStore) Cookies(u *url.URL) []*http.Cookie {
	if u == nil {
		return nil
	}
	if jar := s.jar(u, false); jar != nil {
		return jar.Cookies(u)
	}
	return nil
}

// Domains 返回当前持有 cookie 的可注册域名。
func (s *CookieStore) Domains() []string {
	items := s.jars.Items()
	out := make([]string, 0, len(items))
	for k := range items {
		out = append(out, k)
	}
	return out
}

// ClearDomain 丢弃某个可注册域名下的全部 cookie，子域名一并清除。
func (s *CookieStore) ClearDomain(host string) {
	s.jars.Delete(registrableDomain(canonicalHost(host)))
}

// Clear 清空全部 cookie。
func (s *CookieStore) Clear() {
	s.jars.Flush()
}

func (s *CookieStore) jar(u *url.URL, create bool) *cookiejar.Jar {
	host := canonicalHost(u.Host)
	if host == "" {
		return nil
	}
	key := registrableDomain(host)
	if v, ok := s.jars.Get(key); ok {
		return v.(*cookiejar.Jar)
	}
	if !create {
		return nil
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil
	}
	// Add 在 key 已存在时失败，说明被并发创建，取已有的即可
	_ = s.jars.Add(key, jar, cache.NoExpiration)
	v, _ := s.jars.Get(key)
	return v.(*cookiejar.Jar)
}

func canonicalHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSuffix(host, "."))
}

func registrableDomain(host string) string {
	if net.ParseIP(host) != nil {
		return host
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}

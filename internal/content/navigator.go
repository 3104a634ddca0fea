// Package content 客户端路由与内容页预取。
package content

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Page 预取的内容页
type Page struct {
	Route     string
	Status    int
	Body      []byte
	FetchedAt time.Time
}

// Navigator 记录当前路由，并在后台预取内容页
// baseURL 为空时只记录路由。
type Navigator struct {
	httpClient *resty.Client
	enabled    bool
	logger     *zap.Logger

	mu      sync.RWMutex
	current string
	pages   map[string]Page
	wg      sync.WaitGroup
}

// NewNavigator 创建导航器
func NewNavigator(baseURL string, timeout time.Duration, logger *zap.Logger) *Navigator {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "text/html, application/json")

	return &Navigator{
		httpClient: client,
		enabled:    baseURL != "",
		logger:     logger,
		pages:      make(map[string]Page),
	}
}

// Navigate 切换路由（god.Navigator）
func (n *Navigator) Navigate(route string) {
	n.mu.Lock()
	n.current = route
	n.mu.Unlock()

	n.logger.Info("Navigate", zap.String("route", route))

	if !n.enabled || route == "" {
		return
	}
	if _, cached := n.Page(route); cached {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.httpClient.GetClient().Timeout+time.Second)
		defer cancel()
		if _, err := n.Fetch(ctx, route); err != nil {
			n.logger.Warn("Content prefetch failed", zap.String("route", route), zap.Error(err))
		}
	}()
}

// Fetch 获取内容页并缓存
func (n *Navigator) Fetch(ctx context.Context, route string) (Page, error) {
	resp, err := n.httpClient.R().
		SetContext(ctx).
		Get(route)
	if err != nil {
		return Page{}, fmt.Errorf("failed to fetch %s: %w", route, err)
	}
	if resp.IsError() {
		return Page{}, fmt.Errorf("failed to fetch %s: status %d", route, resp.StatusCode())
	}

	page := Page{
		Route:     route,
		Status:    resp.StatusCode(),
		Body:      resp.Body(),
		FetchedAt: time.Now(),
	}
	n.mu.Lock()
	n.pages[route] = page
	n.mu.Unlock()

	n.logger.Debug("Content page fetched",
		zap.String("route", route),
		zap.Int("bytes", len(page.Body)),
	)
	return page, nil
}

// Current 当前路由
func (n *Navigator) Current() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.current
}

// Page 已缓存的内容页
func (n *Navigator) Page(route string) (Page, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	p, ok := n.pages[route]
	return p, ok
}

// Wait 等待进行中的预取结束
func (n *Navigator) Wait() {
	n.wg.Wait()
}

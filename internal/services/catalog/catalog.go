package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/3Eeeecho/go-docflow/internal/models"
	"github.com/3Eeeecho/go-docflow/internal/pkg/cache"
	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"github.com/3Eeeecho/go-docflow/internal/pkg/metrics"
	"github.com/3Eeeecho/go-docflow/internal/pkg/xerr"
	"github.com/3Eeeecho/go-docflow/internal/repositories"
	"github.com/3Eeeecho/go-docflow/internal/services/search"
	"github.com/3Eeeecho/go-docflow/internal/services/versioning"
	"go.uber.org/zap"
)

const (
	StatusAll       = "all"
	MaxPageSize     = 100
	defaultCacheTTL = 10 * time.Minute
)

// Filter 目录查询条件
type Filter struct {
	Status   string
	Search   string
	Page     int
	PageSize int
}

// Page 分页结果
type Page struct {
	Items    []models.VersionRecord
	Total    int
	Page     int
	PageSize int
}

// Catalog 只对外暴露链头的文档目录
type Catalog interface {
	// Refresh 重新查询并整体替换快照，每次变更后调用
	Refresh(ctx context.Context) ([]models.VersionRecord, error)
	ListLatest(ctx context.Context) ([]models.VersionRecord, error)
	Query(ctx context.Context, f Filter) (Page, error)
	// HeadOf 按链根 id 读取最近一次快照中的链头
	HeadOf(rootID string) (models.VersionRecord, bool)
}

type Options struct {
	CacheTTL        time.Duration
	DefaultPageSize int
}

type catalog struct {
	repo    repositories.DocumentRepository
	cache   cache.Cache
	index   search.DocumentIndex // 可为 nil
	metrics *metrics.Metrics
	opts    Options

	refreshMu sync.Mutex // 同一时间只有一个写者
	mu        sync.RWMutex
	heads     []models.VersionRecord
	byRoot    map[string]models.VersionRecord
	loaded    bool
}

var _ Catalog = (*catalog)(nil)

func NewCatalog(repo repositories.DocumentRepository, c cache.Cache, index search.DocumentIndex, m *metrics.Metrics, opts Options) Catalog {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 20
	}
	if opts.DefaultPageSize > MaxPageSize {
		opts.DefaultPageSize = MaxPageSize
	}
	return &catalog{
		repo:    repo,
		cache:   c,
		index:   index,
		metrics: m,
		opts:    opts,
		byRoot:  map[string]models.VersionRecord{},
	}
}

func (c *catalog) Refresh(ctx context.Context) ([]models.VersionRecord, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	heads, err := c.repo.ListLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: refresh: %w", err)
	}

	c.replace(heads)
	if c.cache != nil {
		if err := c.cache.Set(ctx, cache.LatestDocumentsKey, heads, c.opts.CacheTTL); err != nil {
			// 进程内快照已更新，Redis 写失败只影响其他实例
			logger.Warn("Refresh: Failed to store catalog snapshot in Redis", zap.Error(err))
		}
	}
	c.metrics.SetCatalogHeads(len(heads))
	return heads, nil
}

func (c *catalog) ListLatest(ctx context.Context) ([]models.VersionRecord, error) {
	if c.cache != nil {
		var heads []models.VersionRecord
		err := c.cache.Get(ctx, cache.LatestDocumentsKey, &heads)
		switch {
		case err == nil:
			c.replace(heads)
			return heads, nil
		case errors.Is(err, cache.ErrCacheMiss):
			return c.Refresh(ctx)
		default:
			logger.Warn("ListLatest: Failed to read catalog snapshot from Redis", zap.Error(err))
		}
	}

	if heads, ok := c.snapshot(); ok {
		return heads, nil
	}
	return c.Refresh(ctx)
}

func (c *catalog) Query(ctx context.Context, f Filter) (Page, error) {
	status, err := normalizeStatus(f.Status)
	if err != nil {
		return Page{}, err
	}
	heads, err := c.ListLatest(ctx)
	if err != nil {
		return Page{}, err
	}

	matched := make([]models.VersionRecord, 0, len(heads))
	for _, h := range heads {
		if status == StatusAll || string(h.Status) == status {
			matched = append(matched, h)
		}
	}

	text := strings.TrimSpace(f.Search)
	if text != "" {
		matched = c.search(ctx, matched, text)
	}

	return paginate(matched, f.Page, c.pageSize(f.PageSize)), nil
}

// search 配置了索引时以索引结果为准并与快照取交集，索引不可用时回退到本地子串匹配
func (c *catalog) search(ctx context.Context, heads []models.VersionRecord, text string) []models.VersionRecord {
	if c.index != nil {
		ids, err := c.index.Search(ctx, text)
		if err == nil {
			hit := make(map[string]struct{}, len(ids))
			for _, id := range ids {
				hit[id] = struct{}{}
			}
			out := make([]models.VersionRecord, 0, len(ids))
			for _, h := range heads {
				if _, ok := hit[h.ID]; ok {
					out = append(out, h)
				}
			}
			return out
		}
		logger.Warn("Query: Search index unavailable, falling back to snapshot filter", zap.String("search", text), zap.Error(err))
	}

	out := make([]models.VersionRecord, 0, len(heads))
	for _, h := range heads {
		if MatchesSearch(&h, text) {
			out = append(out, h)
		}
	}
	return out
}

// MatchesSearch 不区分大小写匹配 fileName/code/area/description/uploadedBy，与索引查询的字段一致
func MatchesSearch(r *models.VersionRecord, text string) bool {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return true
	}
	for _, field := range []string{r.FileName, r.Code, r.Area, r.Description, r.UploadedBy} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func (c *catalog) HeadOf(rootID string) (models.VersionRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.byRoot[rootID]
	return h, ok
}

func (c *catalog) replace(heads []models.VersionRecord) {
	byRoot := make(map[string]models.VersionRecord, len(heads))
	for _, h := range heads {
		byRoot[versioning.ResolveChainRoot(&h)] = h
	}
	c.mu.Lock()
	c.heads = heads
	c.byRoot = byRoot
	c.loaded = true
	c.mu.Unlock()
}

func (c *catalog) snapshot() ([]models.VersionRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return nil, false
	}
	out := make([]models.VersionRecord, len(c.heads))
	copy(out, c.heads)
	return out, true
}

func (c *catalog) pageSize(n int) int {
	if n <= 0 {
		return c.opts.DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

func normalizeStatus(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == StatusAll {
		return StatusAll, nil
	}
	if !models.DocumentStatus(s).IsReviewTarget() {
		return "", fmt.Errorf("catalog: unknown status filter %q: %w", s, xerr.ErrInvalidParams)
	}
	return s, nil
}

func paginate(items []models.VersionRecord, page, size int) Page {
	if page <= 0 {
		page = 1
	}
	total := len(items)
	// 先比较页号再相乘，避免超大 page 溢出
	start := total
	if page-1 <= total/size {
		start = min((page-1)*size, total)
	}
	end := start + size
	if end > total {
		end = total
	}
	return Page{
		Items:    items[start:end],
		Total:    total,
		Page:     page,
		PageSize: size,
	}
}

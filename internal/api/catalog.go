package api

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/peterjiatong/csres-standard-review/internal/checker"
	"github.com/peterjiatong/csres-standard-review/internal/dataset"
	"github.com/peterjiatong/csres-standard-review/internal/resolver"
)

// Catalog 标准库工作簿的只读视图，工作簿修改后下次访问时重新加载
type Catalog struct {
	path string
	log  *zap.Logger

	mu       sync.RWMutex
	modTime  time.Time
	loadedAt time.Time
	ds       *dataset.Dataset
	res      *resolver.Resolver
}

// NewCatalog 创建视图，首次访问时才读取工作簿
func NewCatalog(path string, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{path: path, log: log}
}

// Path 工作簿路径
func (c *Catalog) Path() string {
	return c.path
}

// Snapshot 当前数据集与检查器；工作簿不存在时返回错误
func (c *Catalog) Snapshot() (*dataset.Dataset, *resolver.Resolver, error) {
	info, err := os.Stat(c.path)
	if err != nil {
		return nil, nil, fmt.Errorf("标准库不可用: %w", err)
	}

	c.mu.RLock()
	if c.ds != nil && c.modTime.Equal(info.ModTime()) {
		ds, res := c.ds, c.res
		c.mu.RUnlock()
		return ds, res, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ds != nil && c.modTime.Equal(info.ModTime()) {
		return c.ds, c.res, nil
	}

	reg, ds, err := checker.LoadRegistry(c.path, c.log)
	if err != nil {
		return nil, nil, fmt.Errorf("读取标准库失败: %w", err)
	}
	c.ds = ds
	c.res = resolver.New(reg)
	c.modTime = info.ModTime()
	c.loadedAt = time.Now()
	c.log.Info("dataset loaded", zap.String("path", c.path), zap.Int("standards", reg.Len()))
	return c.ds, c.res, nil
}

// LoadedAt 最近一次加载时间，未加载时为零值
func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

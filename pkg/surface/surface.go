// Package surface 管理挂载点：引擎画布附着的位置
//
// 挂载点由宿主按 ID 预先注册，引擎在构造时按 ID 解析并独占附着，
// 销毁时释放。同一挂载点同一时刻最多附着一个引擎实例。
package surface

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/decker502/scenebridge/pkg/logging"
)

var (
	// ErrMountPointNotFound 挂载点 ID 无法解析
	ErrMountPointNotFound = errors.New("mount point not found")
	// ErrMountPointBusy 挂载点已被其他实例占用
	ErrMountPointBusy = errors.New("mount point already attached")
	// ErrDuplicateMountPoint 重复注册同一 ID
	ErrDuplicateMountPoint = errors.New("duplicate mount point")
	// ErrNotOwner 释放者不是当前占用者
	ErrNotOwner = errors.New("mount point not attached by owner")
)

// MountPoint 一个可供引擎绘制的区域
//
// bounds 与 owner 由所属 Registry 的锁保护。
type MountPoint struct {
	id     string
	mu     *sync.RWMutex
	bounds image.Rectangle
	owner  string
}

// ID 返回挂载点 ID
func (m *MountPoint) ID() string { return m.id }

// Bounds 返回挂载点在宿主坐标系中的区域（快照）
func (m *MountPoint) Bounds() image.Rectangle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bounds
}

// Owner 返回当前占用者（引擎实例 ID），未占用时为空
func (m *MountPoint) Owner() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.owner
}

// Registry 挂载点注册表
type Registry struct {
	mu     sync.RWMutex
	points map[string]*MountPoint
	logger *zap.Logger
}

// NewRegistry 创建空注册表
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		points: make(map[string]*MountPoint),
		logger: logging.OrNop(logger).Named("surface"),
	}
}

// Register 注册挂载点，ID 必须唯一
func (r *Registry) Register(id string, bounds image.Rectangle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.points[id]; ok {
		return fmt.Errorf("register %q: %w", id, ErrDuplicateMountPoint)
	}
	r.points[id] = &MountPoint{id: id, mu: &r.mu, bounds: bounds.Canon()}
	r.logger.Debug("mount point registered", zap.String("id", id), zap.Stringer("bounds", bounds))
	return nil
}

// Remove 注销挂载点，占用中的挂载点不能注销
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	mp, ok := r.points[id]
	if !ok {
		return fmt.Errorf("remove %q: %w", id, ErrMountPointNotFound)
	}
	if mp.owner != "" {
		return fmt.Errorf("remove %q: %w", id, ErrMountPointBusy)
	}
	delete(r.points, id)
	return nil
}

// Resolve 按 ID 查找挂载点
func (r *Registry) Resolve(id string) (*MountPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mp, ok := r.points[id]
	if !ok {
		return nil, fmt.Errorf("resolve %q: %w", id, ErrMountPointNotFound)
	}
	return mp, nil
}

// Attach 由 owner 独占挂载点
func (r *Registry) Attach(id, owner string) (*MountPoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mp, ok := r.points[id]
	if !ok {
		return nil, fmt.Errorf("attach %q: %w", id, ErrMountPointNotFound)
	}
	if mp.owner != "" {
		return nil, fmt.Errorf("attach %q (held by %s): %w", id, mp.owner, ErrMountPointBusy)
	}
	mp.owner = owner
	r.logger.Debug("mount point attached", zap.String("id", id), zap.String("owner", owner))
	return mp, nil
}

// Detach 释放 owner 对挂载点的占用
func (r *Registry) Detach(id, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	mp, ok := r.points[id]
	if !ok {
		return fmt.Errorf("detach %q: %w", id, ErrMountPointNotFound)
	}
	if mp.owner != owner {
		return fmt.Errorf("detach %q by %s: %w", id, owner, ErrNotOwner)
	}
	mp.owner = ""
	r.logger.Debug("mount point detached", zap.String("id", id), zap.String("owner", owner))
	return nil
}

// SetBounds 更新挂载点区域（宿主窗口尺寸变化时调用）
func (r *Registry) SetBounds(id string, bounds image.Rectangle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	mp, ok := r.points[id]
	if !ok {
		return fmt.Errorf("set bounds %q: %w", id, ErrMountPointNotFound)
	}
	mp.bounds = bounds.Canon()
	return nil
}

// IDs 返回所有已注册挂载点 ID（排序后）
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.points))
	for id := range r.points {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

package host

// Ref 跨渲染周期存活的可变单元
//
// 它不属于宿主的渲染状态：写入不会触发重新渲染，
// 只应在场景回调内部读写。
type Ref[T any] struct {
	current *T
}

// Store 写入新值
func (r *Ref[T]) Store(v T) {
	r.current = &v
}

// Load 读取当前值，未写入时 ok 为 false
func (r *Ref[T]) Load() (v T, ok bool) {
	if r.current == nil {
		return v, false
	}
	return *r.current, true
}

// Clear 清空单元
func (r *Ref[T]) Clear() {
	r.current = nil
}

package engine

import "fmt"

// HookFault 生命周期回调中发生的 panic
type HookFault struct {
	Hook  string // preload / create / update / timer
	Frame uint64
	Value any
}

func (f *HookFault) Error() string {
	return fmt.Sprintf("scene hook %s faulted at frame %d: %v", f.Hook, f.Frame, f.Value)
}

// Unwrap 当 panic 值本身是 error 时暴露给 errors.Is/As
func (f *HookFault) Unwrap() error {
	if err, ok := f.Value.(error); ok {
		return err
	}
	return nil
}

// Package keylock 提供按键互斥锁，用于同一用户同一模块的聚合写入串行化。
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyLock 按 key 加锁，不再使用的 key 会被回收
type KeyLock struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *KeyLock {
	return &KeyLock{entries: make(map[string]*entry)}
}

// Lock 获取 key 对应的锁，返回解锁函数
func (k *KeyLock) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}

// Len 当前持有或等待中的 key 数量
func (k *KeyLock) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// Package keylock 提供按 key 加锁的进程内互斥锁。
package keylock

import (
	"sort"
	"sync"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex 同一 key 互斥，不同 key 并行；无人持有的 key 会被回收
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// New 创建 KeyedMutex
func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry)}
}

// Lock 按字典序依次锁定全部 key（去重），返回解锁函数。
// 固定顺序加锁避免多 key 之间的死锁。
func (k *KeyedMutex) Lock(keys ...string) (unlock func()) {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if !seen[key] {
			seen[key] = true
			uniq = append(uniq, key)
		}
	}
	sort.Strings(uniq)

	held := make([]*entry, 0, len(uniq))
	for _, key := range uniq {
		e := k.acquire(key)
		e.mu.Lock()
		held = append(held, e)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].mu.Unlock()
				k.release(uniq[i])
			}
		})
	}
}

func (k *KeyedMutex) acquire(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	return e
}

func (k *KeyedMutex) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e := k.locks[key]
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

// Len 当前被引用的 key 数量
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

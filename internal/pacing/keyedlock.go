package pacing

import (
	"sort"
	"sync"
)

// keyedMutex 按单元键加锁，不同单元的写入互不阻塞
type keyedMutex struct {
	mu    sync.Mutex
	locks map[UnitKey]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

// Lock 获取 key 对应的锁，返回释放函数
func (k *keyedMutex) Lock(key UnitKey) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[UnitKey]*refLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func sortFieldStatuses(fields []FieldStatus) {
	sort.Slice(fields, func(a, b int) bool {
		fa, fb := fields[a], fields[b]
		if fa.UnitKey.Grade != fb.UnitKey.Grade {
			return fa.UnitKey.Grade < fb.UnitKey.Grade
		}
		if fa.UnitKey.UnitNumber != fb.UnitKey.UnitNumber {
			return fa.UnitKey.UnitNumber < fb.UnitKey.UnitNumber
		}
		if fa.SectionID != fb.SectionID {
			return fa.SectionID < fb.SectionID
		}
		return fa.Field < fb.Field
	})
}

package storage

import (
	"sync/atomic"
	"time"
)

var lastStamp atomic.Int64

// UniqueStamp returns a millisecond timestamp that is strictly increasing
// within the process. Two files stamped in the same millisecond still get
// distinct names.
func UniqueStamp() int64 {
	for {
		now := time.Now().UnixMilli()
		last := lastStamp.Load()
		if now <= last {
			now = last + 1
		}
		if lastStamp.CompareAndSwap(last, now) {
			return now
		}
	}
}

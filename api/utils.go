package api

import (
	"strings"
	"sync/atomic"
	"time"
)

var (
	lastTimestamp int64
)

// nextTimestamp returns a strictly increasing unix-nano timestamp.
func nextTimestamp() int64 {
	for {
		now := time.Now().UnixNano()
		last := atomic.LoadInt64(&lastTimestamp)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastTimestamp, last, now) {
			return now
		}
	}
}

const maxKeyLength = 256

// validKey reports whether s can be used as a table partition or row key.
func validKey(s string) bool {
	if s == "" || len(s) > maxKeyLength {
		return false
	}
	if strings.ContainsAny(s, `/\#?|`) {
		return false
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

package inquiryboard

import (
	"sync"
	"time"
)

// FloodGuard refuses a second post from the same key until interval has
// passed since the first one.
type FloodGuard struct {
	interval time.Duration
	posts    map[string]time.Time
	mutex    sync.Mutex

	// Now is the clock used for expiry.
	Now func() time.Time
}

// NewFloodGuard returns a guard that lets everything through when interval
// is not positive.
func NewFloodGuard(interval time.Duration) *FloodGuard {
	return &FloodGuard{
		interval: interval,
		posts:    make(map[string]time.Time),
		Now:      time.Now,
	}
}

func (fg *FloodGuard) CanPost(key string) bool {
	if fg.interval <= 0 || key == "" {
		return true
	}
	result := true
	now := fg.Now()
	fg.mutex.Lock()
	defer fg.mutex.Unlock()
	fg.clean(now)
	if expires, found := fg.posts[key]; found && expires.After(now) {
		// Blocked
		result = false
	} else {
		fg.posts[key] = now.Add(fg.interval)
	}
	return result
}

// Forget drops the record of key so a post that never got stored does not
// count against its poster.
func (fg *FloodGuard) Forget(key string) {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()
	delete(fg.posts, key)
}

func (fg *FloodGuard) clean(now time.Time) {
	for key, expires := range fg.posts {
		if !expires.After(now) {
			delete(fg.posts, key)
		}
	}
}

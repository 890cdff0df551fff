// Package cache keeps the most recent battery observations in memory so the
// API and the alerter can answer without touching the database.
package cache

import (
	"maps"
	"sync"
	"time"

	"github.com/sjhan/battmon/internal/model"
)

// Cache is a thread-safe holder for the latest state per device.
type Cache struct {
	mu sync.RWMutex

	desktop  *model.DesktopRecord
	mobile   map[string]*model.MobileRecord
	lastSave map[string]time.Time
}

// Snapshot is a read-only copy of the cache state.
type Snapshot struct {
	Desktop  *model.DesktopRecord           `json:"desktop,omitempty"`
	Mobile   map[string]*model.MobileRecord `json:"mobile,omitempty"`
	LastSave map[string]time.Time           `json:"last_save,omitempty"`
}

// New returns an initialized Cache.
func New() *Cache {
	return &Cache{
		mobile:   make(map[string]*model.MobileRecord),
		lastSave: make(map[string]time.Time),
	}
}

// Snapshot returns a copy of the cache contents.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		Mobile:   make(map[string]*model.MobileRecord, len(c.mobile)),
		LastSave: make(map[string]time.Time, len(c.lastSave)),
	}
	if c.desktop != nil {
		cp := *c.desktop
		snap.Desktop = &cp
	}
	for id, rec := range c.mobile {
		cp := *rec
		snap.Mobile[id] = &cp
	}
	maps.Copy(snap.LastSave, c.lastSave)
	return snap
}

// SetDesktop replaces the latest host battery observation.
func (c *Cache) SetDesktop(rec model.DesktopRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.desktop = &rec
	c.lastSave["desktop"] = rec.Timestamp
}

// SetMobile replaces the latest observation for one device.
func (c *Cache) SetMobile(rec model.MobileRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mobile[rec.DeviceID] = &rec
	c.lastSave["mobile:"+rec.DeviceID] = rec.Timestamp
}

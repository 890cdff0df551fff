package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/sjhan/battmon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func desktopRec(health float64) model.DesktopRecord {
	return model.DesktopRecord{
		Timestamp:     time.Now(),
		BatteryHealth: &health,
		DataVersion:   model.DataVersion,
	}
}

func TestSnapshot_Empty(t *testing.T) {
	c := New()
	snap := c.Snapshot()

	assert.Nil(t, snap.Desktop)
	assert.Empty(t, snap.Mobile)
	assert.Empty(t, snap.LastSave)
}

func TestSetDesktop(t *testing.T) {
	c := New()
	c.SetDesktop(desktopRec(96.0))

	snap := c.Snapshot()
	require.NotNil(t, snap.Desktop)
	assert.Equal(t, 96.0, *snap.Desktop.BatteryHealth)
	assert.Equal(t, snap.Desktop.Timestamp, snap.LastSave["desktop"])
}

func TestSetDesktop_LatestWins(t *testing.T) {
	c := New()
	c.SetDesktop(desktopRec(96.0))
	c.SetDesktop(desktopRec(95.5))

	snap := c.Snapshot()
	require.NotNil(t, snap.Desktop)
	assert.Equal(t, 95.5, *snap.Desktop.BatteryHealth)
}

func TestSetMobile_PerDevice(t *testing.T) {
	c := New()
	c.SetMobile(model.MobileRecord{DeviceID: "UDID-1", Timestamp: time.Now()})
	c.SetMobile(model.MobileRecord{DeviceID: "UDID-2", Timestamp: time.Now()})

	snap := c.Snapshot()
	assert.Len(t, snap.Mobile, 2)
	assert.Contains(t, snap.LastSave, "mobile:UDID-1")
	assert.Contains(t, snap.LastSave, "mobile:UDID-2")
}

func TestSnapshot_IsACopy(t *testing.T) {
	c := New()
	c.SetDesktop(desktopRec(96.0))

	snap := c.Snapshot()
	*snap.Desktop.BatteryHealth = 10.0
	snap.Desktop = nil

	fresh := c.Snapshot()
	require.NotNil(t, fresh.Desktop)
	// Pointer fields are shared between record copies; the record struct
	// itself is not.
	assert.NotNil(t, fresh.Desktop.BatteryHealth)
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.SetDesktop(desktopRec(90.0))
				c.SetMobile(model.MobileRecord{DeviceID: "UDID-1", Timestamp: time.Now()})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Snapshot()
			}
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	assert.NotNil(t, snap.Desktop)
}

package health

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatenciesRecordAndRead(t *testing.T) {
	var lat Latencies
	lat.RecordSol(15 * time.Millisecond)
	lat.RecordToken(30 * time.Millisecond)
	lat.RecordDataApi(45 * time.Millisecond)

	m := NewMonitor(&lat, nil)
	snap := m.Compute(100, 90, time.Now().UnixMilli(), 2, 0)

	assert.Equal(t, float64(15), snap.Rpc.LastSolMs)
	assert.Equal(t, float64(30), snap.Rpc.LastTokenMs)
	assert.Equal(t, float64(45), snap.Rpc.LastDataApiMs)
	assert.Equal(t, uint64(100), snap.Ws.Slot)
	assert.Equal(t, uint64(90), snap.Ws.Root)
	assert.Equal(t, 2, snap.Wallets.Count)
}

func TestMonitorRecordsCountersAndRegisters(t *testing.T) {
	var lat Latencies
	reg := prometheus.NewRegistry()
	m := NewMonitor(&lat, reg)

	m.RecordRefresh()
	m.RecordRefresh()
	m.RecordSubscriptionErr()

	snap := m.Compute(0, 0, 0, 0, 0)
	assert.Equal(t, int64(2), snap.Counters.RefreshesTotal)
	assert.Equal(t, int64(1), snap.Counters.SubscriptionErrorsTotal)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.refreshesTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.subErrorsTotal))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(mfs))
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["warchest_refreshes_total"])
	assert.True(t, names["warchest_subscription_errors_total"])
}

func TestComputeLastSlotAgeZeroWhenNeverSeen(t *testing.T) {
	var lat Latencies
	m := NewMonitor(&lat, nil)
	snap := m.Compute(0, 0, 0, 0, 0)
	assert.Equal(t, int64(0), snap.Ws.LastSlotAgeMs)
}

func TestWriteStatusFileAtomicAndReadable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "status.json")

	var lat Latencies
	m := NewMonitor(&lat, nil)
	snap := m.Compute(1, 1, time.Now().UnixMilli(), 1, 0)

	require.NoError(t, WriteStatusFile(path, snap))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "\"updatedAt\"")
	assert.Contains(t, string(b), "\"health\"")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no leftover temp file after rename")
}

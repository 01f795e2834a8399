package netdev

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/simulate"
)

func pooledIOS(t *testing.T, pool *Pool, d *pipeDialer) *Connection {
	t.Helper()
	creds := testCreds("r1")
	creds.Pooled = true
	return NewConnection(creds, &BaseDriver{P: iosProfile()}, Options{Dialer: d, Pool: pool})
}

func TestPooledConnectReusesSession(t *testing.T) {
	pool := NewPool(PoolConfig{IdleTimeout: time.Minute})
	defer pool.ForceCleanup()
	d := newPipeDialer(func() *simulate.DeviceProfile { return simulate.CiscoIOS("r1") })

	first := pooledIOS(t, pool, d)
	require.NoError(t, first.Connect(context.Background()))
	require.NoError(t, first.Disconnect(context.Background()))
	assert.False(t, d.last().Closed())

	second := pooledIOS(t, pool, d)
	require.NoError(t, second.Connect(context.Background()))
	defer second.Disconnect(context.Background())

	assert.Equal(t, 1, d.dials())
	assert.True(t, second.Adopted())
	assert.Equal(t, "r1#", second.Prompt())
	assert.Equal(t, "r1", second.BasePrompt())
	assert.Equal(t, 1, d.rec.Count("terminal length 0"))

	res, err := second.SendCommand(context.Background(), "show clock")
	require.NoError(t, err)
	assert.True(t, res.Success)

	st := pool.Stats()
	assert.Equal(t, 1, st.Entries)
	assert.EqualValues(t, 1, st.Created)
	assert.EqualValues(t, 1, st.Reused)
}

func TestPoolKeysByHostPortUser(t *testing.T) {
	pool := NewPool(PoolConfig{})
	defer pool.ForceCleanup()
	d := newPipeDialer(func() *simulate.DeviceProfile { return simulate.CiscoIOS("r1") })

	a := pooledIOS(t, pool, d)
	require.NoError(t, a.Connect(context.Background()))
	creds := testCreds("r1")
	creds.Pooled = true
	creds.Username = "other"
	b := NewConnection(creds, &BaseDriver{P: iosProfile()}, Options{Dialer: d, Pool: pool})
	require.NoError(t, b.Connect(context.Background()))

	assert.Equal(t, 2, d.dials())
	assert.Equal(t, 2, pool.Len())
}

func TestConcurrentPooledConnectDialsOnce(t *testing.T) {
	pool := NewPool(PoolConfig{})
	defer pool.ForceCleanup()
	d := newPipeDialer(func() *simulate.DeviceProfile { return simulate.CiscoIOS("r1") })
	d.delay = 50 * time.Millisecond

	var wg sync.WaitGroup
	conns := make([]*Connection, 4)
	errs := make([]error, 4)
	for i := range conns {
		conns[i] = pooledIOS(t, pool, d)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = conns[i].Connect(context.Background())
		}(i)
	}
	wg.Wait()

	for i := range conns {
		require.NoError(t, errs[i])
		assert.Equal(t, "r1#", conns[i].Prompt())
	}
	assert.Equal(t, 1, d.dials())
}

func TestSweepEvictsIdleSession(t *testing.T) {
	pool := NewPool(PoolConfig{IdleTimeout: time.Minute})
	d := newPipeDialer(func() *simulate.DeviceProfile { return simulate.CiscoIOS("r1") })

	c := pooledIOS(t, pool, d)
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Disconnect(context.Background()))

	assert.Zero(t, pool.Sweep(time.Now()))
	assert.False(t, d.last().Closed())

	assert.Equal(t, 1, pool.Sweep(time.Now().Add(2*time.Minute)))
	assert.True(t, d.last().Closed())
	assert.Zero(t, pool.Len())
	assert.EqualValues(t, 1, pool.Stats().Evicted)
}

func TestSweepSkipsBusySession(t *testing.T) {
	pool := NewPool(PoolConfig{IdleTimeout: time.Minute})
	defer pool.ForceCleanup()
	d := newPipeDialer(func() *simulate.DeviceProfile { return simulate.CiscoIOS("r1") })

	c := pooledIOS(t, pool, d)
	require.NoError(t, c.Connect(context.Background()))
	c.sess.mu.Lock()
	assert.Zero(t, pool.Sweep(time.Now().Add(time.Hour)))
	c.sess.mu.Unlock()
	assert.Equal(t, 1, pool.Len())
}

func TestDeadPooledSessionIsReplaced(t *testing.T) {
	pool := NewPool(PoolConfig{})
	defer pool.ForceCleanup()
	d := newPipeDialer(func() *simulate.DeviceProfile { return simulate.CiscoIOS("r1") })

	first := pooledIOS(t, pool, d)
	require.NoError(t, first.Connect(context.Background()))
	require.NoError(t, first.Disconnect(context.Background()))
	require.NoError(t, d.last().Close())

	second := pooledIOS(t, pool, d)
	require.NoError(t, second.Connect(context.Background()))
	defer second.Disconnect(context.Background())
	assert.Equal(t, 2, d.dials())
	assert.False(t, second.Adopted())
}

func TestPooledDisconnectOfDeadSessionCloses(t *testing.T) {
	pool := NewPool(PoolConfig{})
	defer pool.ForceCleanup()
	d := newPipeDialer(func() *simulate.DeviceProfile { return simulate.CiscoIOS("r1") })

	c := pooledIOS(t, pool, d)
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, d.last().Close())
	require.NoError(t, c.Disconnect(context.Background()))
	assert.Zero(t, pool.Len())
}

func TestForceCleanupClosesAll(t *testing.T) {
	pool := NewPool(PoolConfig{})
	d := newPipeDialer(func() *simulate.DeviceProfile { return simulate.CiscoIOS("r1") })
	for _, host := range []string{"10.0.0.1", "10.0.0.2"} {
		creds := testCreds(host)
		creds.Pooled = true
		c := NewConnection(creds, &BaseDriver{P: iosProfile()}, Options{Dialer: d, Pool: pool})
		require.NoError(t, c.Connect(context.Background()))
		require.NoError(t, c.Disconnect(context.Background()))
	}
	require.Equal(t, 2, pool.Len())

	assert.Equal(t, 2, pool.ForceCleanup())
	assert.Zero(t, pool.Len())
	for _, tr := range d.transports {
		assert.True(t, tr.Closed())
	}
}

func TestMaxEntriesEvictsOldest(t *testing.T) {
	pool := NewPool(PoolConfig{MaxEntries: 1})
	defer pool.ForceCleanup()
	d := newPipeDialer(func() *simulate.DeviceProfile { return simulate.CiscoIOS("r1") })
	for _, host := range []string{"10.0.0.1", "10.0.0.2"} {
		creds := testCreds(host)
		creds.Pooled = true
		c := NewConnection(creds, &BaseDriver{P: iosProfile()}, Options{Dialer: d, Pool: pool})
		require.NoError(t, c.Connect(context.Background()))
		require.NoError(t, c.Disconnect(context.Background()))
	}
	assert.Equal(t, 1, pool.Len())
	assert.True(t, d.transports[0].Closed())
	assert.False(t, d.transports[1].Closed())
}

func TestPoolStartSweepsInBackground(t *testing.T) {
	pool := NewPool(PoolConfig{IdleTimeout: time.Millisecond, SweepInterval: 20 * time.Millisecond})
	d := newPipeDialer(func() *simulate.DeviceProfile { return simulate.CiscoIOS("r1") })
	c := pooledIOS(t, pool, d)
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Disconnect(context.Background()))

	pool.Start(context.Background())
	defer pool.Stop()
	assert.Eventually(t, func() bool { return pool.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, d.last().Closed())
}

func TestPooledPeersReadModeWhileOtherConfigures(t *testing.T) {
	pool := NewPool(PoolConfig{IdleTimeout: time.Minute})
	defer pool.ForceCleanup()
	d := newPipeDialer(func() *simulate.DeviceProfile { return simulate.CiscoIOS("r1") })

	writer := pooledIOS(t, pool, d)
	require.NoError(t, writer.Connect(context.Background()))
	reader := pooledIOS(t, pool, d)
	require.NoError(t, reader.Connect(context.Background()))
	assert.True(t, reader.Adopted())

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			_ = reader.Prompt()
			_ = reader.InConfigMode()
			_ = reader.InPrivilegedMode()
			_ = reader.Flag("vdom")
			_ = reader.PromptMatcher()
		}
	}()

	res, err := writer.SendConfig(context.Background(), []string{"interface GigabitEthernet0/1", "description uplink"})
	close(done)
	wg.Wait()
	require.NoError(t, err)
	assert.True(t, res.Success)

	writer.SetFlag("vdom", true)
	assert.True(t, reader.Flag("vdom"))
	assert.False(t, reader.InConfigMode())
	assert.Equal(t, "r1#", reader.Prompt())
	assert.Equal(t, 1, d.dials())
}

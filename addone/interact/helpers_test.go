package interact_test

import (
	"context"
	"sync"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact"
	_ "github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/addone/interact/platforms/all"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/netdev"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/simulate"
)

// simDialer 每次拨号生成一台内存模拟设备
type simDialer struct {
	mu         sync.Mutex
	build      func() *simulate.DeviceProfile
	rec        *simulate.Recorder
	transports []*simulate.PipeTransport
}

func newSimDialer(build func() *simulate.DeviceProfile) *simDialer {
	return &simDialer{build: build, rec: &simulate.Recorder{}}
}

func (d *simDialer) Dial(_ context.Context, _ netdev.Credentials) (netdev.Transport, error) {
	t := simulate.NewPipeTransport(d.build(), d.rec)
	d.mu.Lock()
	d.transports = append(d.transports, t)
	d.mu.Unlock()
	return t, nil
}

func (d *simDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.transports)
}

func (d *simDialer) last() *simulate.PipeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transports[len(d.transports)-1]
}

func dispatcherFor(build func() *simulate.DeviceProfile) (*interact.Dispatcher, *simDialer) {
	d := newSimDialer(build)
	return interact.NewDispatcher(interact.Config{Dialer: d}), d
}

func creds(host, deviceType string) netdev.Credentials {
	return netdev.Credentials{
		Host:           host,
		Username:       "admin",
		Password:       "nova",
		DeviceType:     deviceType,
		CommandTimeout: netdev.Seconds(3),
	}
}

// Package supervisor owns the transport's lifecycle: starting and
// stopping the WebSocket server, wiring the delivery channel to the
// injector worker pool, publishing mDNS, and rotating the master token.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/scanlink/scanlinkd/internal/cryptoutil"
	"github.com/scanlink/scanlinkd/internal/delivery"
	"github.com/scanlink/scanlinkd/internal/discovery"
	"github.com/scanlink/scanlinkd/internal/injector"
	"github.com/scanlink/scanlinkd/internal/store"
	"github.com/scanlink/scanlinkd/internal/transport"
)

const fixedPort = 8081

// ConnectionInfo is published to the phone inside the QR payload.
type ConnectionInfo struct {
	IP        string `json:"ip"`
	Port      int    `json:"port"`
	Token     string `json:"token"`
	SecretKey string `json:"secretKey,omitempty"`
}

// Supervisor coordinates one transport lifetime at a time.
type Supervisor struct {
	store        *store.Store
	instanceName string

	mu         sync.Mutex
	srv        *transport.Server
	advertiser *discovery.Advertiser
	channel    *delivery.Channel
	pool       *injector.Pool
	poolDone   chan struct{}
	cancel     context.CancelFunc
	info       ConnectionInfo

	starting singleflight.Group
}

// New creates a Supervisor bound to a credential store.
// instanceName is the mDNS instance name (typically the hostname).
func New(st *store.Store, instanceName string) *Supervisor {
	return &Supervisor{store: st, instanceName: instanceName}
}

// Start coalesces concurrent start calls into the first: if a start is
// already in flight, callers block on the same result rather than
// racing a second transport into existence. If a server is already
// live, it is stopped first and the caller waits for the OS to release
// the port before rebinding.
func (sv *Supervisor) Start(ctx context.Context) (ConnectionInfo, error) {
	result, err, _ := sv.starting.Do("start", func() (any, error) {
		return sv.start(ctx)
	})
	if err != nil {
		return ConnectionInfo{}, err
	}
	return result.(ConnectionInfo), nil
}

func (sv *Supervisor) start(ctx context.Context) (ConnectionInfo, error) {
	sv.mu.Lock()
	alreadyRunning := sv.srv != nil
	sv.mu.Unlock()

	if alreadyRunning {
		if err := sv.Stop(); err != nil {
			return ConnectionInfo{}, fmt.Errorf("stop prior transport: %w", err)
		}
		time.Sleep(500 * time.Millisecond)
	}

	masterToken, err := cryptoutil.GenerateMasterToken()
	if err != nil {
		return ConnectionInfo{}, fmt.Errorf("generate master token: %w", err)
	}

	ip, err := lanIP()
	if err != nil {
		slog.Warn("failed to detect LAN IP, falling back to 0.0.0.0", "error", err)
		ip = "0.0.0.0"
	}

	info := ConnectionInfo{IP: ip, Port: fixedPort, Token: masterToken}
	if sv.store.SecretKey() == "" {
		// Only the very first publication, before any pairing has ever
		// happened, may carry the secret key — afterward it is derived
		// server-side on pair and never put on the wire again.
		info.SecretKey = ""
	}

	channel := delivery.NewChannel()
	pool := injector.NewPool(channel, 0)
	poolDone := make(chan struct{})
	go func() {
		pool.Run()
		close(poolDone)
	}()

	srv := transport.NewServer(transport.Config{
		Port:        fixedPort,
		MasterToken: masterToken,
		RateLimit:   5,
		RateBurst:   10,
	}, sv.store, channel)

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		if err := srv.ListenAndServe(runCtx); err != nil {
			slog.Error("transport exited", "error", err)
		}
	}()

	advertiser, err := discovery.NewAdvertiser(discovery.Config{
		InstanceName: sv.instanceName,
		Port:         fixedPort,
		MasterToken:  masterToken,
	})
	if err != nil {
		slog.Warn("failed to init mdns advertiser", "error", err)
	} else if err := advertiser.Start(); err != nil {
		slog.Warn("failed to start mdns advertising", "error", err)
		advertiser = nil
	}

	sv.mu.Lock()
	sv.srv = srv
	sv.advertiser = advertiser
	sv.channel = channel
	sv.pool = pool
	sv.poolDone = poolDone
	sv.cancel = cancel
	sv.info = info
	sv.mu.Unlock()

	return info, nil
}

// Stop signals shutdown, waits for the transport task to exit, and
// clears the published ConnectionInfo. In-flight injector work is
// allowed to finish; the worker pool exits once the delivery channel
// drains and closes.
func (sv *Supervisor) Stop() error {
	sv.mu.Lock()
	srv := sv.srv
	advertiser := sv.advertiser
	channel := sv.channel
	poolDone := sv.poolDone
	cancel := sv.cancel
	sv.srv = nil
	sv.advertiser = nil
	sv.channel = nil
	sv.pool = nil
	sv.poolDone = nil
	sv.cancel = nil
	sv.info = ConnectionInfo{}
	sv.mu.Unlock()

	if srv == nil {
		return nil
	}

	if advertiser != nil {
		advertiser.Stop()
	}
	if cancel != nil {
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	err := srv.Shutdown(shutdownCtx)

	if channel != nil {
		channel.Close()
	}
	if poolDone != nil {
		<-poolDone
	}
	return err
}

// RegenerateToken invalidates pending QR codes by restarting the
// transport with a fresh master token. AuthorizedDevice records — and
// the auth_tokens already issued to them — are left intact.
func (sv *Supervisor) RegenerateToken(ctx context.Context) (ConnectionInfo, error) {
	if err := sv.Stop(); err != nil {
		return ConnectionInfo{}, err
	}
	return sv.Start(ctx)
}

// IsRunning reports whether a transport is currently live.
func (sv *Supervisor) IsRunning() bool {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return sv.srv != nil
}

// Info returns the currently published ConnectionInfo, or the zero
// value if no transport is running.
func (sv *Supervisor) Info() ConnectionInfo {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return sv.info
}

// ConnectedDeviceCount returns the distinct authenticated device count,
// or 0 if no transport is running.
func (sv *Supervisor) ConnectedDeviceCount() int {
	sv.mu.Lock()
	srv := sv.srv
	sv.mu.Unlock()
	if srv == nil {
		return 0
	}
	return srv.Sessions().ConnectedDeviceCount()
}

// ConnectedDevices returns the device_ids currently authenticated on
// live sessions.
func (sv *Supervisor) ConnectedDevices() []string {
	sv.mu.Lock()
	srv := sv.srv
	sv.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Sessions().ConnectedDevices()
}

// AuthorizedDevices returns every persisted AuthorizedDevice.
func (sv *Supervisor) AuthorizedDevices() []store.AuthorizedDevice {
	return sv.store.ListDevices()
}

// RevokeDevice removes one authorized device.
func (sv *Supervisor) RevokeDevice(deviceID string) (bool, error) {
	return sv.store.RemoveDevice(deviceID)
}

// RevokeAllDevices clears every authorized device.
func (sv *Supervisor) RevokeAllDevices() error {
	return sv.store.RevokeAll()
}

// lanIP returns the first non-loopback IPv4 address found on any "up"
// interface.
func lanIP() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil || ip4.IsLoopback() {
				continue
			}
			return ip4.String(), nil
		}
	}
	return "", fmt.Errorf("no LAN IPv4 address found")
}

package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// Errors
var (
	ErrNoDevice = errors.New("no device found")
)

// Config holds browse settings.
type Config struct {
	Service  string        // Service type (default: "_http._tcp")
	Domain   string        // Browse domain (default: "local.")
	Instance string        // Case-insensitive substring filter on instance names
	Timeout  time.Duration // How long to listen (default: 3s)
}

// DefaultConfig returns default browse settings.
func DefaultConfig() Config {
	return Config{
		Service: "_http._tcp",
		Domain:  "local.",
		Timeout: 3 * time.Second,
	}
}

// Device is one advertised console.
type Device struct {
	Instance string
	Host     string
	Port     int
	Addrs    []net.IP
	Text     []string
}

// TXT returns the value of a key=value TXT record.
func (d Device) TXT(key string) (string, bool) {
	prefix := key + "="
	for _, t := range d.Text {
		if strings.HasPrefix(t, prefix) {
			return t[len(prefix):], true
		}
	}
	return "", false
}

// Origin returns the device's web origin, preferring a literal address
// over the advertised host name.
func (d Device) Origin() string {
	host := d.Host
	if len(d.Addrs) > 0 {
		host = d.Addrs[0].String()
	}
	scheme := "http"
	if d.Port == 443 {
		scheme = "https"
	}
	return scheme + "://" + net.JoinHostPort(host, strconv.Itoa(d.Port))
}

// Browse listens for announcements until cfg.Timeout elapses or ctx is
// done, and returns the matching devices sorted by instance name.
func Browse(ctx context.Context, cfg Config, logger *slog.Logger) ([]Device, error) {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Service == "" {
		cfg.Service = def.Service
	}
	if cfg.Domain == "" {
		cfg.Domain = def.Domain
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	resolver, err := zeroconf.NewResolver()
	if err != nil {
		return nil, fmt.Errorf("create resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 16)
	if err := resolver.Browse(ctx, cfg.Service, cfg.Domain, entries); err != nil {
		return nil, fmt.Errorf("browse %s: %w", cfg.Service, err)
	}

	logger.Debug("browsing for devices",
		"service", cfg.Service,
		"domain", cfg.Domain,
		"timeout", cfg.Timeout,
	)

	devices := collect(ctx, entries, cfg.Instance)
	logger.Info("device discovery finished", "found", len(devices))
	return devices, nil
}

// First returns the first device Browse finds.
func First(ctx context.Context, cfg Config, logger *slog.Logger) (Device, error) {
	devices, err := Browse(ctx, cfg, logger)
	if err != nil {
		return Device{}, err
	}
	if len(devices) == 0 {
		return Device{}, fmt.Errorf("%w: %s in %s", ErrNoDevice, cfg.Service, cfg.Domain)
	}
	return devices[0], nil
}

// collect reads entries until the channel closes or ctx is done.
func collect(ctx context.Context, entries <-chan *zeroconf.ServiceEntry, filter string) []Device {
	filter = strings.ToLower(filter)
	seen := make(map[string]Device)

	for {
		select {
		case <-ctx.Done():
			return sorted(seen)
		case e, ok := <-entries:
			if !ok {
				return sorted(seen)
			}
			d, ok := fromEntry(e)
			if !ok {
				continue
			}
			if filter != "" && !strings.Contains(strings.ToLower(d.Instance), filter) {
				continue
			}
			// Later announcements carry fresher addresses.
			seen[d.Instance] = d
		}
	}
}

func fromEntry(e *zeroconf.ServiceEntry) (Device, bool) {
	if e == nil || e.Port == 0 {
		return Device{}, false
	}
	host := strings.TrimSuffix(e.HostName, ".")
	addrs := make([]net.IP, 0, len(e.AddrIPv4)+len(e.AddrIPv6))
	addrs = append(addrs, e.AddrIPv4...)
	addrs = append(addrs, e.AddrIPv6...)
	if host == "" && len(addrs) == 0 {
		return Device{}, false
	}
	return Device{
		Instance: e.Instance,
		Host:     host,
		Port:     e.Port,
		Addrs:    addrs,
		Text:     e.Text,
	}, true
}

func sorted(seen map[string]Device) []Device {
	devices := make([]Device, 0, len(seen))
	for _, d := range seen {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Instance < devices[j].Instance
	})
	return devices
}

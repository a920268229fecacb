package station

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	DiscoveryService = "_wxlogger._tcp"
	DiscoveryDomain  = "local."
	DiscoveryTimeout = 5 * time.Second
)

// DiscoveredLogger is one logger bridge found on the local network.
type DiscoveredLogger struct {
	Instance string
	Host     string
	Address  string
}

// Discover browses mDNS for logger serial bridges until the timeout or the
// context expires.
func Discover(ctx context.Context, timeout time.Duration, logger *slog.Logger) ([]DiscoveredLogger, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize resolver: %w", err)
	}

	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		if err := resolver.Browse(browseCtx, DiscoveryService, DiscoveryDomain, entries); err != nil {
			logger.Error("Failed to browse for loggers", "error", err)
			cancel()
		}
	}()

	var found []DiscoveredLogger
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return found, nil
			}
			if len(entry.AddrIPv4) == 0 {
				continue
			}

			discovered := DiscoveredLogger{
				Instance: entry.Instance,
				Host:     entry.HostName,
				Address:  fmt.Sprintf("%s:%d", entry.AddrIPv4[0], entry.Port),
			}
			logger.Debug("Discovered logger", "instance", discovered.Instance, "address", discovered.Address)
			found = append(found, discovered)
		case <-browseCtx.Done():
			return found, nil
		}
	}
}

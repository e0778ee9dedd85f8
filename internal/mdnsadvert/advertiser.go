// Package mdnsadvert publishes the satellite's discovery record so a
// controller (Home Assistant) can find it without a configured address,
// per spec.md §4.3. It wraps github.com/hashicorp/mdns the same way
// harperreed-resonate-go's discovery.Manager wraps its own mDNS server
// behind Advertise()/Stop() calls from the host's Start()/Stop().
package mdnsadvert

import (
	"fmt"
	"net"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"

	"github.com/antoniostano/samantha/internal/observability"
)

const serviceType = "_esphomelib._tcp"

// Info is the set of identifying facts the advertiser turns into a TXT
// record, per spec.md §4.3's table.
type Info struct {
	DeviceName     string
	Version        string
	Platform       string
	Board          string
	MacAddress     string
	ProjectName    string
	ProjectVersion string
	Port           int
}

// Advertiser owns one published mDNS service record for the lifetime of
// the process.
type Advertiser struct {
	log     zerolog.Logger
	metrics *observability.Metrics
	server  *mdns.Server
}

func New(log zerolog.Logger, metrics *observability.Metrics) *Advertiser {
	return &Advertiser{log: log.With().Str("component", "mdns").Logger(), metrics: metrics}
}

// Register publishes the service record. Failure is logged by the
// caller and is not fatal to startup (spec.md §7's mDNS failure row):
// the device may still be reached by a manually configured address.
func (a *Advertiser) Register(info Info) error {
	host, err := hostname()
	if err != nil {
		a.observe("register", "error")
		return fmt.Errorf("mdnsadvert: resolve hostname: %w", err)
	}

	ip, err := firstRoutableIPv4()
	if err != nil {
		a.observe("register", "error")
		return fmt.Errorf("mdnsadvert: find routable address: %w", err)
	}

	txt := []string{
		"version=" + info.Version,
		"platform=" + info.Platform,
		"board=" + info.Board,
		"mac=" + info.MacAddress,
		"friendly_name=" + info.DeviceName,
		"package_import=false",
		"project_name=" + info.ProjectName,
		"project_version=" + info.ProjectVersion,
	}

	service, err := mdns.NewMDNSService(info.DeviceName, serviceType, "", host, info.Port, []net.IP{ip}, txt)
	if err != nil {
		a.observe("register", "error")
		return fmt.Errorf("mdnsadvert: build service record: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		a.observe("register", "error")
		return fmt.Errorf("mdnsadvert: start server: %w", err)
	}
	a.server = server

	a.log.Info().
		Str("device_name", info.DeviceName).
		Str("ip", ip.String()).
		Int("port", info.Port).
		Msg("mdns service registered")
	a.observe("register", "ok")
	return nil
}

// Unregister shuts the mDNS server down synchronously, per spec.md
// §4.3's "unregister before process exit" requirement.
func (a *Advertiser) Unregister() error {
	if a.server == nil {
		return nil
	}
	if err := a.server.Shutdown(); err != nil {
		a.observe("unregister", "error")
		return fmt.Errorf("mdnsadvert: shutdown: %w", err)
	}
	a.log.Info().Msg("mdns service unregistered")
	a.observe("unregister", "ok")
	return nil
}

func (a *Advertiser) observe(operation, result string) {
	if a.metrics != nil {
		a.metrics.ObserveMDNSEvent(operation, result)
	}
}

func hostname() (string, error) {
	h, err := netHostname()
	if err != nil {
		return "", err
	}
	return h + ".", nil
}

// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

import (
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy contains the decisions the helper applies to commands.
//
// Construct using [DefaultPolicy] or [LoadPolicy]. Call [*Policy.Validate]
// after changing fields by hand.
type Policy struct {
	// DisplayName is the name shown by the OS next to helper-managed
	// networks. Empty means no display name option.
	DisplayName string `yaml:"displayName"`

	// TargetSSID is the SSID selected by the filterScanList handler.
	TargetSSID string `yaml:"targetSSID"`

	// TargetPassword is the credential attached to the target network.
	TargetPassword string `yaml:"targetPassword"`

	// ProbeURL is the URL fetched by the presentUI probe.
	ProbeURL string `yaml:"probeURL"`

	// ProbeMethod is the HTTP method used by the probe.
	ProbeMethod string `yaml:"probeMethod"`

	// ProbeTimeout bounds the probe. Zero means no bound, which matches
	// the OS not enforcing its deadline while the UI is presented.
	ProbeTimeout time.Duration `yaml:"probeTimeout"`

	// ProbeMaxBodySize is the maximum number of body bytes accumulated.
	ProbeMaxBodySize int64 `yaml:"probeMaxBodySize"`

	// ProbeDNSServer, when set, is the DNS server ("addr:port") used to
	// resolve the probe host through the command's bound network.
	ProbeDNSServer string `yaml:"probeDNSServer"`

	// ProbeDNSProtocol is the transport used to reach ProbeDNSServer,
	// either "udp" or "tcp".
	ProbeDNSProtocol string `yaml:"probeDNSProtocol"`

	// NotificationTitle is the title of the authentication notification.
	NotificationTitle string `yaml:"notificationTitle"`

	// NotificationBody is the body of the authentication notification.
	// Every %s, if present, is replaced with the network SSID. Other
	// percent signs are kept as is.
	NotificationBody string `yaml:"notificationBody"`
}

// DefaultPolicy returns the default [*Policy].
func DefaultPolicy() *Policy {
	return &Policy{
		DisplayName:       "HotspotHelper",
		TargetSSID:        "MyWiFiNetwork",
		TargetPassword:    "MySuperSecurePassword",
		ProbeURL:          "http://touch.kaspersky.com",
		ProbeMethod:       http.MethodGet,
		ProbeTimeout:      30 * time.Second,
		ProbeMaxBodySize:  1 << 20,
		ProbeDNSServer:    "",
		ProbeDNSProtocol:  "udp",
		NotificationTitle: "Authentication Required",
		NotificationBody:  "Open App to connect to: %s",
	}
}

// LoadPolicy reads a YAML policy file on top of [DefaultPolicy] and
// validates the result.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	policy := DefaultPolicy()
	if err := yaml.Unmarshal(data, policy); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPolicy, path, err)
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return policy, nil
}

// Validate checks the policy for consistency.
func (p *Policy) Validate() error {
	if _, err := p.probeURL(); err != nil {
		return err
	}
	switch p.ProbeMethod {
	case http.MethodGet, http.MethodPost, http.MethodHead:
	default:
		return fmt.Errorf("%w: unsupported probe method %q", ErrInvalidPolicy, p.ProbeMethod)
	}
	if p.ProbeTimeout < 0 {
		return fmt.Errorf("%w: negative probe timeout", ErrInvalidPolicy)
	}
	if p.ProbeMaxBodySize <= 0 {
		return fmt.Errorf("%w: probe body size must be positive", ErrInvalidPolicy)
	}
	if _, _, err := p.probeDNSServer(); err != nil {
		return err
	}
	switch p.ProbeDNSProtocol {
	case "udp", "tcp":
	default:
		return fmt.Errorf("%w: unsupported probe DNS protocol %q", ErrInvalidPolicy, p.ProbeDNSProtocol)
	}
	return nil
}

// NotificationText returns the notification body for the given network.
func (p *Policy) NotificationText(network *Network) string {
	return strings.ReplaceAll(p.NotificationBody, "%s", network.SSID)
}

func (p *Policy) probeURL() (*url.URL, error) {
	URL, err := url.Parse(p.ProbeURL)
	if err != nil {
		return nil, fmt.Errorf("%w: probe URL: %w", ErrInvalidPolicy, err)
	}
	if URL.Scheme != "http" && URL.Scheme != "https" {
		return nil, fmt.Errorf("%w: probe URL scheme must be http or https", ErrInvalidPolicy)
	}
	if URL.Hostname() == "" {
		return nil, fmt.Errorf("%w: probe URL without host", ErrInvalidPolicy)
	}
	return URL, nil
}

func (p *Policy) probeDNSServer() (netip.AddrPort, bool, error) {
	if p.ProbeDNSServer == "" {
		return netip.AddrPort{}, false, nil
	}
	server, err := netip.ParseAddrPort(p.ProbeDNSServer)
	if err != nil {
		return netip.AddrPort{}, false, fmt.Errorf("%w: probe DNS server: %w", ErrInvalidPolicy, err)
	}
	return server, true, nil
}

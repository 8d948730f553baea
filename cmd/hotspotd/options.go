// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/bassosimone/hotspot"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
)

// options contains the daemon settings.
type options struct {
	commandTimeout time.Duration
	listen         string
	policy         *hotspot.Policy
	verbose        bool
}

// lookupEnvFunc is the signature of [os.LookupEnv].
type lookupEnvFunc func(key string) (string, bool)

// loadOptions computes the options. Precedence, from lowest: defaults, the
// YAML policy file, the dotenv file, the process environment, explicit flags.
func loadOptions(args []string, lookupEnv lookupEnvFunc) (*options, error) {
	fset := flag.NewFlagSet("hotspotd", flag.ContinueOnError)
	var (
		commandTimeout time.Duration
		configPath     string
		displayName    string
		envFile        string
		listen         string
		probeDNSProto  string
		probeDNSServer string
		probeTimeout   time.Duration
		probeURL       string
		targetPassword string
		targetSSID     string
		verbose        bool
	)
	fset.DurationVar(&commandTimeout, "command-timeout", 30*time.Second, "Deadline of commands other than presentUI")
	fset.StringVarP(&configPath, "config", "c", "", "YAML policy file")
	fset.StringVar(&displayName, "display-name", "", "Name shown by the OS next to helper-managed networks")
	fset.StringVar(&envFile, "env-file", ".env", "Optional dotenv file with HOTSPOT_* settings")
	fset.StringVarP(&listen, "listen", "l", "127.0.0.1:8080", "Address of the bridge API")
	fset.StringVar(&probeDNSProto, "probe-dns-protocol", "udp", "Transport used to reach the probe DNS server (udp or tcp)")
	fset.StringVar(&probeDNSServer, "probe-dns-server", "", "DNS server (addr:port) resolving the probe host")
	fset.DurationVar(&probeTimeout, "probe-timeout", 0, "Bound of the presentUI probe (0 means none)")
	fset.StringVar(&probeURL, "probe-url", "", "URL fetched by the presentUI probe")
	fset.StringVar(&targetPassword, "target-password", "", "Credential of the target network")
	fset.StringVar(&targetSSID, "target-ssid", "", "SSID selected from scan lists")
	fset.BoolVarP(&verbose, "verbose", "v", false, "Emit debug logs")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	if fset.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fset.Args())
	}

	// 1. Merge the dotenv file below the process environment
	fileEnv, err := godotenv.Read(envFile)
	if errors.Is(err, fs.ErrNotExist) && !fset.Changed("env-file") {
		err = nil // only an explicit file is mandatory
	}
	if err != nil {
		return nil, err
	}
	getenv := func(key string) (string, bool) {
		if value, ok := lookupEnv(key); ok {
			return value, true
		}
		value, ok := fileEnv[key]
		return value, ok
	}

	// 2. Load the policy
	if !fset.Changed("config") {
		configPath, _ = getenv("HOTSPOT_CONFIG")
	}
	policy := hotspot.DefaultPolicy()
	if configPath != "" {
		if policy, err = hotspot.LoadPolicy(configPath); err != nil {
			return nil, err
		}
	}

	// 3. Apply the environment and then the flags
	opts := &options{
		commandTimeout: commandTimeout,
		listen:         listen,
		policy:         policy,
		verbose:        verbose,
	}
	stringSettings := []struct {
		flag string
		env  string
		dst  *string
		src  string
	}{
		{"display-name", "HOTSPOT_DISPLAY_NAME", &policy.DisplayName, displayName},
		{"listen", "HOTSPOT_LISTEN", &opts.listen, listen},
		{"probe-dns-protocol", "HOTSPOT_PROBE_DNS_PROTOCOL", &policy.ProbeDNSProtocol, probeDNSProto},
		{"probe-dns-server", "HOTSPOT_PROBE_DNS_SERVER", &policy.ProbeDNSServer, probeDNSServer},
		{"probe-url", "HOTSPOT_PROBE_URL", &policy.ProbeURL, probeURL},
		{"target-password", "HOTSPOT_TARGET_PASSWORD", &policy.TargetPassword, targetPassword},
		{"target-ssid", "HOTSPOT_TARGET_SSID", &policy.TargetSSID, targetSSID},
	}
	for _, entry := range stringSettings {
		if value, ok := getenv(entry.env); ok {
			*entry.dst = value
		}
		if fset.Changed(entry.flag) {
			*entry.dst = entry.src
		}
	}

	durationSettings := []struct {
		flag string
		env  string
		dst  *time.Duration
		src  time.Duration
	}{
		{"command-timeout", "HOTSPOT_COMMAND_TIMEOUT", &opts.commandTimeout, commandTimeout},
		{"probe-timeout", "HOTSPOT_PROBE_TIMEOUT", &policy.ProbeTimeout, probeTimeout},
	}
	for _, entry := range durationSettings {
		if value, ok := getenv(entry.env); ok {
			parsed, err := time.ParseDuration(value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", entry.env, err)
			}
			*entry.dst = parsed
		}
		if fset.Changed(entry.flag) {
			*entry.dst = entry.src
		}
	}

	if value, ok := getenv("HOTSPOT_VERBOSE"); ok && !fset.Changed("verbose") {
		opts.verbose = value == "1" || value == "true"
	}

	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

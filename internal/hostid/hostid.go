// Package hostid derives the stable string key the Manager uses to
// identify a monitored host from an inbound sample.
package hostid

import "github.com/carverauto/fleetwatch/internal/telemetry"

// Derive returns hostname+"_"+ip_address when both are present, falls back
// to whichever of the two is non-empty, and finally to the sample's Name
// field. It returns "" when none of these yield anything, signaling the
// sample should be dropped.
func Derive(info telemetry.MonitorInfo) string {
	var hostname, ip string

	if info.HostInfo != nil {
		hostname = info.HostInfo.Hostname
		ip = info.HostInfo.IPAddress
	}

	switch {
	case hostname != "" && ip != "":
		return hostname + "_" + ip
	case hostname != "":
		return hostname
	case ip != "":
		return ip
	default:
		return info.Name
	}
}

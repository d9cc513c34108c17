package http

import (
	"encoding/json"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

const (
	// DeviceFingerprintHeader carries the client-computed device fingerprint
	DeviceFingerprintHeader = "X-Device-Fingerprint"
	maxIdentityHeaderLen    = 512
)

// IPConfig holds configuration for IP extraction
type IPConfig struct {
	TrustedProxies []string // CIDR ranges of trusted proxies
}

// IdentityHeaders are the optional device identity values a client sends
type IdentityHeaders struct {
	DeviceFingerprint string
	AgentString       string
}

// ExtractIdentityHeaders reads the device fingerprint and user agent, trimmed
// and capped in length. Missing headers yield empty strings.
func ExtractIdentityHeaders(r *http.Request) IdentityHeaders {
	return IdentityHeaders{
		DeviceFingerprint: capHeader(r.Header.Get(DeviceFingerprintHeader)),
		AgentString:       capHeader(r.UserAgent()),
	}
}

func capHeader(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > maxIdentityHeaderLen {
		value = value[:maxIdentityHeaderLen]
	}
	return value
}

// ExtractClientIP returns the client address. X-Forwarded-For and X-Real-IP
// are honoured only when the direct peer is a trusted proxy.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := getRemoteAddr(r)

	if config == nil || !isTrustedProxy(remoteIP, config.TrustedProxies) {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			if addr, err := netip.ParseAddr(strings.TrimSpace(ip)); err == nil {
				return addr.String()
			}
		}
	}

	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.String()
	}

	return remoteIP
}

func getRemoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

func isTrustedProxy(ip string, trustedProxies []string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}

	for _, cidr := range trustedProxies {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			continue
		}
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// WriteJSON writes v as a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

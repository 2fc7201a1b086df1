// Package discovery announces the gateway on the local network over mDNS so
// scanner apps can find it without typing an address.
//
// The Advertiser walks an ordered list of strategies and keeps the first one
// that starts. Two strategies are built in:
//
//   - "zeroconf": github.com/enbility/zeroconf/v3, the primary responder
//   - "bonjour":  github.com/grandcat/zeroconf, the fallback responder
//
// A strategy that fails to start leaves nothing behind and is never stopped.
// When every strategy fails the Advertiser runs degraded: it logs a warning
// and the gateway stays reachable by address.
package discovery

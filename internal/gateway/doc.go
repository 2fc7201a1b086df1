// Package gateway accepts scanner app connections over WebSocket and pairs
// them with the desktop host.
//
// One Gateway value owns the process-lifetime state: the device registry,
// the protocol dispatcher, the settings fan-out, the connection lifecycle
// coordinator and the mDNS advertiser. It is constructed with explicit
// dependencies and has no package-level state.
//
//	gw, err := gateway.New(gateway.Deps{...})
//	if err := gw.Start(ctx); err != nil {
//	    return err
//	}
//	defer gw.Close()
//
// Alongside the WebSocket endpoint the gateway serves a small HTTP API under
// /api/v1 for the host: health, paired devices, kick and network info. The
// device routes require a host bearer token, see package auth.
//
// Thread Safety: all exported methods are safe for concurrent use.
package gateway

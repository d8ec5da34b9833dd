// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/taibuivan/passgate/internal/platform/constants"
	"github.com/taibuivan/passgate/internal/platform/ctxutil"
)

// # Client Address

/*
ClientIP resolves the client address once per request and stores it in the
context, where [RealIP] reads it.

Forwarding headers are honoured only when the socket peer falls inside one of
trusted. X-Forwarded-For is walked from the right and the first hop that is
not itself a trusted proxy wins. X-Real-IP is used when X-Forwarded-For is
absent. With no trusted proxies the peer address is always the client, so a
caller cannot pick its own rate-limit key.
*/
func ClientIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ip := resolveClientIP(request, trusted)
			next.ServeHTTP(writer, request.WithContext(ctxutil.WithClientIP(request.Context(), ip)))
		})
	}
}

// RealIP returns the address resolved by [ClientIP], or the socket peer when
// that middleware did not run.
func RealIP(request *http.Request) string {
	if ip := ctxutil.GetClientIP(request.Context()); ip != "" {
		return ip
	}
	if peer, ok := peerAddr(request); ok {
		return peer.String()
	}
	return request.RemoteAddr
}

func resolveClientIP(request *http.Request, trusted []netip.Prefix) string {
	peer, ok := peerAddr(request)
	if !ok {
		return request.RemoteAddr
	}
	if !isTrusted(peer, trusted) {
		return peer.String()
	}

	if forwarded := request.Header.Get(constants.HeaderXForwardedFor); forwarded != "" {
		client := peer
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			client = hop.Unmap()
			if !isTrusted(client, trusted) {
				break
			}
		}
		return client.String()
	}

	if realIP, err := netip.ParseAddr(strings.TrimSpace(request.Header.Get(constants.HeaderXRealIP))); err == nil {
		return realIP.Unmap().String()
	}
	return peer.String()
}

func peerAddr(request *http.Request) (netip.Addr, bool) {
	if addrPort, err := netip.ParseAddrPort(request.RemoteAddr); err == nil {
		return addrPort.Addr().Unmap(), true
	}
	if addr, err := netip.ParseAddr(request.RemoteAddr); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"net"

	"github.com/gin-gonic/gin"
)

var proxyHeaders = []string{"X-Forwarded-For", "X-Real-IP", "Forwarded"}

// IsLocalhostDirect reports whether the request arrived on a loopback socket
// with no proxy headers. A proxied request never counts as local.
func IsLocalhostDirect(c *gin.Context) bool {
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return false
	}
	if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
		return false
	}
	for _, h := range proxyHeaders {
		if c.GetHeader(h) != "" {
			return false
		}
	}
	return true
}

//go:build !(darwin || linux)

package netpool

import "net"

func alive(net.Conn) bool { return true }

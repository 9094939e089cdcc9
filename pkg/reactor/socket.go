package reactor

import (
	"strconv"

	"golang.org/x/sys/unix"
)

// createListenSocket builds a non-blocking TCP listening socket bound to
// (host, port) with address reuse, and starts it listening with the given
// backlog (spec.md §4.5 "Setup"). host of "0.0.0.0" or "*" binds any
// interface, per spec.md §6.
func createListenSocket(host string, port int, backlog int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, err
	}

	addr, err := resolveBindAddr(host, port)
	if err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

func resolveBindAddr(host string, port int) (unix.Sockaddr, error) {
	addr := &unix.SockaddrInet4{Port: port}
	if host == "" || host == "0.0.0.0" || host == "*" {
		return addr, nil
	}
	ip, err := parseIPv4(host)
	if err != nil {
		return nil, err
	}
	addr.Addr = ip
	return addr, nil
}

func parseIPv4(host string) ([4]byte, error) {
	var out [4]byte
	var parts [4]int
	idx := 0
	cur := 0
	digits := 0
	for i := 0; i <= len(host); i++ {
		if i == len(host) || host[i] == '.' {
			if digits == 0 || idx > 3 {
				return out, unix.EINVAL
			}
			parts[idx] = cur
			idx++
			cur = 0
			digits = 0
			continue
		}
		c := host[i]
		if c < '0' || c > '9' {
			return out, unix.EINVAL
		}
		cur = cur*10 + int(c-'0')
		digits++
	}
	if idx != 4 {
		return out, unix.EINVAL
	}
	for i, p := range parts {
		if p < 0 || p > 255 {
			return out, unix.EINVAL
		}
		out[i] = byte(p)
	}
	return out, nil
}

func itoa(n int) string { return strconv.Itoa(n) }

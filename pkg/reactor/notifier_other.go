//go:build !linux && !darwin

package reactor

import (
	"sync"

	"golang.org/x/sys/unix"
)

// pollNotifier is the portable fallback for platforms without epoll or
// kqueue: a poll(2)-based notifier. It is level-triggered rather than
// edge-triggered: a descriptor that still has unread data is reported
// again by every Wait call until it has been drained.
type pollNotifier struct {
	mu  sync.Mutex
	fds []int
}

func newNotifier() (notifier, error) {
	return &pollNotifier{}, nil
}

func (n *pollNotifier) AddRead(fd int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fds = append(n.fds, fd)
	return nil
}

func (n *pollNotifier) Remove(fd int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, f := range n.fds {
		if f == fd {
			n.fds = append(n.fds[:i], n.fds[i+1:]...)
			break
		}
	}
	return nil
}

func (n *pollNotifier) Wait(timeoutMillis int) ([]event, error) {
	n.mu.Lock()
	fds := make([]unix.PollFd, len(n.fds))
	for i, fd := range n.fds {
		fds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}
	n.mu.Unlock()

	if len(fds) == 0 {
		return nil, nil
	}

	_, err := unix.Poll(fds, timeoutMillis)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}

	var events []event
	for _, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}
		events = append(events, event{
			FD:       int(pfd.Fd),
			Error:    pfd.Revents&(unix.POLLERR|unix.POLLHUP) != 0,
			Readable: pfd.Revents&unix.POLLIN != 0,
		})
	}
	return events, nil
}

func (n *pollNotifier) Close() error {
	return nil
}

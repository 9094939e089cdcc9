//go:build linux

package reactor

import "golang.org/x/sys/unix"

// epollNotifier is the Linux readiness notifier (spec.md §4.5), grounded
// on original_source/src/core/http_server.cpp's setup_epoll/main_loop:
// epoll_create1(EPOLL_CLOEXEC), sockets registered with EPOLLIN|EPOLLET.
type epollNotifier struct {
	epfd int
}

func newNotifier() (notifier, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollNotifier{epfd: epfd}, nil
}

func (n *epollNotifier) AddRead(fd int) error {
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLET,
		Fd:     int32(fd),
	}
	return unix.EpollCtl(n.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (n *epollNotifier) Remove(fd int) error {
	return unix.EpollCtl(n.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait blocks for up to timeoutMillis (spec.md §4.5: "Block in the
// notifier for up to one second").
func (n *epollNotifier) Wait(timeoutMillis int) ([]event, error) {
	raw := make([]unix.EpollEvent, 1000) // MAX_EVENTS, matching the original
	count, err := unix.EpollWait(n.epfd, raw, timeoutMillis)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}

	events := make([]event, 0, count)
	for i := 0; i < count; i++ {
		e := raw[i]
		events = append(events, event{
			FD:       int(e.Fd),
			Error:    e.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
			Readable: e.Events&unix.EPOLLIN != 0,
		})
	}
	return events, nil
}

func (n *epollNotifier) Close() error {
	return unix.Close(n.epfd)
}

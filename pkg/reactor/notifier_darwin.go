//go:build darwin

package reactor

import "golang.org/x/sys/unix"

// kqueueNotifier is the BSD/Darwin readiness notifier, the kqueue
// counterpart to the Linux epoll path (notifier_linux.go). kqueue has no
// literal edge/level-trigger flag equivalent to EPOLLET, but EV_CLEAR
// gives the same "fires once per transition" semantics the glossary
// defines for Edge-triggered.
type kqueueNotifier struct {
	kq int
}

func newNotifier() (notifier, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueueNotifier{kq: kq}, nil
}

func (n *kqueueNotifier) AddRead(fd int) error {
	changes := []unix.Kevent_t{{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
	}}
	_, err := unix.Kevent(n.kq, changes, nil, nil)
	return err
}

func (n *kqueueNotifier) Remove(fd int) error {
	changes := []unix.Kevent_t{{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_DELETE,
	}}
	_, err := unix.Kevent(n.kq, changes, nil, nil)
	return err
}

func (n *kqueueNotifier) Wait(timeoutMillis int) ([]event, error) {
	ts := unix.NsecToTimespec(int64(timeoutMillis) * int64(1e6))
	raw := make([]unix.Kevent_t, 1000)
	count, err := unix.Kevent(n.kq, nil, raw, &ts)
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
			FD:       int(e.Ident),
			Error:    e.Flags&unix.EV_ERROR != 0 || e.Flags&unix.EV_EOF != 0,
			Readable: true,
		})
	}
	return events, nil
}

func (n *kqueueNotifier) Close() error {
	return unix.Close(n.kq)
}

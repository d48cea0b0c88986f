package stream

import (
	"net"
	"syscall"

	"github.com/mdlayher/vsock"
	"github.com/vmtools/vsh/lib/reactor"
	"golang.org/x/sys/unix"
)

// syscallConn is a connection whose descriptor can be duplicated
type syscallConn interface {
	syscall.Conn
	Close() error
}

// FromUnixConn adopts an established unix connection. The descriptor is
// duplicated, conn is closed, and the duplicate is owned by the returned stream.
func FromUnixConn(conn *net.UnixConn, r reactor.IRegistrar) (*Stream, error) {
	return adopt(conn, KindUnix, r)
}

// FromVsockConn adopts an established VSOCK connection like FromUnixConn
func FromVsockConn(conn *vsock.Conn, r reactor.IRegistrar) (*Stream, error) {
	return adopt(conn, KindVsock, r)
}

func adopt(conn syscallConn, kind Kind, r reactor.IRegistrar) (*Stream, error) {
	// conn is closed on every path, only the duplicate survives
	defer func() { _ = conn.Close() }()

	raw, err := conn.SyscallConn()
	if err != nil {
		return nil, &SetupError{Kind: kind, Err: err}
	}

	fd := -1
	var dupErr error
	if err := raw.Control(func(sysfd uintptr) {
		fd, dupErr = unix.FcntlInt(sysfd, unix.F_DUPFD_CLOEXEC, 0)
	}); err != nil {
		return nil, &SetupError{Kind: kind, Err: err}
	}
	if dupErr != nil {
		return nil, &SetupError{Kind: kind, Err: dupErr}
	}

	return New(fd, kind, r)
}

// Pair creates two connected unix streams registered with r
func Pair(r reactor.IRegistrar) (*Stream, *Stream, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, &SetupError{Kind: KindUnix, Err: err}
	}

	a, err := New(fds[0], KindUnix, r)
	if err != nil {
		_ = unix.Close(fds[1])
		return nil, nil, err
	}
	b, err := New(fds[1], KindUnix, r)
	if err != nil {
		_ = a.Close()
		return nil, nil, err
	}
	return a, b, nil
}

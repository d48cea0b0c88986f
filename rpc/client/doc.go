// Package client implements vsh, the host side of a vsh connection.
//
// A Client dials the guest through a transport (unix or vsock), adopts the
// connection into a non-blocking stream and frames it with a synchronous
// wire.Wire. Every frame operation takes a context; the configured timeout
// bounds each of them.
//
// Session Flow:
//
//  1. Connect dials with exponential backoff for the configured number of attempts
//  2. WaitReady receives the guest's greeting and requires a READY status
//  3. Send and Receive exchange single HostMessage and GuestMessage frames
//  4. Close sends EXITED, waits for the guest's EXITED echo and releases the descriptor
//
// Usage Example:
//
//	r, _ := reactor.NewReactor()
//	go r.Run(ctx)
//
//	c := client.NewClient(common.ClientConfig{
//	  Transport:     common.TransportConfig{Kind: common.TransportVsock, CID: 3, Port: 5000},
//	  TimeoutSecond: 5,
//	  RetryCount:    3,
//	}, vsock.NewVsockClientTransport(r))
//
//	if err := c.Connect(ctx); err != nil {
//	  return err
//	}
//	defer c.Close()
//
//	status, err := c.WaitReady(ctx)
//
// Thread Safety:
//
//	A Client is owned by one goroutine. The framer it wraps is not safe for
//	concurrent use and a failed transfer leaves it broken.
package client

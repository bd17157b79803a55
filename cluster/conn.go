package cluster

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/couchkit/couchkit"
	"github.com/couchkit/couchkit/memd"
)

// pendingOp tracks a submitted request until its terminal frame arrives.
// Exactly one of op and view is set.
type pendingOp struct {
	op    *couchkit.Op
	view  *couchkit.ViewQuery
	timer *time.Timer
}

// conn is a single pipelined connection to a node. Requests are written
// under writeMu and matched to frames by opaque token in the reader
// goroutine, so many requests can be in flight at once.
type conn struct {
	nc      net.Conn
	br      *bufio.Reader
	bw      *bufio.Writer
	writeMu sync.Mutex

	pending *xsync.MapOf[uint64, *pendingOp]
	dead    atomic.Bool

	transport *Transport
}

func (t *Transport) dial(ctx context.Context, addr string) (*conn, error) {
	dialer := t.cfg.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}

	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	if t.cfg.CertPath != "" {
		tlsConf, err := tlsConfigFromCert(t.cfg.CertPath, addr)
		if err != nil {
			_ = nc.Close()
			return nil, err
		}
		nc = tls.Client(nc, tlsConf)
	}

	c := &conn{
		nc:        nc,
		br:        bufio.NewReader(nc),
		bw:        bufio.NewWriter(nc),
		pending:   xsync.NewMapOf[uint64, *pendingOp](),
		transport: t,
	}
	go c.readLoop()
	return c, nil
}

func tlsConfigFromCert(certPath, addr string) (*tls.Config, error) {
	pem, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("read cert %s: %w", certPath, err)
	}
	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("cert %s: no certificates found", certPath)
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	return &tls.Config{RootCAs: roots, ServerName: host}, nil
}

// send arms the per-operation timeout, registers the pending entry, and
// writes the request. The timer is assigned before the entry becomes
// reachable: once the request is on the wire, the reader goroutine may
// dispatch the response and read pend.timer at any moment.
func (c *conn) send(req *memd.Request, pend *pendingOp, timeout time.Duration) error {
	opaque := req.Opaque
	if timeout > 0 {
		pend.timer = time.AfterFunc(timeout, func() { c.expire(opaque) })
	}
	c.pending.Store(opaque, pend)

	c.writeMu.Lock()
	err := memd.WriteRequest(c.bw, req)
	c.writeMu.Unlock()

	if err != nil {
		// Whoever removes the entry owns its completion. If the timer
		// or a teardown got there first, a completion is already on
		// its way; report success so the caller does not double-count.
		if _, ok := c.pending.LoadAndDelete(opaque); !ok {
			return nil
		}
		stopTimer(pend)
		return err
	}
	return nil
}

// expire fires when an operation's timer elapses before its terminal
// frame. Whoever wins the LoadAndDelete race delivers the completion.
func (c *conn) expire(opaque uint64) {
	pend, ok := c.pending.LoadAndDelete(opaque)
	if !ok {
		return
	}
	c.transport.enqueue(func() {
		c.transport.finish(pend, couchkit.StatusOperationTimeout, nil, 0, 0)
	})
}

func (c *conn) readLoop() {
	for {
		frame, err := memd.ReadFrame(c.br)
		if err != nil {
			c.fail(err)
			return
		}
		c.dispatch(frame)
	}
}

func (c *conn) dispatch(frame *memd.Frame) {
	switch frame.Kind {
	case memd.FrameResponse:
		resp := frame.Response
		pend, ok := c.pending.LoadAndDelete(resp.Opaque)
		if !ok {
			return // already timed out
		}
		stopTimer(pend)
		c.transport.enqueue(func() {
			c.transport.finish(pend, statusFromWire(resp.Status), resp.Data, resp.Cas, resp.Flags)
		})

	case memd.FrameRow:
		row := frame.Row
		pend, ok := c.pending.Load(row.Opaque)
		if !ok || pend.view == nil {
			return
		}
		c.transport.enqueue(func() {
			if pend.view.OnRow != nil {
				pend.view.OnRow(row.Key, row.Value, row.DocID, row.Geometry, row.Doc)
			}
		})

	case memd.FrameFinal:
		fin := frame.Final
		pend, ok := c.pending.LoadAndDelete(fin.Opaque)
		if !ok {
			return
		}
		stopTimer(pend)
		c.transport.enqueue(func() {
			c.transport.finishView(pend, statusFromWire(fin.Status), fin.Meta, fin.HTTPStatus)
		})
	}
}

// fail marks the connection dead and flushes every pending entry with a
// network error. Safe to call from both the reader goroutine and the
// pool destructor.
func (c *conn) fail(err error) {
	if !c.dead.CompareAndSwap(false, true) {
		return
	}
	_ = c.nc.Close()

	if !errors.Is(err, net.ErrClosed) {
		c.transport.logger().Printf("couchkit/cluster: connection to %s lost: %v", c.nc.RemoteAddr(), err)
	}

	c.pending.Range(func(opaque uint64, _ *pendingOp) bool {
		pend, ok := c.pending.LoadAndDelete(opaque)
		if !ok {
			return true
		}
		stopTimer(pend)
		c.transport.enqueue(func() {
			c.transport.finish(pend, couchkit.StatusNetworkError, nil, 0, 0)
		})
		return true
	})
}

// close is the pool destructor path. Closing the socket unblocks the
// reader goroutine, which then flushes pendings through fail.
func (c *conn) close() {
	_ = c.nc.Close()
}

func stopTimer(pend *pendingOp) {
	if pend.timer != nil {
		pend.timer.Stop()
	}
}

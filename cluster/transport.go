// Package cluster provides the networked Transport used by couchkit.Bucket.
//
// Each configured node gets a pool of pipelined connections and an
// optional circuit breaker. Keys are routed to nodes by consistent
// hashing; view queries are spread round-robin. Responses are matched
// to requests by opaque token and delivered as completion closures that
// run only inside Wait and WaitOne, on the caller's goroutine.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/couchkit/couchkit"
	"github.com/couchkit/couchkit/memd"
)

const (
	// completionQueueDepth bounds how many undelivered completions and
	// view rows can queue up before reader goroutines block. This is
	// the backpressure limit for row streaming.
	completionQueueDepth = 256

	defaultMaxConnsPerNode = 4
	defaultConnectTimeout  = 5 * time.Second
)

var (
	ErrNoNodes = errors.New("cluster: no nodes configured")
	ErrClosed  = errors.New("cluster: transport closed")
)

// Config holds configuration for a cluster transport.
type Config struct {
	// Nodes is the list of "host:port" addresses. Required.
	Nodes []string

	// MaxConnsPerNode caps the connection pool per node. Defaults to 4.
	MaxConnsPerNode int32

	// OperationTimeout bounds each submitted operation. Zero disables
	// the per-operation timer.
	OperationTimeout time.Duration

	// ConnectTimeout bounds dialing and pool acquisition.
	ConnectTimeout time.Duration

	// CertPath enables TLS using the PEM bundle at this path.
	CertPath string

	// Dialer is used to create connections. If nil, a default is used.
	Dialer *net.Dialer

	// Logger receives connection-loss and teardown messages.
	Logger couchkit.Logger

	// SelectNode picks the node for a key. Defaults to DefaultSelectNode.
	SelectNode SelectNodeFunc

	// NewBreaker creates a circuit breaker per node address.
	// If nil, no circuit breaker is used. See NewBreakerConfig.
	NewBreaker func(addr string) *gobreaker.CircuitBreaker[struct{}]
}

// Transport is the networked implementation of couchkit.Transport.
type Transport struct {
	cfg        Config
	nodes      []*node
	selectNode SelectNodeFunc

	completions chan func()
	outstanding atomic.Int64
	opaqueSeq   atomic.Uint64
	viewSeq     atomic.Uint64
	closed      atomic.Bool
}

var _ couchkit.Transport = (*Transport)(nil)

// New connects a transport to the given cluster. Connections are
// established lazily, on first use of each node.
func New(cfg Config) (*Transport, error) {
	if len(cfg.Nodes) == 0 {
		return nil, ErrNoNodes
	}
	if cfg.MaxConnsPerNode <= 0 {
		cfg.MaxConnsPerNode = defaultMaxConnsPerNode
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}

	selectNode := cfg.SelectNode
	if selectNode == nil {
		selectNode = DefaultSelectNode
	}

	t := &Transport{
		cfg:         cfg,
		selectNode:  selectNode,
		completions: make(chan func(), completionQueueDepth),
	}

	for _, addr := range cfg.Nodes {
		n, err := t.newNode(addr)
		if err != nil {
			_ = t.Close()
			return nil, err
		}
		t.nodes = append(t.nodes, n)
	}
	return t, nil
}

// SubmitOperation routes the operation to its node and writes it out.
// The completion fires later, from Wait or WaitOne.
func (t *Transport) SubmitOperation(op *couchkit.Op) error {
	if t.closed.Load() {
		return ErrClosed
	}

	cmd := commandForKind(op.Kind)
	if cmd == "" {
		return fmt.Errorf("unknown operation kind %d", op.Kind)
	}
	if err := memd.ValidateKey(op.Key); err != nil {
		return err
	}

	req := &memd.Request{
		Command:     cmd,
		Key:         op.Key,
		Opaque:      t.opaqueSeq.Add(1),
		Cas:         op.Cas,
		Expiry:      op.Expiry,
		Flags:       op.Flags,
		PersistTo:   op.PersistTo,
		ReplicateTo: op.ReplicateTo,
		Data:        op.Value,
	}

	n := t.nodes[t.selectNode(op.Key, len(t.nodes))]
	return t.submit(n, req, &pendingOp{op: op})
}

// SubmitViewQuery issues the HTTP-style view request against the next
// node in round-robin order. Row frames invoke OnRow as they arrive;
// the final frame invokes OnFinal.
func (t *Transport) SubmitViewQuery(q *couchkit.ViewQuery) error {
	if t.closed.Load() {
		return ErrClosed
	}

	req := memd.ViewRequest(t.opaqueSeq.Add(1), q.Method, q.Path, q.Body)
	n := t.nodes[int(t.viewSeq.Add(1))%len(t.nodes)]
	return t.submit(n, req, &pendingOp{view: q})
}

func (t *Transport) submit(n *node, req *memd.Request, pend *pendingOp) error {
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.ConnectTimeout)
	defer cancel()

	// Count before sending: the reader goroutine may deliver the
	// response before send even returns.
	t.outstanding.Add(1)
	if err := n.send(ctx, req, pend, t.cfg.OperationTimeout); err != nil {
		t.outstanding.Add(-1)
		return fmt.Errorf("submit to %s: %w", n.addr, err)
	}
	return nil
}

// Wait runs completions until no operations remain outstanding.
func (t *Transport) Wait() {
	for t.outstanding.Load() > 0 {
		fn := <-t.completions
		fn()
	}
}

// WaitOne runs a single queued completion or view row delivery,
// blocking for one if operations are outstanding. It returns false
// when nothing is pending.
func (t *Transport) WaitOne() bool {
	if t.outstanding.Load() == 0 {
		select {
		case fn := <-t.completions:
			fn()
			return true
		default:
			return false
		}
	}
	fn := <-t.completions
	fn()
	return true
}

// Close tears down all pools. In-flight operations complete with a
// network error and can still be collected with Wait.
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, n := range t.nodes {
		n.pool.Close()
	}
	return nil
}

func (t *Transport) enqueue(fn func()) {
	t.completions <- fn
}

// finish delivers the terminal completion for a pending entry and
// releases its outstanding slot. A view that dies before its final
// frame lands here too.
func (t *Transport) finish(pend *pendingOp, status couchkit.Status, value []byte, cas uint64, flags uint32) {
	defer t.outstanding.Add(-1)
	if pend.op != nil {
		if pend.op.Complete != nil {
			pend.op.Complete(status, value, cas, flags)
		}
		return
	}
	if pend.view.OnFinal != nil {
		pend.view.OnFinal(status, nil, 0)
	}
}

func (t *Transport) finishView(pend *pendingOp, status couchkit.Status, meta []byte, httpStatus int) {
	defer t.outstanding.Add(-1)
	if pend.view != nil && pend.view.OnFinal != nil {
		pend.view.OnFinal(status, meta, httpStatus)
	}
}

func (t *Transport) logger() couchkit.Logger {
	if t.cfg.Logger != nil {
		return t.cfg.Logger
	}
	return log.Default()
}

func commandForKind(kind couchkit.OpKind) memd.CmdType {
	switch kind {
	case couchkit.OpGet:
		return memd.CmdGet
	case couchkit.OpGetAndTouch:
		return memd.CmdGetAndTouch
	case couchkit.OpInsert:
		return memd.CmdInsert
	case couchkit.OpReplace:
		return memd.CmdReplace
	case couchkit.OpUpsert:
		return memd.CmdUpsert
	case couchkit.OpRemove:
		return memd.CmdRemove
	case couchkit.OpTouch:
		return memd.CmdTouch
	}
	return ""
}

func statusFromWire(s memd.StatusType) couchkit.Status {
	switch s {
	case memd.StatusOK:
		return couchkit.StatusSuccess
	case memd.StatusNotFound:
		return couchkit.StatusKeyNotFound
	case memd.StatusExists:
		return couchkit.StatusKeyExists
	case memd.StatusCasMismatch:
		return couchkit.StatusCasMismatch
	case memd.StatusDurabilityTimeout:
		return couchkit.StatusDurabilityTimeout
	case memd.StatusTimeout:
		return couchkit.StatusOperationTimeout
	}
	return couchkit.StatusServerError
}

package transport

// pendingOp is one operation issued while the bus was unreachable. Ops are
// immutable once queued and consumed exactly once on drain.
type pendingOp struct {
	kind         opKind
	direct       DirectMessage
	group        GroupMessage
	departmentID int64
	handler      MessageHandler
}

type opKind int

const (
	opDirect opKind = iota
	opGroup
	opSubscribe
)

// pendingQueue preserves submission order across all op kinds in a single
// FIFO, so a reconnect replays exactly what the caller issued. Only the
// Client mutates it, under the Client's lock.
type pendingQueue struct {
	ops []pendingOp
}

func (q *pendingQueue) pushDirect(m DirectMessage) {
	q.ops = append(q.ops, pendingOp{kind: opDirect, direct: m})
}

func (q *pendingQueue) pushGroup(m GroupMessage) {
	q.ops = append(q.ops, pendingOp{kind: opGroup, group: m})
}

// pushSubscribe records a subscription request. At most one pending entry
// exists per department: a later request displaces the earlier one.
func (q *pendingQueue) pushSubscribe(departmentID int64, handler MessageHandler) {
	q.removeSubscribe(departmentID)
	q.ops = append(q.ops, pendingOp{kind: opSubscribe, departmentID: departmentID, handler: handler})
}

func (q *pendingQueue) removeSubscribe(departmentID int64) {
	kept := q.ops[:0]
	for _, op := range q.ops {
		if op.kind == opSubscribe && op.departmentID == departmentID {
			continue
		}
		kept = append(kept, op)
	}
	q.ops = kept
}

// drain returns all queued ops in FIFO order and empties the queue.
func (q *pendingQueue) drain() []pendingOp {
	ops := q.ops
	q.ops = nil
	return ops
}

func (q *pendingQueue) clear() {
	q.ops = nil
}

func (q *pendingQueue) len() int {
	return len(q.ops)
}

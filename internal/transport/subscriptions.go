package transport

import "sort"

// subscription is one live subscription on the current connection.
type subscription struct {
	id           string
	departmentID int64 // 0 for the per-user inbox
	handler      MessageHandler
}

// subscriptionTable tracks live subscriptions on the current connection,
// indexed both by STOMP subscription id (inbound routing) and by department
// (dedup and teardown). Cleared whenever the connection goes away; intent is
// preserved separately in the pending queue.
type subscriptionTable struct {
	byID   map[string]*subscription
	byDept map[int64]*subscription
}

func newSubscriptionTable() *subscriptionTable {
	return &subscriptionTable{
		byID:   make(map[string]*subscription),
		byDept: make(map[int64]*subscription),
	}
}

func (t *subscriptionTable) add(sub *subscription) {
	t.byID[sub.id] = sub
	if sub.departmentID != 0 {
		t.byDept[sub.departmentID] = sub
	}
}

func (t *subscriptionTable) handlerFor(id string) (MessageHandler, bool) {
	sub, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return sub.handler, true
}

func (t *subscriptionTable) remove(departmentID int64) (*subscription, bool) {
	sub, ok := t.byDept[departmentID]
	if !ok {
		return nil, false
	}
	delete(t.byDept, departmentID)
	delete(t.byID, sub.id)
	return sub, true
}

// groups returns the live group subscriptions ordered by department id, used
// to carry intent over into the pending queue when a connection drops.
func (t *subscriptionTable) groups() []*subscription {
	subs := make([]*subscription, 0, len(t.byDept))
	for _, sub := range t.byDept {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].departmentID < subs[j].departmentID })
	return subs
}

func (t *subscriptionTable) clear() {
	t.byID = make(map[string]*subscription)
	t.byDept = make(map[int64]*subscription)
}

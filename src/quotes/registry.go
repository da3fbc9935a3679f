package quotes

import (
	"sort"

	"quote-broadcaster/src/interfaces"
)

// Subscription is the registry record of one connection.
type Subscription struct {
	Conn    interfaces.ISubscriber
	Symbol  string
	Cadence Cadence
	seq     uint64 // registration order, keeps groups deterministic
}

// -----------------------------------------------------------------------------

// SubscriptionRegistry indexes live connections by symbol and cadence. Each
// connection sits in exactly one bucket. Owned by the scheduler goroutine.
type SubscriptionRegistry struct {
	byID    map[string]*Subscription
	buckets map[string]map[Cadence]map[string]*Subscription
	nextSeq uint64
}

func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{
		byID:    make(map[string]*Subscription),
		buckets: make(map[string]map[Cadence]map[string]*Subscription),
	}
}

// -----------------------------------------------------------------------------

// Add registers conn for symbol at cadence. Re-adding an ID replaces its record.
func (r *SubscriptionRegistry) Add(conn interfaces.ISubscriber, symbol string, cadence Cadence) {
	r.Remove(conn.ID())

	r.nextSeq++
	sub := &Subscription{Conn: conn, Symbol: symbol, Cadence: cadence, seq: r.nextSeq}
	r.byID[conn.ID()] = sub
	r.insert(sub)
}

// -----------------------------------------------------------------------------

// Remove drops the connection from every index. Unknown IDs are ignored.
func (r *SubscriptionRegistry) Remove(id string) bool {
	sub, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	r.detach(sub)
	return true
}

// -----------------------------------------------------------------------------

// SetCadence moves the connection to another bucket. Unknown IDs are ignored.
func (r *SubscriptionRegistry) SetCadence(id string, cadence Cadence) bool {
	sub, ok := r.byID[id]
	if !ok {
		return false
	}
	if sub.Cadence == cadence {
		return true
	}
	r.detach(sub)
	sub.Cadence = cadence
	r.insert(sub)
	return true
}

// -----------------------------------------------------------------------------

// Get returns a copy of the connection's record.
func (r *SubscriptionRegistry) Get(id string) (Subscription, bool) {
	sub, ok := r.byID[id]
	if !ok {
		return Subscription{}, false
	}
	return *sub, true
}

// -----------------------------------------------------------------------------

// GroupByInstrumentCadence returns the duration groups of symbol. The result
// is a fresh copy ordered by registration, safe to use while the registry changes.
func (r *SubscriptionRegistry) GroupByInstrumentCadence(symbol string) map[Cadence][]interfaces.ISubscriber {
	groups := make(map[Cadence][]interfaces.ISubscriber)
	for cadence, bucket := range r.buckets[symbol] {
		if len(bucket) == 0 {
			continue
		}
		groups[cadence] = ordered(bucket)
	}
	return groups
}

// Group returns the connections of a single pair.
func (r *SubscriptionRegistry) Group(key PairKey) []interfaces.ISubscriber {
	return ordered(r.buckets[key.Symbol][key.Cadence])
}

// -----------------------------------------------------------------------------

// Instruments lists the symbols with at least one connection, sorted.
func (r *SubscriptionRegistry) Instruments() []string {
	out := make([]string, 0, len(r.buckets))
	for symbol := range r.buckets {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// Count is the number of registered connections.
func (r *SubscriptionRegistry) Count() int {
	return len(r.byID)
}

// -----------------------------------------------------------------------------

func (r *SubscriptionRegistry) insert(sub *Subscription) {
	cadences, ok := r.buckets[sub.Symbol]
	if !ok {
		cadences = make(map[Cadence]map[string]*Subscription)
		r.buckets[sub.Symbol] = cadences
	}
	bucket, ok := cadences[sub.Cadence]
	if !ok {
		bucket = make(map[string]*Subscription)
		cadences[sub.Cadence] = bucket
	}
	bucket[sub.Conn.ID()] = sub
}

func (r *SubscriptionRegistry) detach(sub *Subscription) {
	cadences := r.buckets[sub.Symbol]
	bucket := cadences[sub.Cadence]
	delete(bucket, sub.Conn.ID())
	if len(bucket) == 0 {
		delete(cadences, sub.Cadence)
	}
	if len(cadences) == 0 {
		delete(r.buckets, sub.Symbol)
	}
}

func ordered(bucket map[string]*Subscription) []interfaces.ISubscriber {
	if len(bucket) == 0 {
		return nil
	}
	subs := make([]*Subscription, 0, len(bucket))
	for _, s := range bucket {
		subs = append(subs, s)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].seq < subs[j].seq })

	out := make([]interfaces.ISubscriber, len(subs))
	for i, s := range subs {
		out[i] = s.Conn
	}
	return out
}

// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kv

import (
	"container/list"
	"sync"
)

// CachePolicy names one of the read-cache eviction strategies L1Cache can
// run (spec §4.9).
type CachePolicy int

const (
	PolicyLRU CachePolicy = iota
	PolicyLFU
	PolicyARC
)

// internal aliases kept short for the switch statements below.
const (
	policyLRU = PolicyLRU
	policyLFU = PolicyLFU
	policyARC = PolicyARC
)

// switchMargin is the minimum hit-rate advantage a shadow policy must hold
// over the active one in each of the last two completed windows before
// L1Cache switches to it (§4.9a's two-window ghost-simulation policy-switching
// decision).
const switchMargin = 0.05

// cacheWindow is the number of accesses a ghost simulation window covers
// before its hit rate is scored and the window resets.
const cacheWindow = 1000

// L1Cache is an adaptive read-through cache in front of Index. It runs one
// active policy (LRU, LFU, or ARC) plus two lightweight shadow simulations
// that store no payload bytes, and switches the active policy to LRU or LFU
// when the matching shadow is winning. Both shadows run the same plain
// LRU-membership simulation (ghostSim), so the LFU shadow's hit rate is an
// LRU hit rate rather than a model of LFU (spec §4.9: "The cache is advisory... policy may adapt to
// workload").
type L1Cache struct {
	mu       sync.Mutex
	capacity int
	active   CachePolicy

	lru *lruPolicy
	lfu *lfuPolicy
	arc *arcPolicy

	shadowLRU *ghostSim
	shadowLFU *ghostSim
	activeWin windowTracker
}

// NewL1Cache builds an L1Cache holding up to capacity entries under the
// given starting policy.
func NewL1Cache(capacity int, start CachePolicy) *L1Cache {
	if capacity <= 0 {
		capacity = 1
	}
	return &L1Cache{
		capacity:  capacity,
		active:    start,
		lru:       newLRUPolicy(capacity),
		lfu:       newLFUPolicy(capacity),
		arc:       newARCPolicy(capacity),
		shadowLRU: newGhostSim(capacity),
		shadowLFU: newGhostSim(capacity),
	}
}

func (c *L1Cache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lruHit := c.shadowLRU.access(key)
	lfuHit := c.shadowLFU.access(key)

	var data []byte
	var hit bool
	switch c.active {
	case policyLFU:
		data, hit = c.lfu.get(key)
	case policyARC:
		data, hit = c.arc.get(key)
	default:
		data, hit = c.lru.get(key)
	}
	_, _ = lruHit, lfuHit
	c.activeWin.record(hit)
	c.maybeSwitch()
	return data, hit
}

func (c *L1Cache) put(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.active {
	case policyLFU:
		c.lfu.put(key, data)
	case policyARC:
		c.arc.put(key, data)
	default:
		c.lru.put(key, data)
	}
}

func (c *L1Cache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.remove(key)
	c.lfu.remove(key)
	c.arc.remove(key)
}

func (c *L1Cache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru = newLRUPolicy(c.capacity)
	c.lfu = newLFUPolicy(c.capacity)
	c.arc = newARCPolicy(c.capacity)
	c.shadowLRU = newGhostSim(c.capacity)
	c.shadowLFU = newGhostSim(c.capacity)
	c.activeWin = windowTracker{}
}

// maybeSwitch implements §4.9a: a shadow policy must beat the
// active policy's hit rate by at least switchMargin in both of the last two
// completed windows before L1Cache switches to it. Called with mu held.
func (c *L1Cache) maybeSwitch() {
	a1, a2, activeReady := c.activeWin.lastTwo()
	if !activeReady {
		return
	}
	if c.active != policyLRU {
		if l1, l2, ok := c.shadowLRU.lastTwo(); ok && l1-a1 >= switchMargin && l2-a2 >= switchMargin {
			c.active = policyLRU
			return
		}
	}
	if c.active != policyLFU {
		if l1, l2, ok := c.shadowLFU.lastTwo(); ok && l1-a1 >= switchMargin && l2-a2 >= switchMargin {
			c.active = policyLFU
		}
	}
}

// --- LRU policy -------------------------------------------------------

type lruEntry struct {
	key  string
	data []byte
	elem *list.Element
}

// lruPolicy is a classic intrusive doubly-linked-list LRU (grounded on the
// Go LRU reference in the retrieval pack), most-recently-used at the front.
type lruPolicy struct {
	capacity     int
	ll           *list.List
	items        map[string]*lruEntry
	hits, misses uint64
}

func newLRUPolicy(capacity int) *lruPolicy {
	return &lruPolicy{capacity: capacity, ll: list.New(), items: make(map[string]*lruEntry)}
}

func (p *lruPolicy) get(key string) ([]byte, bool) {
	e, ok := p.items[key]
	if !ok {
		p.misses++
		return nil, false
	}
	p.ll.MoveToFront(e.elem)
	p.hits++
	return e.data, true
}

func (p *lruPolicy) put(key string, data []byte) {
	if e, ok := p.items[key]; ok {
		e.data = data
		p.ll.MoveToFront(e.elem)
		return
	}
	e := &lruEntry{key: key, data: data}
	e.elem = p.ll.PushFront(e)
	p.items[key] = e
	if len(p.items) > p.capacity {
		back := p.ll.Back()
		if back != nil {
			p.ll.Remove(back)
			delete(p.items, back.Value.(*lruEntry).key)
		}
	}
}

func (p *lruPolicy) remove(key string) {
	if e, ok := p.items[key]; ok {
		p.ll.Remove(e.elem)
		delete(p.items, key)
	}
}

func (p *lruPolicy) hitRate() float64 {
	if p.hits+p.misses == 0 {
		return 0
	}
	return float64(p.hits) / float64(p.hits+p.misses)
}

// --- LFU policy ---------------------------------------------------------

type lfuEntry struct {
	key   string
	data  []byte
	freq  int
	elem  *list.Element // element within its frequency bucket
}

// lfuPolicy is an O(1) LFU: each frequency has a bucket list, and minFreq
// tracks the lowest non-empty bucket so eviction never scans.
type lfuPolicy struct {
	capacity     int
	items        map[string]*lfuEntry
	buckets      map[int]*list.List
	minFreq      int
	hits, misses uint64
}

func newLFUPolicy(capacity int) *lfuPolicy {
	return &lfuPolicy{capacity: capacity, items: make(map[string]*lfuEntry), buckets: make(map[int]*list.List)}
}

func (p *lfuPolicy) bucket(freq int) *list.List {
	b, ok := p.buckets[freq]
	if !ok {
		b = list.New()
		p.buckets[freq] = b
	}
	return b
}

func (p *lfuPolicy) bump(e *lfuEntry) {
	p.bucket(e.freq).Remove(e.elem)
	if e.freq == p.minFreq && p.bucket(e.freq).Len() == 0 {
		p.minFreq++
	}
	e.freq++
	e.elem = p.bucket(e.freq).PushFront(e)
}

func (p *lfuPolicy) get(key string) ([]byte, bool) {
	e, ok := p.items[key]
	if !ok {
		p.misses++
		return nil, false
	}
	p.bump(e)
	p.hits++
	return e.data, true
}

func (p *lfuPolicy) put(key string, data []byte) {
	if e, ok := p.items[key]; ok {
		e.data = data
		p.bump(e)
		return
	}
	if len(p.items) >= p.capacity {
		victims := p.bucket(p.minFreq)
		if back := victims.Back(); back != nil {
			victims.Remove(back)
			delete(p.items, back.Value.(*lfuEntry).key)
		}
	}
	e := &lfuEntry{key: key, data: data, freq: 1}
	e.elem = p.bucket(1).PushFront(e)
	p.items[key] = e
	p.minFreq = 1
}

func (p *lfuPolicy) remove(key string) {
	if e, ok := p.items[key]; ok {
		p.bucket(e.freq).Remove(e.elem)
		delete(p.items, key)
	}
}

func (p *lfuPolicy) hitRate() float64 {
	if p.hits+p.misses == 0 {
		return 0
	}
	return float64(p.hits) / float64(p.hits+p.misses)
}

// --- ARC policy -----------------------------------------------------

// arcPolicy is Adaptive Replacement Cache: T1/T2 hold live entries (recency
// and frequency respectively), B1/B2 are ghost lists of evicted keys used
// to adapt the T1/T2 size target p.
type arcPolicy struct {
	capacity     int
	p            int
	t1, t2       *list.List
	b1, b2       *list.List
	items        map[string]*list.Element
	ghosts       map[string]*list.Element
	data         map[string][]byte
	hits, misses uint64
}

type arcEntry struct {
	key string
}

func newARCPolicy(capacity int) *arcPolicy {
	return &arcPolicy{
		capacity: capacity,
		t1:       list.New(), t2: list.New(), b1: list.New(), b2: list.New(),
		items:  make(map[string]*list.Element),
		ghosts: make(map[string]*list.Element),
		data:   make(map[string][]byte),
	}
}

func (p *arcPolicy) get(key string) ([]byte, bool) {
	if elem, ok := p.items[key]; ok {
		// Promote a T1 hit to T2 (it has now been seen twice).
		if elem.Value.(*arcEntry) != nil {
			p.moveToT2(key, elem)
		}
		p.hits++
		return p.data[key], true
	}
	p.misses++
	return nil, false
}

func (p *arcPolicy) moveToT2(key string, elem *list.Element) {
	for _, l := range []*list.List{p.t1, p.t2} {
		if elemIn(l, elem) {
			l.Remove(elem)
			break
		}
	}
	p.items[key] = p.t2.PushFront(&arcEntry{key: key})
}

func elemIn(l *list.List, e *list.Element) bool {
	for cur := l.Front(); cur != nil; cur = cur.Next() {
		if cur == e {
			return true
		}
	}
	return false
}

func (p *arcPolicy) put(key string, val []byte) {
	if elem, ok := p.items[key]; ok {
		p.data[key] = val
		p.moveToT2(key, elem)
		return
	}
	if _, ok := p.ghosts[key]; ok {
		p.adaptOnGhostHit(key)
		p.replace(key)
		delete(p.ghosts, key)
		p.data[key] = val
		p.items[key] = p.t2.PushFront(&arcEntry{key: key})
		return
	}
	if p.t1.Len()+p.t2.Len() >= p.capacity {
		p.replace(key)
	}
	p.data[key] = val
	p.items[key] = p.t1.PushFront(&arcEntry{key: key})
	p.trimGhosts()
}

func (p *arcPolicy) adaptOnGhostHit(key string) {
	inB1 := p.inList(p.b1, key)
	if inB1 {
		delta := 1
		if p.b1.Len() > 0 && p.b2.Len() > p.b1.Len() {
			delta = p.b2.Len() / p.b1.Len()
		}
		p.p = minInt(p.p+delta, p.capacity)
	} else {
		delta := 1
		if p.b2.Len() > 0 && p.b1.Len() > p.b2.Len() {
			delta = p.b1.Len() / p.b2.Len()
		}
		p.p = maxInt(p.p-delta, 0)
	}
}

func (p *arcPolicy) inList(l *list.List, key string) bool {
	for cur := l.Front(); cur != nil; cur = cur.Next() {
		if cur.Value.(*arcEntry).key == key {
			return true
		}
	}
	return false
}

// replace evicts from T1 or T2 into the matching ghost list per the ARC
// rule comparing T1's size against target p.
func (p *arcPolicy) replace(key string) {
	if p.t1.Len() > 0 && (p.t1.Len() > p.p || (p.inList(p.b2, key) && p.t1.Len() == p.p)) {
		back := p.t1.Back()
		if back == nil {
			return
		}
		k := back.Value.(*arcEntry).key
		p.t1.Remove(back)
		delete(p.items, k)
		delete(p.data, k)
		p.ghosts[k] = p.b1.PushFront(&arcEntry{key: k})
		return
	}
	back := p.t2.Back()
	if back == nil {
		return
	}
	k := back.Value.(*arcEntry).key
	p.t2.Remove(back)
	delete(p.items, k)
	delete(p.data, k)
	p.ghosts[k] = p.b2.PushFront(&arcEntry{key: k})
}

// trimGhosts keeps the combined ghost-list size bounded to capacity, the
// standard ARC bookkeeping rule.
func (p *arcPolicy) trimGhosts() {
	for p.b1.Len()+p.b2.Len() > p.capacity {
		if p.b1.Len() > p.b2.Len() {
			back := p.b1.Back()
			delete(p.ghosts, back.Value.(*arcEntry).key)
			p.b1.Remove(back)
		} else {
			back := p.b2.Back()
			if back == nil {
				break
			}
			delete(p.ghosts, back.Value.(*arcEntry).key)
			p.b2.Remove(back)
		}
	}
}

func (p *arcPolicy) remove(key string) {
	if elem, ok := p.items[key]; ok {
		p.t1.Remove(elem)
		p.t2.Remove(elem)
		delete(p.items, key)
		delete(p.data, key)
	}
	if elem, ok := p.ghosts[key]; ok {
		p.b1.Remove(elem)
		p.b2.Remove(elem)
		delete(p.ghosts, key)
	}
}

func (p *arcPolicy) hitRate() float64 {
	if p.hits+p.misses == 0 {
		return 0
	}
	return float64(p.hits) / float64(p.hits+p.misses)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// --- ghost simulation for policy switching -------------------------

// windowTracker accumulates a hit/miss outcome stream into rolling windows
// of cacheWindow accesses and remembers the two most recently completed
// windows' hit rates — §4.9a requires both before a policy
// switch decision is made, so a single lucky window can't trigger a flip.
type windowTracker struct {
	windowHits, windowTotal int
	prevRate, currRate      float64
	windowsCompleted        int
}

func (w *windowTracker) record(hit bool) {
	w.windowTotal++
	if hit {
		w.windowHits++
	}
	if w.windowTotal >= cacheWindow {
		rate := float64(w.windowHits) / float64(w.windowTotal)
		w.prevRate = w.currRate
		w.currRate = rate
		w.windowsCompleted++
		w.windowHits, w.windowTotal = 0, 0
	}
}

// lastTwo returns the two most recently completed windows' hit rates
// (older, newer) and whether at least two windows have completed.
func (w *windowTracker) lastTwo() (float64, float64, bool) {
	return w.prevRate, w.currRate, w.windowsCompleted >= 2
}

// ghostSim tracks what a candidate policy (plain LRU membership, without
// payload bytes) would have hit, so L1Cache can compare it against the
// active policy's real hit rate (§4.9a). The name is historical
// — a single ghostSim instance simulates one candidate's membership set;
// L1Cache runs two instances, shadowLRU and shadowLFU, and both simulate
// plain LRU membership.
type ghostSim struct {
	capacity int
	ll       *list.List
	present  map[string]*list.Element
	win      windowTracker
}

func newGhostSim(capacity int) *ghostSim {
	return &ghostSim{capacity: capacity, ll: list.New(), present: make(map[string]*list.Element)}
}

// access records one lookup for key against the simulated membership set
// and reports whether it was a simulated hit.
func (g *ghostSim) access(key string) bool {
	hit := false
	if elem, ok := g.present[key]; ok {
		g.ll.MoveToFront(elem)
		hit = true
	} else {
		elem := g.ll.PushFront(key)
		g.present[key] = elem
		if g.ll.Len() > g.capacity {
			back := g.ll.Back()
			g.ll.Remove(back)
			delete(g.present, back.Value.(string))
		}
	}
	g.win.record(hit)
	return hit
}

func (g *ghostSim) lastTwo() (float64, float64, bool) {
	return g.win.lastTwo()
}

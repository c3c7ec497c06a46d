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

package dispatch

import (
	"time"

	"synap/internal/kv"
	"synap/internal/synaperr"
)

func registerKVHandlers(d *Dispatcher) {
	d.register("kv.set", true, handleKVSet)
	d.register("kv.get", false, handleKVGet)
	d.register("kv.del", true, handleKVDel)
	d.register("kv.exists", false, handleKVExists)
	d.register("kv.incr", true, handleKVIncr)
	d.register("kv.decr", true, handleKVDecr)
	d.register("kv.scan", false, handleKVScan)
	d.register("kv.keys", false, handleKVKeys)
	d.register("kv.stats", false, handleKVStats)
}

func handleKVSet(d *Dispatcher, payload map[string]any) (any, error) {
	key, ok := stringField(payload, "key")
	if !ok {
		return nil, synaperr.New(synaperr.KindInvalidValue, "kv.set requires a string key")
	}
	val, ok := bytesField(payload, "value")
	if !ok {
		return nil, synaperr.New(synaperr.KindInvalidValue, "kv.set requires a value")
	}
	var ttl time.Duration
	if secs, ok := intField(payload, "ttl_seconds"); ok && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	if err := d.KV.Set(key, val, ttl); err != nil {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}

func handleKVGet(d *Dispatcher, payload map[string]any) (any, error) {
	key, ok := stringField(payload, "key")
	if !ok {
		return nil, synaperr.New(synaperr.KindInvalidValue, "kv.get requires a string key")
	}
	val, ok := d.KV.Get(key)
	if !ok {
		return nil, synaperr.Newf(synaperr.KindKeyNotFound, "key %q not found", key)
	}
	return map[string]any{"value": string(val)}, nil
}

func handleKVDel(d *Dispatcher, payload map[string]any) (any, error) {
	key, ok := stringField(payload, "key")
	if !ok {
		return nil, synaperr.New(synaperr.KindInvalidValue, "kv.del requires a string key")
	}
	return map[string]any{"deleted": d.KV.Delete(key)}, nil
}

func handleKVExists(d *Dispatcher, payload map[string]any) (any, error) {
	key, ok := stringField(payload, "key")
	if !ok {
		return nil, synaperr.New(synaperr.KindInvalidValue, "kv.exists requires a string key")
	}
	return map[string]any{"exists": d.KV.Exists(key)}, nil
}

func handleKVIncr(d *Dispatcher, payload map[string]any) (any, error) {
	key, ok := stringField(payload, "key")
	if !ok {
		return nil, synaperr.New(synaperr.KindInvalidValue, "kv.incr requires a string key")
	}
	delta, ok := intField(payload, "delta")
	if !ok {
		delta = 1
	}
	n, err := d.KV.Incr(key, int64(delta))
	if err != nil {
		return nil, err
	}
	return map[string]any{"value": n}, nil
}

func handleKVDecr(d *Dispatcher, payload map[string]any) (any, error) {
	key, ok := stringField(payload, "key")
	if !ok {
		return nil, synaperr.New(synaperr.KindInvalidValue, "kv.decr requires a string key")
	}
	delta, ok := intField(payload, "delta")
	if !ok {
		delta = 1
	}
	n, err := d.KV.Decr(key, int64(delta))
	if err != nil {
		return nil, err
	}
	return map[string]any{"value": n}, nil
}

func handleKVScan(d *Dispatcher, payload map[string]any) (any, error) {
	prefix, _ := stringField(payload, "prefix")
	limit, _ := intField(payload, "limit")
	keys := d.KV.Scan(kv.ScanOptions{Prefix: prefix, Limit: limit, Deterministic: true})
	return map[string]any{"keys": keys}, nil
}

func handleKVKeys(d *Dispatcher, payload map[string]any) (any, error) {
	prefix, _ := stringField(payload, "prefix")
	return map[string]any{"keys": d.KV.Keys(prefix)}, nil
}

func handleKVStats(d *Dispatcher, _ map[string]any) (any, error) {
	st := d.KV.Stats()
	return map[string]any{
		"count":    st.Count,
		"bytes":    st.Bytes,
		"hits":     st.Hits,
		"misses":   st.Misses,
		"hit_rate": st.HitRate,
	}, nil
}

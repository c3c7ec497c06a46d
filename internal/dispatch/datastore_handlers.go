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

import "synap/internal/synaperr"

func registerDatastoreHandlers(d *Dispatcher) {
	d.register("hash.set", true, handleHSet)
	d.register("hash.get", false, handleHGet)
	d.register("hash.del", true, handleHDel)
	d.register("hash.getall", false, handleHGetAll)

	d.register("list.lpush", true, handleLPush)
	d.register("list.rpush", true, handleRPush)
	d.register("list.lpop", true, handleLPop)
	d.register("list.rpop", true, handleRPop)
	d.register("list.range", false, handleLRange)

	d.register("set.add", true, handleSAdd)
	d.register("set.rem", true, handleSRem)
	d.register("set.ismember", false, handleSIsMember)
	d.register("set.members", false, handleSMembers)

	d.register("zset.add", true, handleZAdd)
	d.register("zset.rem", true, handleZRem)
	d.register("zset.score", false, handleZScore)
	d.register("zset.range", false, handleZRange)
}

func requireKeyField(payload map[string]any) (string, error) {
	key, ok := stringField(payload, "key")
	if !ok {
		return "", synaperr.New(synaperr.KindInvalidValue, "command requires a string key")
	}
	return key, nil
}

func handleHSet(d *Dispatcher, payload map[string]any) (any, error) {
	key, err := requireKeyField(payload)
	if err != nil {
		return nil, err
	}
	field, ok := stringField(payload, "field")
	if !ok {
		return nil, synaperr.New(synaperr.KindInvalidValue, "hash.set requires a string field")
	}
	val, _ := bytesField(payload, "value")
	d.Datastore.HSet(key, field, val)
	return map[string]any{"ok": true}, nil
}

func handleHGet(d *Dispatcher, payload map[string]any) (any, error) {
	key, err := requireKeyField(payload)
	if err != nil {
		return nil, err
	}
	field, _ := stringField(payload, "field")
	val, ok := d.Datastore.HGet(key, field)
	if !ok {
		return nil, synaperr.New(synaperr.KindKeyNotFound, "field not found")
	}
	return map[string]any{"value": string(val)}, nil
}

func handleHDel(d *Dispatcher, payload map[string]any) (any, error) {
	key, err := requireKeyField(payload)
	if err != nil {
		return nil, err
	}
	field, _ := stringField(payload, "field")
	return map[string]any{"deleted": d.Datastore.HDel(key, field)}, nil
}

func handleHGetAll(d *Dispatcher, payload map[string]any) (any, error) {
	key, err := requireKeyField(payload)
	if err != nil {
		return nil, err
	}
	all := d.Datastore.HGetAll(key)
	out := make(map[string]string, len(all))
	for k, v := range all {
		out[k] = string(v)
	}
	return map[string]any{"fields": out}, nil
}

func handleLPush(d *Dispatcher, payload map[string]any) (any, error) {
	key, err := requireKeyField(payload)
	if err != nil {
		return nil, err
	}
	val, _ := bytesField(payload, "value")
	return map[string]any{"length": d.Datastore.LPush(key, val)}, nil
}

func handleRPush(d *Dispatcher, payload map[string]any) (any, error) {
	key, err := requireKeyField(payload)
	if err != nil {
		return nil, err
	}
	val, _ := bytesField(payload, "value")
	return map[string]any{"length": d.Datastore.RPush(key, val)}, nil
}

func handleLPop(d *Dispatcher, payload map[string]any) (any, error) {
	key, err := requireKeyField(payload)
	if err != nil {
		return nil, err
	}
	val, ok := d.Datastore.LPop(key)
	if !ok {
		return nil, synaperr.New(synaperr.KindKeyNotFound, "list is empty")
	}
	return map[string]any{"value": string(val)}, nil
}

func handleRPop(d *Dispatcher, payload map[string]any) (any, error) {
	key, err := requireKeyField(payload)
	if err != nil {
		return nil, err
	}
	val, ok := d.Datastore.RPop(key)
	if !ok {
		return nil, synaperr.New(synaperr.KindKeyNotFound, "list is empty")
	}
	return map[string]any{"value": string(val)}, nil
}

func handleLRange(d *Dispatcher, payload map[string]any) (any, error) {
	key, err := requireKeyField(payload)
	if err != nil {
		return nil, err
	}
	start, _ := intField(payload, "start")
	stop, _ := intField(payload, "stop")
	items := d.Datastore.LRange(key, start, stop)
	out := make([]string, len(items))
	for i, v := range items {
		out[i] = string(v)
	}
	return map[string]any{"items": out}, nil
}

func handleSAdd(d *Dispatcher, payload map[string]any) (any, error) {
	key, err := requireKeyField(payload)
	if err != nil {
		return nil, err
	}
	member, _ := stringField(payload, "member")
	return map[string]any{"added": d.Datastore.SAdd(key, member)}, nil
}

func handleSRem(d *Dispatcher, payload map[string]any) (any, error) {
	key, err := requireKeyField(payload)
	if err != nil {
		return nil, err
	}
	member, _ := stringField(payload, "member")
	return map[string]any{"removed": d.Datastore.SRem(key, member)}, nil
}

func handleSIsMember(d *Dispatcher, payload map[string]any) (any, error) {
	key, err := requireKeyField(payload)
	if err != nil {
		return nil, err
	}
	member, _ := stringField(payload, "member")
	return map[string]any{"is_member": d.Datastore.SIsMember(key, member)}, nil
}

func handleSMembers(d *Dispatcher, payload map[string]any) (any, error) {
	key, err := requireKeyField(payload)
	if err != nil {
		return nil, err
	}
	return map[string]any{"members": d.Datastore.SMembers(key)}, nil
}

func handleZAdd(d *Dispatcher, payload map[string]any) (any, error) {
	key, err := requireKeyField(payload)
	if err != nil {
		return nil, err
	}
	member, _ := stringField(payload, "member")
	score, _ := float64Field(payload, "score")
	d.Datastore.ZAdd(key, member, score)
	return map[string]any{"ok": true}, nil
}

func handleZRem(d *Dispatcher, payload map[string]any) (any, error) {
	key, err := requireKeyField(payload)
	if err != nil {
		return nil, err
	}
	member, _ := stringField(payload, "member")
	return map[string]any{"removed": d.Datastore.ZRem(key, member)}, nil
}

func handleZScore(d *Dispatcher, payload map[string]any) (any, error) {
	key, err := requireKeyField(payload)
	if err != nil {
		return nil, err
	}
	member, _ := stringField(payload, "member")
	score, ok := d.Datastore.ZScore(key, member)
	if !ok {
		return nil, synaperr.New(synaperr.KindKeyNotFound, "member not found")
	}
	return map[string]any{"score": score}, nil
}

func handleZRange(d *Dispatcher, payload map[string]any) (any, error) {
	key, err := requireKeyField(payload)
	if err != nil {
		return nil, err
	}
	start, _ := intField(payload, "start")
	stop, _ := intField(payload, "stop")
	members := d.Datastore.ZRange(key, start, stop)
	out := make([]map[string]any, len(members))
	for i, m := range members {
		out[i] = map[string]any{"member": m.Member, "score": m.Score}
	}
	return map[string]any{"members": out}, nil
}

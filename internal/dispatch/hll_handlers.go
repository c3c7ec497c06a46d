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

func registerHLLHandlers(d *Dispatcher) {
	d.register("hyperloglog.pfadd", true, handlePFAdd)
	d.register("hyperloglog.pfcount", false, handlePFCount)
	d.register("hyperloglog.pfmerge", true, handlePFMerge)
}

func handlePFAdd(d *Dispatcher, payload map[string]any) (any, error) {
	key, err := requireKeyField(payload)
	if err != nil {
		return nil, err
	}
	elements := stringListField(payload, "elements")
	els := make([][]byte, len(elements))
	for i, e := range elements {
		els[i] = []byte(e)
	}
	changed, err := d.HLL.PFAdd(key, els...)
	if err != nil {
		return nil, err
	}
	return map[string]any{"changed": changed}, nil
}

func handlePFCount(d *Dispatcher, payload map[string]any) (any, error) {
	keys := stringListField(payload, "keys")
	if len(keys) == 0 {
		if key, ok := stringField(payload, "key"); ok {
			keys = []string{key}
		}
	}
	if len(keys) == 0 {
		return nil, synaperr.New(synaperr.KindInvalidValue, "hyperloglog.pfcount requires keys")
	}
	count, err := d.HLL.PFCount(keys...)
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": count}, nil
}

func handlePFMerge(d *Dispatcher, payload map[string]any) (any, error) {
	dest, err := requireKeyField(payload)
	if err != nil {
		return nil, err
	}
	sources := stringListField(payload, "source_keys")
	if err := d.HLL.PFMerge(dest, sources...); err != nil {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}

func stringListField(payload map[string]any, field string) []string {
	v, ok := payload[field]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

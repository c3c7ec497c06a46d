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

func registerStreamHandlers(d *Dispatcher) {
	d.register("stream.create", true, handleStreamCreate)
	d.register("stream.publish", true, handleStreamPublish)
	d.register("stream.consume", false, handleStreamConsume)
	d.register("stream.stats", false, handleStreamStats)
}

func handleStreamCreate(d *Dispatcher, payload map[string]any) (any, error) {
	name, err := requireNameField(payload)
	if err != nil {
		return nil, err
	}
	maxEvents, _ := intField(payload, "max_events")
	d.Streams.Create(name, maxEvents)
	return map[string]any{"ok": true}, nil
}

func handleStreamPublish(d *Dispatcher, payload map[string]any) (any, error) {
	name, err := requireNameField(payload)
	if err != nil {
		return nil, err
	}
	eventType, _ := stringField(payload, "event_type")
	val, _ := bytesField(payload, "payload")
	offset, err := d.Streams.Publish(name, eventType, val)
	if err != nil {
		return nil, err
	}
	return map[string]any{"offset": offset}, nil
}

func handleStreamConsume(d *Dispatcher, payload map[string]any) (any, error) {
	name, err := requireNameField(payload)
	if err != nil {
		return nil, err
	}
	from, _ := intField(payload, "from_offset")
	limit, _ := intField(payload, "limit")
	eventType, _ := stringField(payload, "event_type")
	events, err := d.Streams.Consume(name, uint64(from), limit, eventType)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(events))
	for i, ev := range events {
		out[i] = map[string]any{
			"offset":  ev.Offset,
			"type":    ev.Type,
			"payload": string(ev.Payload),
		}
	}
	return map[string]any{"events": out}, nil
}

func handleStreamStats(d *Dispatcher, payload map[string]any) (any, error) {
	name, err := requireNameField(payload)
	if err != nil {
		return nil, err
	}
	st, err := d.Streams.Stats(name)
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": st.Count, "first_offset": st.FirstOffset, "next_offset": st.NextOffset}, nil
}

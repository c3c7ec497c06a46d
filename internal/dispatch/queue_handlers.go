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

	"synap/internal/synaperr"
)

func registerQueueHandlers(d *Dispatcher) {
	d.register("queue.create", true, handleQueueCreate)
	d.register("queue.publish", true, handleQueuePublish)
	d.register("queue.consume", true, handleQueueConsume)
	d.register("queue.ack", true, handleQueueAck)
	d.register("queue.nack", true, handleQueueNack)
	d.register("queue.stats", false, handleQueueStats)
	d.register("queue.list", false, handleQueueList)
	d.register("queue.delete", true, handleQueueDelete)
}

func requireNameField(payload map[string]any) (string, error) {
	name, ok := stringField(payload, "name")
	if !ok {
		return "", synaperr.New(synaperr.KindInvalidValue, "command requires a string name")
	}
	return name, nil
}

func handleQueueCreate(d *Dispatcher, payload map[string]any) (any, error) {
	name, err := requireNameField(payload)
	if err != nil {
		return nil, err
	}
	maxDepth, _ := intField(payload, "max_depth")
	maxDLQ, _ := intField(payload, "max_dlq_size")
	d.Queues.Create(name, maxDepth, maxDLQ)
	return map[string]any{"ok": true}, nil
}

func handleQueuePublish(d *Dispatcher, payload map[string]any) (any, error) {
	name, err := requireNameField(payload)
	if err != nil {
		return nil, err
	}
	val, _ := bytesField(payload, "payload")
	priority, _ := intField(payload, "priority")
	maxRetries, _ := intField(payload, "max_retries")
	msg, err := d.Queues.Publish(name, val, priority, maxRetries)
	if err != nil {
		return nil, err
	}
	return map[string]any{"message_id": msg.ID}, nil
}

func handleQueueConsume(d *Dispatcher, payload map[string]any) (any, error) {
	name, err := requireNameField(payload)
	if err != nil {
		return nil, err
	}
	var visibility time.Duration
	if secs, ok := intField(payload, "ack_deadline_seconds"); ok {
		visibility = time.Duration(secs) * time.Second
	}
	msg, err := d.Queues.Consume(name, visibility)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return map[string]any{"message": nil}, nil
	}
	return map[string]any{
		"message": map[string]any{
			"id":       msg.ID,
			"payload":  string(msg.Payload),
			"priority": msg.Priority,
			"attempts": msg.Attempts,
		},
	}, nil
}

func handleQueueAck(d *Dispatcher, payload map[string]any) (any, error) {
	name, err := requireNameField(payload)
	if err != nil {
		return nil, err
	}
	id, _ := stringField(payload, "message_id")
	if err := d.Queues.Ack(name, id); err != nil {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}

func handleQueueNack(d *Dispatcher, payload map[string]any) (any, error) {
	name, err := requireNameField(payload)
	if err != nil {
		return nil, err
	}
	id, _ := stringField(payload, "message_id")
	if err := d.Queues.Nack(name, id); err != nil {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}

func handleQueueStats(d *Dispatcher, payload map[string]any) (any, error) {
	name, err := requireNameField(payload)
	if err != nil {
		return nil, err
	}
	st, err := d.Queues.Stats(name)
	if err != nil {
		return nil, err
	}
	return map[string]any{"ready": st.Ready, "pending": st.Pending, "dlq": st.DLQ}, nil
}

func handleQueueList(d *Dispatcher, _ map[string]any) (any, error) {
	return map[string]any{"queues": d.Queues.List()}, nil
}

func handleQueueDelete(d *Dispatcher, payload map[string]any) (any, error) {
	name, err := requireNameField(payload)
	if err != nil {
		return nil, err
	}
	return map[string]any{"deleted": d.Queues.Delete(name)}, nil
}

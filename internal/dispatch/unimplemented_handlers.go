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

// registerUnimplementedHandlers registers command names that spec §6
// recognizes by name only, so the dispatcher reports UnknownCommand
// instead of treating them as a typo against a registered command.
// Scripting and multi-command transactions are out of scope (spec.md
// Non-goals); no handler here ever mutates state.
func registerUnimplementedHandlers(d *Dispatcher) {
	for _, name := range []string{
		"script.eval",
		"script.load",
		"script.exists",
		"script.flush",
		"script.kill",
		"transaction.multi",
		"transaction.exec",
		"transaction.discard",
		"transaction.watch",
		"transaction.unwatch",
	} {
		name := name
		d.register(name, false, func(_ *Dispatcher, _ map[string]any) (any, error) {
			return nil, synaperr.Newf(synaperr.KindUnknownCommand, "%s is not implemented", name)
		})
	}
}

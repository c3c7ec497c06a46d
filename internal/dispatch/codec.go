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
	"bytes"
	"encoding/gob"
)

// EncodeCommand serializes cmd for the WAL/replication log wire framing
// (spec §4.6: length-prefixed binary framing — encoding/gob is the
// payload codec inside that frame; see DESIGN.md for why gob over JSON).
func EncodeCommand(cmd Command) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(cmd); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeCommand is EncodeCommand's inverse, used by recovery and replica
// apply loops.
func DecodeCommand(op []byte) (Command, error) {
	var cmd Command
	if err := gob.NewDecoder(bytes.NewReader(op)).Decode(&cmd); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

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

package synaperr

// ACLRule is the value type the permission-checking edge (an external
// collaborator per spec §1, not implemented here) consults if a caller
// wires enforcement in. Synap only carries the type and a pass-through
// default: DefaultACL grants every command prefix.
type ACLRule struct {
	Pattern        string
	AllowedPrefix  []string
	Deny           bool
}

// DefaultACL is the permissive rule Synap uses when no enforcement edge is
// configured; the core never denies a command on ACL grounds by itself.
var DefaultACL = ACLRule{Pattern: "*", AllowedPrefix: []string{"*"}}

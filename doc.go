/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cspchan is a CSP-style channel library: producer and
// consumer goroutines exchange fixed-width byte messages through
// Channel values that support rendezvous (capacity 0) and bounded FIFO
// (capacity > 0) modes, close signaling, and a multi-way guarded
// Select over sets of possible sends and receives.
//
// A Channel carries opaque messages of a fixed width chosen at
// creation; it never interprets message bytes. Callers own encoding.
package cspchan

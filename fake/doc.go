// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

// Package fake provides scripted test doubles for the api contracts: a
// transfer engine that records calls and asserts non-reentrancy, a reactor
// fired by hand, and a trivial transfer handle. Used by the bridge tests
// and the examples; not for production.
package fake

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model holds the types every other package agrees on: the Kind of a
// module, the Unit a successful compilation produces, and the Descriptor the
// registry lists.
//
// # Core Concepts
//
//   - Kind: The closed set of module kinds. Each kind names the single entry
//     function a unit of that kind must export (transform, plot, read, ...).
//
//   - Unit: A loaded, invocable compilation result. It remembers the exact
//     source it came from and the metadata its module block declared.
//
//   - Descriptor: The catalog record for an installed module. It pairs a unit
//     with the id, display name, help text, icon and repeatable flag the
//     presentation layer shows.
//
// Why a separate model package?
//
// The compiler produces units, the registry stores descriptors and the
// pipeline invokes them. Keeping the contract here lets each of them depend
// on model alone, and lets their tests run against small fakes instead of a
// real compiler.
package model

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// Predicate selects records in local queries and sync expressions.
// A nil Predicate matches everything.
type Predicate interface {
	Match(m Model) (bool, error)
}

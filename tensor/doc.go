// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor exposes the dense arrays generators use for fitted state.
//
// Custom generators normally go through plugins.SetVector and
// plugins.SetMatrix; this package is for state that needs another type or
// more than two dimensions.
//
// Example:
//
//	counts, _ := tensor.FromInt64(tensor.Shape{2, 3}, []int64{1, 2, 3, 4, 5, 6})
//	env.SetTensor("counts", counts)
package tensor

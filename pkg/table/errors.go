// Copyright 2023-2024 daviszhen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package table

import "errors"

var (
	// ErrCapacityExceeded reports a write past the allocated row capacity.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrColumnOutOfRange reports a column index beyond the schema.
	ErrColumnOutOfRange = errors.New("column out of range")
	ErrRowOutOfRange    = errors.New("row out of range")
	ErrWidthMismatch    = errors.New("width mismatch")
	// ErrSchemaFrozen reports a schema change after allocation.
	ErrSchemaFrozen   = errors.New("schema frozen after allocation")
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrMalformedInput = errors.New("malformed input")
	// ErrValueOverflow reports a value that does not fit its column width.
	ErrValueOverflow = errors.New("value overflows column")
	// ErrPartitionOverflow reports a partition block that ran out of headroom.
	ErrPartitionOverflow = errors.New("partition overflow")
	ErrInvalidPartitions = errors.New("invalid partition count")
	ErrNotAllocated      = errors.New("table not allocated")
)

// Package checkpoint implements the durable retrieval position.
//
// # Overview
//
// The position is a single ASCII Unix timestamp in a small file, one file per
// feed. Saves go through a temp-file + fsync + rename replace so a crash
// mid-write can never leave a partially written file; readers either see the
// previous value or the new one. The value advances monotonically: a Save
// below the highest value written this process lifetime is a no-op.
package checkpoint

// Package record defines the loosely-typed event record and its field
// accessors. The engine never interprets record contents beyond the small set
// of timestamp/id fields needed for ordering and detail enrichment; accessors
// make the fallback order for those fields explicit instead of ad hoc map
// probing at call sites.
package record

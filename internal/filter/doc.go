// Package filter evaluates optional per-feed CEL expressions against
// retrieved records before they are buffered for the sink. Filtering does not
// affect checkpoint advancement: excluded records still advance the running
// position like any other processed record.
package filter

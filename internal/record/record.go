package record

// Category selects which upstream log listing a feed harvests.
type Category string

// Supported API categories.
const (
	CategoryMail           Category = "mail"
	CategoryQuarantine     Category = "quarantine"
	CategoryAuthentication Category = "authentication"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryMail, CategoryQuarantine, CategoryAuthentication:
		return true
	}
	return false
}

// UsesType reports whether listing calls for this category carry the "type"
// query parameter. Authentication listings do not.
func (c Category) UsesType() bool { return c != CategoryAuthentication }

// Record is one opaque event as returned by the listing or detail call.
type Record map[string]interface{}

// stripFields are bulky detail sub-fields removed before a record reaches the
// sink: full message bodies, transaction traces, filter traces and embedded
// attachments.
var stripFields = []string{"logs", "transactions", "filters", "emails"}

// StripBulky removes the bulky payload sub-fields in place.
func (r Record) StripBulky() {
	for _, f := range stripFields {
		delete(r, f)
	}
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

// firstRecipient returns the first entry of the "recipients" list, if any.
func (r Record) firstRecipient() (map[string]interface{}, bool) {
	recips, ok := r["recipients"].([]interface{})
	if !ok || len(recips) == 0 {
		return nil, false
	}
	m, ok := recips[0].(map[string]interface{})
	return m, ok
}

// Time returns the record's event timestamp for checkpoint advancement.
// Fallback order is documented per category: mail reads the first recipient's
// "time", else the top-level "time"; other categories read "time", else
// "timestamp", else "starttime". Returns (0, false) when no field is present.
func (r Record) Time(cat Category) (int64, bool) {
	if cat == CategoryMail {
		if recip, ok := r.firstRecipient(); ok {
			if ts, ok := asInt64(recip["time"]); ok {
				return ts, true
			}
		}
		if ts, ok := asInt64(r["time"]); ok {
			return ts, true
		}
		return 0, false
	}
	for _, key := range []string{"time", "timestamp", "starttime"} {
		if ts, ok := asInt64(r[key]); ok {
			return ts, true
		}
	}
	return 0, false
}

// DetailRef identifies the secondary detail resource a record references.
type DetailRef struct {
	QueueID string
	Time    int64
}

// DetailRef returns the detail reference for mail records that carry one: a
// non-empty queue_id plus the first recipient's event time. Records without
// both pass through enrichment unchanged.
func (r Record) DetailRef() (DetailRef, bool) {
	id, ok := r["queue_id"].(string)
	if !ok || id == "" {
		return DetailRef{}, false
	}
	recip, ok := r.firstRecipient()
	if !ok {
		return DetailRef{}, false
	}
	ts, ok := asInt64(recip["time"])
	if !ok {
		return DetailRef{}, false
	}
	return DetailRef{QueueID: id, Time: ts}, true
}

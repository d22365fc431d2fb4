package logstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/verte-zerg/topicq/internal/model"
)

// TimeLayout is the fixed-width UTC timestamp encoding of stored entries.
// Encoded values sort lexicographically in time order.
const TimeLayout = "2006-01-02T15:04:05.000Z"

const (
	metaKindKey      = "kind"
	metaKindQuestion = "question"
)

type record struct {
	ID         string         `json:"id"`
	CreatedAt  string         `json:"createdAt"`
	Type       string         `json:"type"`
	GroupID    string         `json:"groupId"`
	GroupName  string         `json:"groupName"`
	PersonID   string         `json:"personId"`
	PersonName string         `json:"personName"`
	Text       string         `json:"text"`
	Meta       map[string]any `json:"meta"`
}

// FormatTime encodes t with TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func encodeEntries(entries []model.Entry) ([]byte, error) {
	records := make([]record, 0, len(entries))
	for _, e := range entries {
		records = append(records, toRecord(e))
	}
	return json.Marshal(records)
}

func decodeEntries(data []byte) ([]model.Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var records []record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode log: %w", err)
	}
	entries := make([]model.Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, fromRecord(r))
	}
	return entries, nil
}

func toRecord(e model.Entry) record {
	meta := map[string]any{}
	for k, v := range e.Meta {
		meta[k] = v
	}
	if e.Kind.IsQuestion() {
		meta[metaKindKey] = metaKindQuestion
	}
	return record{
		ID:         e.ID,
		CreatedAt:  FormatTime(e.CreatedAt),
		Type:       e.Type(),
		GroupID:    e.GroupID,
		GroupName:  e.GroupName,
		PersonID:   e.PersonID,
		PersonName: e.PersonName,
		Text:       e.Text,
		Meta:       meta,
	}
}

func fromRecord(r record) model.Entry {
	e := model.Entry{
		ID:         r.ID,
		GroupID:    r.GroupID,
		GroupName:  r.GroupName,
		PersonID:   r.PersonID,
		PersonName: r.PersonName,
		Text:       r.Text,
	}
	if t, err := time.Parse(time.RFC3339Nano, r.CreatedAt); err == nil {
		e.CreatedAt = t.UTC()
	}

	meta := make(map[string]any, len(r.Meta))
	for k, v := range r.Meta {
		meta[k] = v
	}

	kind := model.EntryKind(r.Type)
	switch {
	case kind == model.KindMemo:
		e.Kind = kind
	case kind.IsQuestion() && meta[metaKindKey] == metaKindQuestion:
		e.Kind = kind
		delete(meta, metaKindKey)
	default:
		e.Kind = model.KindOther
		e.RawType = r.Type
	}
	if len(meta) > 0 {
		e.Meta = meta
	}
	return e
}

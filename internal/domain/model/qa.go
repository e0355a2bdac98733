package model

import (
	"encoding/json"
	"strings"
)

// QARecord is one question the coach asked and the user's reply to it.
type QARecord struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ExtractOptions tunes ExtractQA.
type ExtractOptions struct {
	StripNonASCII bool
}

// ExtractQA pairs messages by position: every even index is a question and
// the message right after it is the answer, empty when there is none.
// Records are deduplicated keeping first-seen order.
func ExtractQA(msgs []Message, opts ExtractOptions) []QARecord {
	out := make([]QARecord, 0, (len(msgs)+1)/2)
	for i := 0; i < len(msgs); i += 2 {
		rec := QARecord{Question: msgs[i].Content}
		if i+1 < len(msgs) {
			rec.Answer = msgs[i+1].Content
		}
		if opts.StripNonASCII {
			rec.Question = StripNonASCII(rec.Question)
			rec.Answer = StripNonASCII(rec.Answer)
		}
		out = append(out, rec)
	}
	return Dedup(out)
}

// StripNonASCII drops every rune outside the 7-bit ASCII range.
func StripNonASCII(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return strings.Map(func(r rune) rune {
				if r > 0x7F {
					return -1
				}
				return r
			}, s)
		}
	}
	return s
}

// Dedup removes exact duplicate records, keeping the first occurrence.
func Dedup(records []QARecord) []QARecord {
	seen := make(map[QARecord]struct{}, len(records))
	out := make([]QARecord, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// MarshalQA serialises records as an indented JSON array. A nil slice still
// encodes as [].
func MarshalQA(records []QARecord) ([]byte, error) {
	if records == nil {
		records = []QARecord{}
	}
	return json.MarshalIndent(records, "", "  ")
}

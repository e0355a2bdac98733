package web

import (
	"bytes"
	"encoding/json"
	"net/http"

	"coach-connect/internal/domain/model"
	"coach-connect/internal/domain/ports/adapter"
)

// streamWriter frames model text for the browser and flushes every chunk.
//
// text: raw UTF-8.
// data: one `0:<json string>` line per chunk and `3:<json string>` for an
// error, the framing of the AI SDK data stream protocol.
type streamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	data    bool
	buf     bytes.Buffer
	enc     *json.Encoder
}

func newStreamWriter(w http.ResponseWriter, protocol string) *streamWriter {
	sw := &streamWriter{w: w, data: protocol != model.StreamText}
	sw.flusher, _ = w.(http.Flusher)
	sw.enc = json.NewEncoder(&sw.buf)
	sw.enc.SetEscapeHTML(false)
	return sw
}

func (sw *streamWriter) writeHeader() {
	h := sw.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	if sw.data {
		h.Set("X-Vercel-AI-Data-Stream", "v1")
	}
	sw.w.WriteHeader(http.StatusOK)
}

func (sw *streamWriter) frame(prefix, s string) []byte {
	sw.buf.Reset()
	sw.buf.WriteString(prefix)
	_ = sw.enc.Encode(s) // a string always encodes; Encode adds the newline
	return sw.buf.Bytes()
}

func (sw *streamWriter) chunk(s string) error {
	var err error
	if sw.data {
		_, err = sw.w.Write(sw.frame("0:", s))
	} else {
		_, err = sw.w.Write([]byte(s))
	}
	if err == nil && sw.flusher != nil {
		sw.flusher.Flush()
	}
	return err
}

// fail reports an error that happened after the status line was sent. The
// text protocol has no error frame, so the reply just ends.
func (sw *streamWriter) fail(msg string) {
	if !sw.data {
		return
	}
	_, _ = sw.w.Write(sw.frame("3:", msg))
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
}

// pipe copies s to the client. It returns the number of chunks written and
// the first stream or write error.
func (sw *streamWriter) pipe(s adapter.TextStream) (int, error) {
	sw.writeHeader()
	n := 0
	for s.Next() {
		t := s.Text()
		if t == "" {
			continue
		}
		if err := sw.chunk(t); err != nil {
			return n, err
		}
		n++
	}
	if err := s.Err(); err != nil {
		sw.fail(err.Error())
		return n, err
	}
	return n, nil
}

package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// LogEmitter writes one line per event to a writer.
//
// Text mode:
//
//	[step_failed] session=3f2a context=login step=4 element=v_Login meta={"error":"timeout","kind":"vertex"}
//
// JSON mode (one object per line):
//
//	{"session":"3f2a","context":"login","step":4,"element":"v_Login","msg":"step_failed","meta":{"error":"timeout","kind":"vertex"}}
type LogEmitter struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a LogEmitter writing to writer, os.Stdout when nil.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{
		writer:   writer,
		jsonMode: jsonMode,
	}
}

func (l *LogEmitter) Emit(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.jsonMode {
		l.emitJSON(event)
	} else {
		l.emitText(event)
	}
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		Session string                 `json:"session"`
		Context string                 `json:"context,omitempty"`
		Step    int                    `json:"step"`
		Element string                 `json:"element,omitempty"`
		Msg     string                 `json:"msg"`
		Meta    map[string]interface{} `json:"meta,omitempty"`
	}{
		Session: event.SessionID,
		Context: event.Context,
		Step:    event.Step,
		Element: event.ElementID,
		Msg:     event.Msg,
		Meta:    event.Meta,
	})
	if err != nil {
		fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	fmt.Fprintf(l.writer, "[%s] session=%s", event.Msg, event.SessionID)
	if event.Context != "" {
		fmt.Fprintf(l.writer, " context=%s", event.Context)
	}
	fmt.Fprintf(l.writer, " step=%d", event.Step)
	if event.ElementID != "" {
		fmt.Fprintf(l.writer, " element=%s", event.ElementID)
	}
	if len(event.Meta) > 0 {
		if metaJSON, err := json.Marshal(event.Meta); err == nil {
			fmt.Fprintf(l.writer, " meta=%s", metaJSON)
		} else {
			fmt.Fprintf(l.writer, " meta=%v", event.Meta)
		}
	}
	fmt.Fprint(l.writer, "\n")
}

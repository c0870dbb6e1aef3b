// Package mailtest provides an in-memory mail.Mailer for tests.
package mailtest

import (
	"context"
	"sync"

	"github.com/mx-space/comments/internal/pkg/mail"
)

// Recorder keeps every message it is asked to send.
type Recorder struct {
	mu   sync.Mutex
	msgs []mail.Message
	// Err, when set, is returned by Send after recording the message.
	Err error
}

func (r *Recorder) Send(_ context.Context, msg mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.Err
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []mail.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]mail.Message, len(r.msgs))
	copy(out, r.msgs)
	return out
}

// To returns the recorded messages addressed to addr.
func (r *Recorder) To(addr string) []mail.Message {
	var out []mail.Message
	for _, m := range r.Messages() {
		for _, to := range m.To {
			if to == addr {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.msgs = nil
	r.mu.Unlock()
}

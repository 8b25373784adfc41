package transcribe

import (
	"context"
	"sync"

	"github.com/mgpai22/captioner/internal/subtitle"
)

// Lazy defers building a recognizer until its first use. Construction runs
// once; its error is returned by every later call.
type Lazy struct {
	newFn func(ctx context.Context) (Recognizer, error)

	once sync.Once
	r    Recognizer
	err  error
}

func NewLazy(newFn func(ctx context.Context) (Recognizer, error)) *Lazy {
	return &Lazy{newFn: newFn}
}

func (l *Lazy) Recognize(ctx context.Context, mediaPath string, opts Options) ([]subtitle.Segment, error) {
	r, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return r.Recognize(ctx, mediaPath, opts)
}

func (l *Lazy) get(ctx context.Context) (Recognizer, error) {
	l.once.Do(func() {
		l.r, l.err = l.newFn(context.WithoutCancel(ctx))
	})
	return l.r, l.err
}

// Package boundary exposes parse results to hosts as self-describing
// payload buffers with single-owner release semantics.
package boundary

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jacoelho/treeview/internal/docerr"
	"github.com/jacoelho/treeview/internal/loader"
	"github.com/jacoelho/treeview/internal/tree"
)

// ErrReleased is returned when a buffer is used or released after Release.
var ErrReleased = errors.New("buffer already released")

// Engine turns files and text into payload buffers. Its options are fixed at
// construction, so concurrent calls share no mutable state.
type Engine struct {
	loader *loader.Loader
}

func New(opts loader.Options) *Engine {
	return &Engine{loader: loader.New(opts)}
}

// Default is the Engine behind ParseFile and ParseText.
var Default = New(loader.Options{})

func ParseFile(path string) *Buffer { return Default.ParseFile(path) }

func ParseText(content, name string) *Buffer { return Default.ParseText(content, name) }

// ParseFile loads the file at path. Failures are encoded in the buffer.
func (e *Engine) ParseFile(path string) *Buffer {
	return e.run(func() (*tree.Document, error) {
		return e.loader.Load(context.Background(), path)
	})
}

// ParseText parses content in memory; name drives format detection and may
// be empty.
func (e *Engine) ParseText(content, name string) *Buffer {
	return e.run(func() (*tree.Document, error) {
		return e.loader.Bytes(name, []byte(content))
	})
}

func (e *Engine) run(load func() (*tree.Document, error)) (buf *Buffer) {
	defer func() {
		if r := recover(); r != nil {
			buf = newBuffer(EncodeError(docerr.New(docerr.Internal, "panic: %v", r)), false)
		}
	}()

	doc, err := load()
	if err != nil {
		return newBuffer(EncodeError(err), false)
	}
	data, err := Encode(doc)
	if err != nil {
		return newBuffer(EncodeError(err), false)
	}
	return newBuffer(data, true)
}

// Buffer owns one payload until Release is called.
type Buffer struct {
	ID uuid.UUID

	ok   bool
	data atomic.Pointer[[]byte]
}

func newBuffer(data []byte, ok bool) *Buffer {
	b := &Buffer{ID: uuid.New(), ok: ok}
	b.data.Store(&data)
	return b
}

// OK reports whether the payload is a success payload.
func (b *Buffer) OK() bool { return b.ok }

// Bytes returns the payload. The slice must not be modified and is invalid
// after Release.
func (b *Buffer) Bytes() ([]byte, error) {
	p := b.data.Load()
	if p == nil {
		return nil, ErrReleased
	}
	return *p, nil
}

// Release drops the payload. Only the first call succeeds.
func (b *Buffer) Release() error {
	if b.data.Swap(nil) == nil {
		return ErrReleased
	}
	return nil
}

// Registry tracks buffers handed to foreign callers by an opaque handle.
// It guards against double release and release of unknown handles.
type Registry struct {
	mu      sync.Mutex
	buffers map[uintptr]*Buffer
}

func NewRegistry() *Registry {
	return &Registry{buffers: make(map[uintptr]*Buffer)}
}

// Put records b under handle. Registering a live handle again is an error.
func (r *Registry) Put(handle uintptr, b *Buffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.buffers[handle]; ok {
		return fmt.Errorf("handle %#x already registered", handle)
	}
	r.buffers[handle] = b
	return nil
}

// Release releases the buffer registered under handle and forgets it.
func (r *Registry) Release(handle uintptr) error {
	r.mu.Lock()
	b, ok := r.buffers[handle]
	delete(r.buffers, handle)
	r.mu.Unlock()

	if !ok {
		return ErrReleased
	}
	return b.Release()
}

// Len is the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffers)
}

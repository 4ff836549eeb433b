package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/dockyard/pkg/core"
	"github.com/google/uuid"
)

// IdleName is reported when no session is open.
const IdleName = "No session"

// Context holds the current recording session and frame counter.
type Context struct {
	mu      sync.RWMutex
	session *core.Session
	frame   atomic.Uint64
}

// NewContext creates an idle Context.
func NewContext() *Context {
	return &Context{}
}

// Start opens a new session and returns a copy of it.
func (c *Context) Start(name string, frameRate int, version string) core.Session {
	s := &core.Session{
		UUID:      uuid.NewString(),
		Name:      name,
		StartTime: time.Now().UTC(),
		FrameRate: frameRate,
		Version:   version,
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	c.frame.Store(0)
	return *s
}

// Current returns the open session.
func (c *Context) Current() (core.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return core.Session{}, false
	}
	return *c.session, true
}

// SetID stores the journal-assigned id of the open session.
func (c *Context) SetID(id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.ID = id
	}
}

// Name returns the open session name or IdleName.
func (c *Context) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return IdleName
	}
	return c.session.Name
}

// End closes the open session and returns it.
func (c *Context) End() (core.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return core.Session{}, false
	}
	s := *c.session
	c.session = nil
	return s, true
}

func (c *Context) SetFrame(f uint64) { c.frame.Store(f) }
func (c *Context) Frame() uint64     { return c.frame.Load() }

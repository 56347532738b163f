package squarefield

import (
	"sync"

	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/square"
)

type slot struct {
	owner *card
	entry *square.CardEntry
	nonce string
}

// Containers is the registry of named card containers. A field attaches to a
// container; the customer's input is written into the container and only the attached
// field reads it back.
type Containers struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// NewContainers returns an empty registry.
func NewContainers() *Containers {
	return &Containers{slots: map[string]*slot{}}
}

// Fill writes raw card entry into the container's attached field.
func (c *Containers) Fill(containerID string, entry square.CardEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[containerID]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeFieldNotAttached, "no card field attached to container")
	}
	s.entry = &entry
	s.nonce = ""
	return nil
}

// FillNonce delivers a nonce produced by the hosted payment page.
func (c *Containers) FillNonce(containerID, nonce string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[containerID]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeFieldNotAttached, "no card field attached to container")
	}
	s.entry = nil
	s.nonce = nonce
	return nil
}

// Attached reports whether a field currently occupies containerID.
func (c *Containers) Attached(containerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.slots[containerID]
	return ok
}

func (c *Containers) attach(containerID string, owner *card) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.slots[containerID]; ok && s.owner != owner {
		return pkgerrors.New(pkgerrors.CodeConflict, "container already hosts a card field")
	}
	c.slots[containerID] = &slot{owner: owner}
	return nil
}

func (c *Containers) read(containerID string, owner *card) (*square.CardEntry, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[containerID]
	if !ok || s.owner != owner {
		return nil, "", false
	}
	var entry *square.CardEntry
	if s.entry != nil {
		copied := *s.entry
		entry = &copied
	}
	nonce := s.nonce
	// nonces are single use
	s.nonce = ""
	return entry, nonce, true
}

func (c *Containers) release(containerID string, owner *card) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.slots[containerID]; ok && s.owner == owner {
		delete(c.slots, containerID)
	}
}

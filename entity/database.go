package entity

import (
	"fmt"
	"sync"

	"github.com/AndreGCGuerra/dune/errors"
	"github.com/AndreGCGuerra/dune/message"
)

// Info describes one reservation in the database.
type Info struct {
	Id    uint16
	Label string
	Owner string
}

// Database assigns stable entity ids to labels across all tasks. Safe for
// concurrent use.
type Database struct {
	mu      sync.RWMutex
	byLabel map[string]Info
	byID    map[uint16]Info
	next    uint16
}

// NewDatabase creates an empty entity database.
func NewDatabase() *Database {
	return &Database{
		byLabel: make(map[string]Info),
		byID:    make(map[uint16]Info),
	}
}

// Reserve allocates a stable id for a label on behalf of owner. Reserving
// the same label again from the same owner returns the same id; a label
// owned by a different task fails with ErrDuplicateLabel. Ids are never
// reused.
func (d *Database) Reserve(label, owner string) (uint16, error) {
	if label == "" {
		return message.UnknownEntity, errors.WrapInvalid(
			fmt.Errorf("empty label: %w", errors.ErrNonexistentLabel),
			"entity", "Reserve", "validate label")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if info, exists := d.byLabel[label]; exists {
		if info.Owner != owner {
			return message.UnknownEntity, errors.WrapInvalid(
				fmt.Errorf("label %q owned by %q, requested by %q: %w",
					label, info.Owner, owner, errors.ErrDuplicateLabel),
				"entity", "Reserve", "check ownership")
		}
		return info.Id, nil
	}

	id := d.next
	d.next++
	if id == message.UnknownEntity {
		// The sentinel is never handed out.
		id = d.next
		d.next++
	}

	info := Info{Id: id, Label: label, Owner: owner}
	d.byLabel[label] = info
	d.byID[id] = info
	return id, nil
}

// Resolve returns the id for a label regardless of owner.
func (d *Database) Resolve(label string) (uint16, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	info, exists := d.byLabel[label]
	if !exists {
		return message.UnknownEntity, errors.WrapTransient(
			fmt.Errorf("label %q: %w", label, errors.ErrNonexistentLabel),
			"entity", "Resolve", "look up label")
	}
	return info.Id, nil
}

// Lookup returns reservation details for an id.
func (d *Database) Lookup(id uint16) (Info, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	info, exists := d.byID[id]
	if !exists {
		return Info{}, errors.WrapInvalid(
			fmt.Errorf("id %d: %w", id, errors.ErrUnknownEntity),
			"entity", "Lookup", "look up id")
	}
	return info, nil
}

// OwnedBy returns all reservations held by one task.
func (d *Database) OwnedBy(owner string) []Info {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []Info
	for _, info := range d.byID {
		if info.Owner == owner {
			out = append(out, info)
		}
	}
	return out
}

package domain

import (
	"sort"
	"strings"
	"time"
)

// TrashType filters the trash view
type TrashType string

const (
	TrashTypeAll     TrashType = "ALL"
	TrashTypeProject TrashType = "PROJECT"
	TrashTypeTicket  TrashType = "TICKET"
)

// ParseTrashType parses a filter value; empty means ALL
func ParseTrashType(s string) (TrashType, error) {
	switch t := TrashType(strings.ToUpper(strings.TrimSpace(s))); t {
	case "":
		return TrashTypeAll, nil
	case TrashTypeAll, TrashTypeProject, TrashTypeTicket:
		return t, nil
	default:
		return "", ErrInvalidTrashType
	}
}

// Includes reports whether items of entityType pass the filter
func (t TrashType) Includes(entityType EntityType) bool {
	return t == TrashTypeAll || string(t) == string(entityType)
}

// TrashItem is one row of the unified trash view
type TrashItem struct {
	ID            string     `json:"id"`
	Type          EntityType `json:"type"`
	Name          string     `json:"name"`
	Key           string     `json:"key"`
	DeletedAt     time.Time  `json:"deleted_at"`
	DeletedBy     string     `json:"deleted_by"`
	DeletedReason *string    `json:"deleted_reason,omitempty"`
	PurgeAfter    time.Time  `json:"purge_after"`
	DaysRemaining int        `json:"days_remaining"`
}

// ProjectTrashItem renders a soft-deleted project
func ProjectTrashItem(p *Project, now time.Time) (TrashItem, bool) {
	return newTrashItem(p.ID, EntityTypeProject, p.Name, p.Key, &p.SoftDeleteStamp, now)
}

// TicketTrashItem renders a soft-deleted ticket
func TicketTrashItem(t *Ticket, now time.Time) (TrashItem, bool) {
	return newTrashItem(t.ID, EntityTypeTicket, t.Title, t.Key, &t.SoftDeleteStamp, now)
}

func newTrashItem(id string, entityType EntityType, name, key string, s *SoftDeleteStamp, now time.Time) (TrashItem, bool) {
	if s.DeletedAt == nil || s.PurgeAfter == nil {
		return TrashItem{}, false
	}
	item := TrashItem{
		ID:            id,
		Type:          entityType,
		Name:          name,
		Key:           key,
		DeletedAt:     *s.DeletedAt,
		DeletedReason: s.DeletedReason,
		PurgeAfter:    *s.PurgeAfter,
		DaysRemaining: DaysRemaining(*s.PurgeAfter, now),
	}
	if s.DeletedBy != nil {
		item.DeletedBy = *s.DeletedBy
	}
	return item, true
}

// SortTrashItems orders items by purge deadline, then type, then id
func SortTrashItems(items []TrashItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.PurgeAfter.Equal(b.PurgeAfter) {
			return a.PurgeAfter.Before(b.PurgeAfter)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.ID < b.ID
	})
}

package models

import "sort"

// EntityType names the persisted entity kinds that appear in change notifications.
type EntityType string

const (
	EntityAsset EntityType = "asset"
	EntityGroup EntityType = "group"
	EntityTag   EntityType = "tag"
)

// EntityTypes lists every entity type in a stable order.
var EntityTypes = []EntityType{EntityAsset, EntityGroup, EntityTag}

// Snapshot maps entity type to id to a content fingerprint of that entity.
type Snapshot map[EntityType]map[string]string

// NewSnapshot returns an empty snapshot with every entity type present.
func NewSnapshot() Snapshot {
	snap := make(Snapshot, len(EntityTypes))
	for _, t := range EntityTypes {
		snap[t] = map[string]string{}
	}
	return snap
}

// ChangeSet holds the ids inserted, updated and deleted for one entity type.
type ChangeSet struct {
	Inserted []string `json:"inserted" yaml:"inserted"`
	Updated  []string `json:"updated" yaml:"updated"`
	Deleted  []string `json:"deleted" yaml:"deleted"`
}

// Empty reports whether the change set carries no ids.
func (c ChangeSet) Empty() bool {
	return len(c.Inserted) == 0 && len(c.Updated) == 0 && len(c.Deleted) == 0
}

func (c ChangeSet) clone() ChangeSet {
	return ChangeSet{
		Inserted: append([]string{}, c.Inserted...),
		Updated:  append([]string{}, c.Updated...),
		Deleted:  append([]string{}, c.Deleted...),
	}
}

// ChangeNotification describes the effects of one committed unit of work.
// Values are immutable; accessors hand out copies.
type ChangeNotification struct {
	seq     uint64
	changes map[EntityType]ChangeSet
}

// NewChangeNotification builds a notification, sorting and copying the id sets.
func NewChangeNotification(seq uint64, changes map[EntityType]ChangeSet) ChangeNotification {
	out := make(map[EntityType]ChangeSet, len(changes))
	for t, set := range changes {
		set = set.clone()
		sort.Strings(set.Inserted)
		sort.Strings(set.Updated)
		sort.Strings(set.Deleted)
		if set.Empty() {
			continue
		}
		out[t] = set
	}
	return ChangeNotification{seq: seq, changes: out}
}

// Seq returns the commit sequence number that produced the notification.
func (n ChangeNotification) Seq() uint64 {
	return n.seq
}

// Changes returns a copy of the change set for one entity type.
func (n ChangeNotification) Changes(t EntityType) ChangeSet {
	return n.changes[t].clone()
}

// Inserted returns the ids inserted for one entity type.
func (n ChangeNotification) Inserted(t EntityType) []string {
	return n.Changes(t).Inserted
}

// Updated returns the ids updated for one entity type.
func (n ChangeNotification) Updated(t EntityType) []string {
	return n.Changes(t).Updated
}

// Deleted returns the ids deleted for one entity type.
func (n ChangeNotification) Deleted(t EntityType) []string {
	return n.Changes(t).Deleted
}

// Empty reports whether the notification carries no changes at all.
func (n ChangeNotification) Empty() bool {
	return len(n.changes) == 0
}

// WithSeq returns the same changes stamped with a commit sequence number.
func (n ChangeNotification) WithSeq(seq uint64) ChangeNotification {
	return ChangeNotification{seq: seq, changes: n.changes}
}

// EntityTypes returns the entity types that carry changes, in stable order.
func (n ChangeNotification) EntityTypes() []EntityType {
	out := make([]EntityType, 0, len(n.changes))
	for _, t := range EntityTypes {
		if _, ok := n.changes[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

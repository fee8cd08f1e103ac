// Package notify computes change notifications from store snapshots and
// delivers them to registered observers, each on its own executor.
package notify

import "shoebox/internal/models"

// Diff compares two snapshots taken around a unit of work. An id present only
// in after is inserted, only in before is deleted, and in both with a
// different fingerprint is updated. The result does not depend on which
// operation produced the change.
func Diff(before, after models.Snapshot) models.ChangeNotification {
	changes := make(map[models.EntityType]models.ChangeSet, len(models.EntityTypes))
	for _, t := range entityTypes(before, after) {
		var set models.ChangeSet
		prev, next := before[t], after[t]
		for id, fp := range next {
			old, ok := prev[id]
			switch {
			case !ok:
				set.Inserted = append(set.Inserted, id)
			case old != fp:
				set.Updated = append(set.Updated, id)
			}
		}
		for id := range prev {
			if _, ok := next[id]; !ok {
				set.Deleted = append(set.Deleted, id)
			}
		}
		changes[t] = set
	}
	return models.NewChangeNotification(0, changes)
}

func entityTypes(snaps ...models.Snapshot) []models.EntityType {
	seen := map[models.EntityType]struct{}{}
	var out []models.EntityType
	for _, t := range models.EntityTypes {
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, snap := range snaps {
		for t := range snap {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				out = append(out, t)
			}
		}
	}
	return out
}

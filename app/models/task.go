package models

import (
	"strings"
	"time"
)

// Container ids. Every user owns exactly one node of each kind.
const (
	RootID    = "root"
	TrashID   = "trash"
	ArchiveID = "archive"
)

// NoParent is the parent id clients send to mean "the user's root".
const NoParent = "0"

// Property names shared by the store backends and Fields patches.
const (
	PropName             = "name"
	PropMemo             = "memo"
	PropStartDate        = "startDate"
	PropEndDate          = "endDate"
	PropPriority         = "priority"
	PropCheck            = "check"
	PropArchive          = "archive"
	PropDeleteTime       = "deleteTime"
	PropOriginalParentID = "originalParentId"
)

// Task represents a node in a user's forest. Containers are Tasks too.
type Task struct {
	ID               string
	Name             string
	Memo             string
	StartDate        *time.Time
	EndDate          *time.Time
	Priority         *int
	Check            bool
	Archive          bool
	DeleteTime       *time.Time
	OriginalParentID string
	Container        bool
}

// Fields is a property patch. A nil value removes the property.
type Fields map[string]any

// IsReservedID reports whether id names one of the container nodes.
func IsReservedID(id string) bool {
	switch strings.ToLower(strings.TrimSpace(id)) {
	case RootID, TrashID, ArchiveID:
		return true
	}
	return false
}

// IsContainerID reports whether id is exactly one of the container ids.
func IsContainerID(id string) bool {
	return id == RootID || id == TrashID || id == ArchiveID
}

// TimeValue converts an optional time into a Fields value.
func TimeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// IntValue converts an optional int into a Fields value.
func IntValue(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

// IDs returns the ids of tasks in order.
func IDs(tasks []Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

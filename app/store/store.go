// Package store defines the graph primitives the task service composes into
// structural operations.
//
// A Store holds one forest per owner. Every forest has three container nodes
// (models.RootID, models.TrashID, models.ArchiveID) created by Provision.
// Task ids are resolved inside the owner's forest only.
//
// Primitives carry no policy. They do not keep a child down to one parent
// edge; the caller is expected to delete the old edge before creating a new
// one. Atomicity comes from ExecuteWrite: everything issued through the Tx
// handed to fn is applied together or not at all.
package store

import (
	"context"

	"taskforest/app/models"
)

// Store is implemented by memstore and neo4jstore.
type Store interface {
	// Provision creates the owner and its three containers. It is idempotent.
	Provision(ctx context.Context, owner string) error

	// ExecuteRead runs fn against a consistent view of the owner's forest.
	ExecuteRead(ctx context.Context, owner string, fn func(tx Tx) error) error

	// ExecuteWrite runs fn as one atomic unit. fn may be invoked more than once
	// when the backend retries a transient failure.
	ExecuteWrite(ctx context.Context, owner string, fn func(tx Tx) error) error

	Close(ctx context.Context) error
}

// Tx exposes the primitives of one transaction.
//
// Lookups of an id that does not resolve return an errors.ErrCodeNotFound
// error, except Parent which returns (nil, nil) for a node without a parent.
type Tx interface {
	Get(ctx context.Context, id string) (*models.Task, error)

	// Parent returns an errors.ErrCodeIntegrity error when the node has more
	// than one parent edge.
	Parent(ctx context.Context, id string) (*models.Task, error)

	// Children returns direct children in no particular order.
	Children(ctx context.Context, id string) ([]models.Task, error)

	// Descendants returns the transitive closure below id, excluding id.
	Descendants(ctx context.Context, id string) ([]models.Task, error)

	// PathToRoot returns the ancestors of id, nearest first, excluding the
	// owning container. When several paths exist the longest is returned.
	PathToRoot(ctx context.Context, id string) ([]models.Task, error)

	// ContainerOf returns the id of the container id is reachable from, or ""
	// when it is detached. A container is its own container.
	ContainerOf(ctx context.Context, id string) (string, error)

	// IsAncestor reports whether ancestor lies strictly above id.
	IsAncestor(ctx context.Context, ancestor, id string) (bool, error)

	CreateNode(ctx context.Context, task models.Task) (*models.Task, error)
	UpdateFields(ctx context.Context, id string, fields models.Fields) (*models.Task, error)

	// StampAll applies fields to every id and returns how many nodes matched.
	StampAll(ctx context.Context, ids []string, fields models.Fields) (int, error)

	// DeleteNode detaches and removes one node. Containers cannot be removed.
	DeleteNode(ctx context.Context, id string) error

	// DeleteNodes detaches and removes every id and returns how many were
	// removed. Unknown ids and containers are skipped.
	DeleteNodes(ctx context.Context, ids []string) (int, error)

	CreateEdge(ctx context.Context, parent, child string) error
	DeleteEdge(ctx context.Context, parent, child string) error
}

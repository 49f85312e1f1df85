package domain

import "context"

//go:generate mockgen -destination=../mocks/host_mock.go -package=mocks . Host

// Host defines the four REST operations the crawler needs from a
// code-hosting service
type Host interface {
	// Kind returns the REST dialect of the host
	Kind() HostKind
	// ListBranches returns every branch name of the project
	ListBranches(ctx context.Context) ([]string, error)
	// CommitExists reports whether sha names a commit of the project
	CommitExists(ctx context.Context, sha string) (bool, error)
	// ListTree lists the direct children of dir at ref
	ListTree(ctx context.Context, dir string, ref ReferenceSpec) ([]TreeEntry, error)
	// FetchFile downloads the raw file at path. Bodies larger than limit are
	// drained and reported by size only.
	FetchFile(ctx context.Context, path string, ref ReferenceSpec, limit int64) (*FileContent, error)
}

package migration

import (
	"context"

	"github.com/temirov/glmigrate/internal/gitlab"
	"github.com/temirov/glmigrate/internal/registry"
)

// SourceAPI is the read surface a run needs from the source instance.
type SourceAPI interface {
	TestConnection(executionContext context.Context) error
	ListUsers(executionContext context.Context) ([]gitlab.User, error)
	ListGroups(executionContext context.Context) ([]gitlab.Group, error)
	ListProjects(executionContext context.Context) ([]gitlab.Project, error)
	ListMembers(executionContext context.Context, collection gitlab.MemberCollection, ownerID int64) ([]gitlab.Member, error)
}

// DestinationAPI is the read and write surface a run needs from the
// destination instance.
type DestinationAPI interface {
	TestConnection(executionContext context.Context) error
	CurrentUser(executionContext context.Context) (gitlab.User, error)
	GetUser(executionContext context.Context, userID int64) (gitlab.User, error)
	GetProject(executionContext context.Context, projectID int64) (gitlab.Project, error)
	SearchUsersByEmail(executionContext context.Context, emailAddress string) ([]gitlab.User, error)
	SearchUsersByUsername(executionContext context.Context, username string) ([]gitlab.User, error)
	CreateUser(executionContext context.Context, request gitlab.CreateUserRequest) (gitlab.User, error)
	GetGroupByFullPath(executionContext context.Context, fullPath string) (gitlab.Group, error)
	CreateGroup(executionContext context.Context, request gitlab.CreateGroupRequest) (gitlab.Group, error)
	GetProjectByPath(executionContext context.Context, pathWithNamespace string) (gitlab.Project, error)
	CreateProject(executionContext context.Context, request gitlab.CreateProjectRequest) (gitlab.Project, error)
	GetNamespaceByPath(executionContext context.Context, namespacePath string) (gitlab.Namespace, error)
	FindMember(executionContext context.Context, collection gitlab.MemberCollection, ownerID int64, userID int64) (gitlab.Member, error)
	AddMember(executionContext context.Context, collection gitlab.MemberCollection, ownerID int64, request gitlab.AddMemberRequest) (gitlab.Member, error)
	UpdateMemberAccess(executionContext context.Context, collection gitlab.MemberCollection, ownerID int64, userID int64, accessLevel int) (gitlab.Member, error)
}

// Strategy encapsulates existence checks, creation, conflict handling, and
// sub-resource migration for one entity kind. MigrateOne never panics through
// to the caller and converts every failure into a failed Result.
type Strategy[Entity any] interface {
	Kind() registry.EntityKind
	EntityIdentifier(entity Entity) string
	ValidatePrerequisites(executionContext context.Context) error
	MigrateOne(executionContext context.Context, entity Entity) Result
}

package migration_test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/temirov/glmigrate/internal/gitlab"
)

// sourceStub fakes the source instance with canned entity lists.
type sourceStub struct {
	users           []gitlab.User
	groups          []gitlab.Group
	projects        []gitlab.Project
	membersByOwner  map[string][]gitlab.Member
	connectionError error
	listUsersError  error
}

func ownerKey(collection gitlab.MemberCollection, ownerID int64) string {
	return fmt.Sprintf("%s/%d", collection, ownerID)
}

func (stub *sourceStub) TestConnection(executionContext context.Context) error {
	return stub.connectionError
}

func (stub *sourceStub) ListUsers(executionContext context.Context) ([]gitlab.User, error) {
	return stub.users, stub.listUsersError
}

func (stub *sourceStub) ListGroups(executionContext context.Context) ([]gitlab.Group, error) {
	return stub.groups, nil
}

func (stub *sourceStub) ListProjects(executionContext context.Context) ([]gitlab.Project, error) {
	return stub.projects, nil
}

func (stub *sourceStub) ListMembers(executionContext context.Context, collection gitlab.MemberCollection, ownerID int64) ([]gitlab.Member, error) {
	return stub.membersByOwner[ownerKey(collection, ownerID)], nil
}

// destinationStub fakes the destination instance with overridable behavior
// per endpoint. Unset hooks report not found or succeed with zero values.
type destinationStub struct {
	testConnectionFunc     func(executionContext context.Context) error
	currentUserFunc        func(executionContext context.Context) (gitlab.User, error)
	getUserFunc            func(executionContext context.Context, userID int64) (gitlab.User, error)
	getProjectFunc         func(executionContext context.Context, projectID int64) (gitlab.Project, error)
	searchUsersByEmailFunc func(executionContext context.Context, emailAddress string) ([]gitlab.User, error)
	searchUsersByNameFunc  func(executionContext context.Context, username string) ([]gitlab.User, error)
	createUserFunc         func(executionContext context.Context, request gitlab.CreateUserRequest) (gitlab.User, error)
	getGroupByFullPathFunc func(executionContext context.Context, fullPath string) (gitlab.Group, error)
	createGroupFunc        func(executionContext context.Context, request gitlab.CreateGroupRequest) (gitlab.Group, error)
	getProjectByPathFunc   func(executionContext context.Context, pathWithNamespace string) (gitlab.Project, error)
	createProjectFunc      func(executionContext context.Context, request gitlab.CreateProjectRequest) (gitlab.Project, error)
	getNamespaceByPathFunc func(executionContext context.Context, namespacePath string) (gitlab.Namespace, error)
	findMemberFunc         func(executionContext context.Context, collection gitlab.MemberCollection, ownerID int64, userID int64) (gitlab.Member, error)
	addMemberFunc          func(executionContext context.Context, collection gitlab.MemberCollection, ownerID int64, request gitlab.AddMemberRequest) (gitlab.Member, error)
	updateMemberFunc       func(executionContext context.Context, collection gitlab.MemberCollection, ownerID int64, userID int64, accessLevel int) (gitlab.Member, error)
}

func notFoundFailure() *gitlab.APIError {
	return &gitlab.APIError{StatusCode: http.StatusNotFound, Message: "404 Not found"}
}

func (stub *destinationStub) TestConnection(executionContext context.Context) error {
	if stub.testConnectionFunc != nil {
		return stub.testConnectionFunc(executionContext)
	}
	return nil
}

func (stub *destinationStub) CurrentUser(executionContext context.Context) (gitlab.User, error) {
	if stub.currentUserFunc != nil {
		return stub.currentUserFunc(executionContext)
	}
	return gitlab.User{ID: 1, Username: "admin"}, nil
}

func (stub *destinationStub) GetUser(executionContext context.Context, userID int64) (gitlab.User, error) {
	if stub.getUserFunc != nil {
		return stub.getUserFunc(executionContext, userID)
	}
	return gitlab.User{}, notFoundFailure()
}

func (stub *destinationStub) GetProject(executionContext context.Context, projectID int64) (gitlab.Project, error) {
	if stub.getProjectFunc != nil {
		return stub.getProjectFunc(executionContext, projectID)
	}
	return gitlab.Project{}, notFoundFailure()
}

func (stub *destinationStub) SearchUsersByEmail(executionContext context.Context, emailAddress string) ([]gitlab.User, error) {
	if stub.searchUsersByEmailFunc != nil {
		return stub.searchUsersByEmailFunc(executionContext, emailAddress)
	}
	return nil, nil
}

func (stub *destinationStub) SearchUsersByUsername(executionContext context.Context, username string) ([]gitlab.User, error) {
	if stub.searchUsersByNameFunc != nil {
		return stub.searchUsersByNameFunc(executionContext, username)
	}
	return nil, nil
}

func (stub *destinationStub) CreateUser(executionContext context.Context, request gitlab.CreateUserRequest) (gitlab.User, error) {
	if stub.createUserFunc != nil {
		return stub.createUserFunc(executionContext, request)
	}
	return gitlab.User{ID: 1000, Username: request.Username, Email: request.Email}, nil
}

func (stub *destinationStub) GetGroupByFullPath(executionContext context.Context, fullPath string) (gitlab.Group, error) {
	if stub.getGroupByFullPathFunc != nil {
		return stub.getGroupByFullPathFunc(executionContext, fullPath)
	}
	return gitlab.Group{}, notFoundFailure()
}

func (stub *destinationStub) CreateGroup(executionContext context.Context, request gitlab.CreateGroupRequest) (gitlab.Group, error) {
	if stub.createGroupFunc != nil {
		return stub.createGroupFunc(executionContext, request)
	}
	return gitlab.Group{ID: 2000, Name: request.Name, Path: request.Path, FullPath: request.Path}, nil
}

func (stub *destinationStub) GetProjectByPath(executionContext context.Context, pathWithNamespace string) (gitlab.Project, error) {
	if stub.getProjectByPathFunc != nil {
		return stub.getProjectByPathFunc(executionContext, pathWithNamespace)
	}
	return gitlab.Project{}, notFoundFailure()
}

func (stub *destinationStub) CreateProject(executionContext context.Context, request gitlab.CreateProjectRequest) (gitlab.Project, error) {
	if stub.createProjectFunc != nil {
		return stub.createProjectFunc(executionContext, request)
	}
	return gitlab.Project{ID: 3000, Name: request.Name, Path: request.Path, PathWithNamespace: request.Path}, nil
}

func (stub *destinationStub) GetNamespaceByPath(executionContext context.Context, namespacePath string) (gitlab.Namespace, error) {
	if stub.getNamespaceByPathFunc != nil {
		return stub.getNamespaceByPathFunc(executionContext, namespacePath)
	}
	return gitlab.Namespace{}, notFoundFailure()
}

func (stub *destinationStub) FindMember(executionContext context.Context, collection gitlab.MemberCollection, ownerID int64, userID int64) (gitlab.Member, error) {
	if stub.findMemberFunc != nil {
		return stub.findMemberFunc(executionContext, collection, ownerID, userID)
	}
	return gitlab.Member{}, notFoundFailure()
}

func (stub *destinationStub) AddMember(executionContext context.Context, collection gitlab.MemberCollection, ownerID int64, request gitlab.AddMemberRequest) (gitlab.Member, error) {
	if stub.addMemberFunc != nil {
		return stub.addMemberFunc(executionContext, collection, ownerID, request)
	}
	return gitlab.Member{ID: request.UserID, AccessLevel: request.AccessLevel}, nil
}

func (stub *destinationStub) UpdateMemberAccess(executionContext context.Context, collection gitlab.MemberCollection, ownerID int64, userID int64, accessLevel int) (gitlab.Member, error) {
	if stub.updateMemberFunc != nil {
		return stub.updateMemberFunc(executionContext, collection, ownerID, userID, accessLevel)
	}
	return gitlab.Member{ID: userID, AccessLevel: accessLevel}, nil
}

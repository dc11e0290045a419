package gitlab

// Access levels used when provisioning memberships.
const (
	AccessLevelGuest      = 10
	AccessLevelReporter   = 20
	AccessLevelDeveloper  = 30
	AccessLevelMaintainer = 40
	AccessLevelOwner      = 50
)

// Visibility values accepted by group and project creation endpoints.
const (
	VisibilityPrivate  = "private"
	VisibilityInternal = "internal"
	VisibilityPublic   = "public"
)

// Namespace kinds reported by the projects endpoint.
const (
	NamespaceKindUser  = "user"
	NamespaceKindGroup = "group"
)

// MemberCollection selects the endpoint family used for membership operations.
type MemberCollection string

// Supported membership collections.
const (
	GroupMembers   MemberCollection = "groups"
	ProjectMembers MemberCollection = "projects"
)

// User describes a GitLab account.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	State     string `json:"state"`
	Bot       bool   `json:"bot"`
	AvatarURL string `json:"avatar_url,omitempty"`
	WebURL    string `json:"web_url,omitempty"`
	IsAdmin   bool   `json:"is_admin,omitempty"`
}

// Group describes a GitLab group.
type Group struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	FullPath    string `json:"full_path"`
	Description string `json:"description,omitempty"`
	Visibility  string `json:"visibility"`
	ParentID    int64  `json:"parent_id,omitempty"`
	WebURL      string `json:"web_url,omitempty"`
}

// Namespace identifies the owner of a project.
type Namespace struct {
	ID       int64  `json:"id"`
	Kind     string `json:"kind"`
	Path     string `json:"path"`
	FullPath string `json:"full_path"`
}

// Project describes a GitLab project together with its repository attributes.
type Project struct {
	ID                int64              `json:"id"`
	Name              string             `json:"name"`
	Path              string             `json:"path"`
	PathWithNamespace string             `json:"path_with_namespace"`
	Description       string             `json:"description,omitempty"`
	Visibility        string             `json:"visibility"`
	Namespace         Namespace          `json:"namespace"`
	DefaultBranch     string             `json:"default_branch,omitempty"`
	HTTPURLToRepo     string             `json:"http_url_to_repo,omitempty"`
	SSHURLToRepo      string             `json:"ssh_url_to_repo,omitempty"`
	EmptyRepo         bool               `json:"empty_repo"`
	Archived          bool               `json:"archived"`
	LFSEnabled        bool               `json:"lfs_enabled"`
	Statistics        *ProjectStatistics `json:"statistics,omitempty"`
}

// ProjectStatistics carries size counters returned when statistics are requested.
type ProjectStatistics struct {
	RepositorySizeBytes int64 `json:"repository_size"`
	LFSObjectsSizeBytes int64 `json:"lfs_objects_size"`
}

// Member describes a user's membership in a group or project.
type Member struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	State       string `json:"state"`
	AccessLevel int    `json:"access_level"`
}

// CreateUserRequest carries the payload for user provisioning.
type CreateUserRequest struct {
	Email               string `json:"email"`
	Username            string `json:"username"`
	Name                string `json:"name"`
	Password            string `json:"password,omitempty"`
	ForceRandomPassword bool   `json:"force_random_password,omitempty"`
	SkipConfirmation    bool   `json:"skip_confirmation,omitempty"`
	Admin               bool   `json:"admin,omitempty"`
}

// CreateGroupRequest carries the payload for group provisioning.
type CreateGroupRequest struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`
	Visibility  string `json:"visibility,omitempty"`
	ParentID    int64  `json:"parent_id,omitempty"`
}

// CreateProjectRequest carries the payload for project provisioning.
type CreateProjectRequest struct {
	Name                 string `json:"name"`
	Path                 string `json:"path"`
	Description          string `json:"description,omitempty"`
	Visibility           string `json:"visibility,omitempty"`
	NamespaceID          int64  `json:"namespace_id,omitempty"`
	DefaultBranch        string `json:"default_branch,omitempty"`
	LFSEnabled           bool   `json:"lfs_enabled,omitempty"`
	InitializeWithReadme bool   `json:"initialize_with_readme,omitempty"`
}

// AddMemberRequest carries the payload for membership provisioning.
type AddMemberRequest struct {
	UserID      int64 `json:"user_id"`
	AccessLevel int   `json:"access_level"`
}

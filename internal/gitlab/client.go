package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/juju/ratelimit"
	"go.uber.org/zap"
)

const (
	apiPathPrefixConstant                = "/api/v4"
	privateTokenHeaderConstant           = "PRIVATE-TOKEN"
	contentTypeHeaderConstant            = "Content-Type"
	jsonContentTypeConstant              = "application/json"
	nextPageHeaderConstant               = "X-Next-Page"
	perPageQueryParameterConstant        = "per_page"
	pageQueryParameterConstant           = "page"
	defaultPageSizeConstant              = 100
	defaultRequestsPerSecondConstant     = 10.0
	defaultBurstCapacityConstant         = 10
	defaultTransportRetriesConstant      = 3
	defaultRequestTimeoutConstant        = 60 * time.Second
	requestBuildFailureTemplateConstant  = "build %s request for %s: %w"
	requestSendFailureTemplateConstant   = "send %s request to %s: %w"
	responseDecodeFailureTemplate        = "decode response from %s: %w"
	currentUserPathConstant              = "/user"
	versionPathConstant                  = "/version"
	usersPathConstant                    = "/users"
	groupsPathConstant                   = "/groups"
	projectsPathConstant                 = "/projects"
	userPathTemplateConstant             = "/users/%d"
	namespacePathTemplateConstant        = "/namespaces/%s"
	groupPathTemplateConstant            = "/groups/%s"
	projectPathTemplateConstant          = "/projects/%s"
	membersPathTemplateConstant          = "/%s/%d/members"
	allMembersPathTemplateConstant       = "/%s/%d/members/all/%d"
	memberPathTemplateConstant           = "/%s/%d/members/%d"
	usernameQueryParameterConstant       = "username"
	searchQueryParameterConstant         = "search"
	statisticsQueryParameterConstant     = "statistics"
	accessLevelFormParameterConstant     = "access_level"
	clientReadyMessageConstant           = "GitLab client configured"
	logFieldBaseURLConstant              = "base_url"
	logFieldRequestsPerSecondConstant    = "requests_per_second"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL           string
	Token             string
	RequestsPerSecond float64
	BurstCapacity     int64
	TransportRetries  int
	RequestTimeout    time.Duration
	Logger            *zap.Logger
}

// Client issues authenticated requests against one GitLab instance.
type Client struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	rateLimiter *ratelimit.Bucket
	logger      *zap.Logger
}

// NewClient validates the options and constructs a Client. Transport level
// retries and rate limiting are applied to every request the client sends.
func NewClient(options ClientOptions) (*Client, error) {
	trimmedBaseURL := strings.TrimRight(strings.TrimSpace(options.BaseURL), "/")
	if len(trimmedBaseURL) == 0 {
		return nil, ErrBaseURLNotConfigured
	}
	if len(strings.TrimSpace(options.Token)) == 0 {
		return nil, ErrTokenNotConfigured
	}

	requestsPerSecond := options.RequestsPerSecond
	if requestsPerSecond <= 0 {
		requestsPerSecond = defaultRequestsPerSecondConstant
	}
	burstCapacity := options.BurstCapacity
	if burstCapacity <= 0 {
		burstCapacity = defaultBurstCapacityConstant
	}
	transportRetries := options.TransportRetries
	if transportRetries <= 0 {
		transportRetries = defaultTransportRetriesConstant
	}
	requestTimeout := options.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeoutConstant
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	retryableClient := retryablehttp.NewClient()
	retryableClient.RetryMax = transportRetries
	retryableClient.HTTPClient.Timeout = requestTimeout
	retryableClient.Logger = nil

	clientInstance := &Client{
		baseURL:     trimmedBaseURL + apiPathPrefixConstant,
		token:       strings.TrimSpace(options.Token),
		httpClient:  retryableClient.StandardClient(),
		rateLimiter: ratelimit.NewBucketWithRate(requestsPerSecond, burstCapacity),
		logger:      logger,
	}

	logger.Debug(
		clientReadyMessageConstant,
		zap.String(logFieldBaseURLConstant, trimmedBaseURL),
		zap.Float64(logFieldRequestsPerSecondConstant, requestsPerSecond),
	)

	return clientInstance, nil
}

// BaseURL returns the instance base URL including the API prefix.
func (client *Client) BaseURL() string {
	return client.baseURL
}

func (client *Client) do(executionContext context.Context, method string, requestPath string, queryValues url.Values, payload any, target any) (*http.Response, error) {
	client.rateLimiter.Wait(1)

	requestURL := client.baseURL + requestPath
	if len(queryValues) > 0 {
		requestURL = requestURL + "?" + queryValues.Encode()
	}

	var requestBody io.Reader
	if payload != nil {
		encodedPayload, marshalError := json.Marshal(payload)
		if marshalError != nil {
			return nil, fmt.Errorf(requestBuildFailureTemplateConstant, method, requestPath, marshalError)
		}
		requestBody = bytes.NewReader(encodedPayload)
	}

	httpRequest, requestError := http.NewRequestWithContext(executionContext, method, requestURL, requestBody)
	if requestError != nil {
		return nil, fmt.Errorf(requestBuildFailureTemplateConstant, method, requestPath, requestError)
	}
	httpRequest.Header.Set(privateTokenHeaderConstant, client.token)
	if payload != nil {
		httpRequest.Header.Set(contentTypeHeaderConstant, jsonContentTypeConstant)
	}

	httpResponse, sendError := client.httpClient.Do(httpRequest)
	if sendError != nil {
		return nil, fmt.Errorf(requestSendFailureTemplateConstant, method, requestPath, sendError)
	}
	defer func() {
		_ = httpResponse.Body.Close()
	}()

	responseBody, readError := io.ReadAll(httpResponse.Body)
	if readError != nil {
		return nil, fmt.Errorf(responseDecodeFailureTemplate, requestPath, readError)
	}

	if httpResponse.StatusCode < http.StatusOK || httpResponse.StatusCode >= http.StatusMultipleChoices {
		return httpResponse, parseAPIError(httpResponse.StatusCode, responseBody)
	}

	if target != nil && len(responseBody) > 0 {
		if unmarshalError := json.Unmarshal(responseBody, target); unmarshalError != nil {
			return httpResponse, fmt.Errorf(responseDecodeFailureTemplate, requestPath, unmarshalError)
		}
	}

	return httpResponse, nil
}

// ListAll walks every page of a collection endpoint and returns the combined
// items. Pagination follows the X-Next-Page response header.
func ListAll[Entity any](executionContext context.Context, client *Client, requestPath string, queryValues url.Values) ([]Entity, error) {
	if queryValues == nil {
		queryValues = url.Values{}
	}
	queryValues.Set(perPageQueryParameterConstant, strconv.Itoa(defaultPageSizeConstant))

	collectedEntities := []Entity{}
	currentPage := 1
	for {
		queryValues.Set(pageQueryParameterConstant, strconv.Itoa(currentPage))

		pageEntities := []Entity{}
		httpResponse, requestError := client.do(executionContext, http.MethodGet, requestPath, queryValues, nil, &pageEntities)
		if requestError != nil {
			return nil, requestError
		}

		collectedEntities = append(collectedEntities, pageEntities...)

		nextPageHeader := strings.TrimSpace(httpResponse.Header.Get(nextPageHeaderConstant))
		if len(nextPageHeader) == 0 {
			break
		}
		nextPage, parseError := strconv.Atoi(nextPageHeader)
		if parseError != nil || nextPage <= currentPage {
			break
		}
		currentPage = nextPage
	}

	return collectedEntities, nil
}

// TestConnection verifies credentials by requesting the instance version.
func (client *Client) TestConnection(executionContext context.Context) error {
	_, requestError := client.do(executionContext, http.MethodGet, versionPathConstant, nil, nil, nil)
	return requestError
}

// CurrentUser returns the account associated with the configured token.
func (client *Client) CurrentUser(executionContext context.Context) (User, error) {
	currentUser := User{}
	_, requestError := client.do(executionContext, http.MethodGet, currentUserPathConstant, nil, nil, &currentUser)
	return currentUser, requestError
}

// ListUsers returns every user on the instance.
func (client *Client) ListUsers(executionContext context.Context) ([]User, error) {
	return ListAll[User](executionContext, client, usersPathConstant, nil)
}

// GetUser returns one user by identifier.
func (client *Client) GetUser(executionContext context.Context, userID int64) (User, error) {
	requestedUser := User{}
	_, requestError := client.do(executionContext, http.MethodGet, fmt.Sprintf(userPathTemplateConstant, userID), nil, nil, &requestedUser)
	return requestedUser, requestError
}

// SearchUsersByUsername returns users whose username matches exactly.
func (client *Client) SearchUsersByUsername(executionContext context.Context, username string) ([]User, error) {
	queryValues := url.Values{}
	queryValues.Set(usernameQueryParameterConstant, username)
	return ListAll[User](executionContext, client, usersPathConstant, queryValues)
}

// SearchUsersByEmail returns users matching an email search term.
func (client *Client) SearchUsersByEmail(executionContext context.Context, emailAddress string) ([]User, error) {
	queryValues := url.Values{}
	queryValues.Set(searchQueryParameterConstant, emailAddress)
	return ListAll[User](executionContext, client, usersPathConstant, queryValues)
}

// CreateUser provisions a user account.
func (client *Client) CreateUser(executionContext context.Context, request CreateUserRequest) (User, error) {
	createdUser := User{}
	_, requestError := client.do(executionContext, http.MethodPost, usersPathConstant, nil, request, &createdUser)
	return createdUser, requestError
}

// GetNamespaceByPath returns the namespace addressed by a path. User
// namespaces share the owning user's username as their path.
func (client *Client) GetNamespaceByPath(executionContext context.Context, namespacePath string) (Namespace, error) {
	requestedNamespace := Namespace{}
	encodedPath := url.PathEscape(namespacePath)
	_, requestError := client.do(executionContext, http.MethodGet, fmt.Sprintf(namespacePathTemplateConstant, encodedPath), nil, nil, &requestedNamespace)
	return requestedNamespace, requestError
}

// ListGroups returns every group visible to the token.
func (client *Client) ListGroups(executionContext context.Context) ([]Group, error) {
	return ListAll[Group](executionContext, client, groupsPathConstant, nil)
}

// GetGroupByFullPath returns one group addressed by its full path.
func (client *Client) GetGroupByFullPath(executionContext context.Context, fullPath string) (Group, error) {
	requestedGroup := Group{}
	encodedPath := url.PathEscape(fullPath)
	_, requestError := client.do(executionContext, http.MethodGet, fmt.Sprintf(groupPathTemplateConstant, encodedPath), nil, nil, &requestedGroup)
	return requestedGroup, requestError
}

// CreateGroup provisions a group.
func (client *Client) CreateGroup(executionContext context.Context, request CreateGroupRequest) (Group, error) {
	createdGroup := Group{}
	_, requestError := client.do(executionContext, http.MethodPost, groupsPathConstant, nil, request, &createdGroup)
	return createdGroup, requestError
}

// ListProjects returns every project visible to the token including size
// statistics.
func (client *Client) ListProjects(executionContext context.Context) ([]Project, error) {
	queryValues := url.Values{}
	queryValues.Set(statisticsQueryParameterConstant, "true")
	return ListAll[Project](executionContext, client, projectsPathConstant, queryValues)
}

// GetProject returns one project by identifier.
func (client *Client) GetProject(executionContext context.Context, projectID int64) (Project, error) {
	requestedProject := Project{}
	_, requestError := client.do(executionContext, http.MethodGet, fmt.Sprintf(projectPathTemplateConstant, strconv.FormatInt(projectID, 10)), nil, nil, &requestedProject)
	return requestedProject, requestError
}

// GetProjectByPath returns one project addressed by its namespaced path.
func (client *Client) GetProjectByPath(executionContext context.Context, pathWithNamespace string) (Project, error) {
	requestedProject := Project{}
	encodedPath := url.PathEscape(pathWithNamespace)
	_, requestError := client.do(executionContext, http.MethodGet, fmt.Sprintf(projectPathTemplateConstant, encodedPath), nil, nil, &requestedProject)
	return requestedProject, requestError
}

// CreateProject provisions a project.
func (client *Client) CreateProject(executionContext context.Context, request CreateProjectRequest) (Project, error) {
	createdProject := Project{}
	_, requestError := client.do(executionContext, http.MethodPost, projectsPathConstant, nil, request, &createdProject)
	return createdProject, requestError
}

// ListMembers returns the direct members of a group or project.
func (client *Client) ListMembers(executionContext context.Context, collection MemberCollection, ownerID int64) ([]Member, error) {
	requestPath := fmt.Sprintf(membersPathTemplateConstant, collection, ownerID)
	return ListAll[Member](executionContext, client, requestPath, nil)
}

// FindMember returns a user's effective membership, including memberships
// inherited from ancestor groups. A 404 response is reported through an
// APIError whose IsNotFound method returns true.
func (client *Client) FindMember(executionContext context.Context, collection MemberCollection, ownerID int64, userID int64) (Member, error) {
	foundMember := Member{}
	requestPath := fmt.Sprintf(allMembersPathTemplateConstant, collection, ownerID, userID)
	_, requestError := client.do(executionContext, http.MethodGet, requestPath, nil, nil, &foundMember)
	return foundMember, requestError
}

// AddMember grants a user direct membership with the requested access level.
func (client *Client) AddMember(executionContext context.Context, collection MemberCollection, ownerID int64, request AddMemberRequest) (Member, error) {
	addedMember := Member{}
	requestPath := fmt.Sprintf(membersPathTemplateConstant, collection, ownerID)
	_, requestError := client.do(executionContext, http.MethodPost, requestPath, nil, request, &addedMember)
	return addedMember, requestError
}

// UpdateMemberAccess raises or lowers an existing direct member's access level.
func (client *Client) UpdateMemberAccess(executionContext context.Context, collection MemberCollection, ownerID int64, userID int64, accessLevel int) (Member, error) {
	updatedMember := Member{}
	requestPath := fmt.Sprintf(memberPathTemplateConstant, collection, ownerID, userID)
	queryValues := url.Values{}
	queryValues.Set(accessLevelFormParameterConstant, strconv.Itoa(accessLevel))
	_, requestError := client.do(executionContext, http.MethodPut, requestPath, queryValues, nil, &updatedMember)
	return updatedMember, requestError
}

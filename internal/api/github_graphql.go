package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gh2csv/gh2csv/internal/models"
)

// GraphQLClient fetches records through the GitHub GraphQL API. It returns
// the same raw records as the REST client, so targets can switch between the
// two without touching the rest of the pipeline.
type GraphQLClient struct {
	client *githubv4.Client
}

// NewGraphQLClient creates a new GraphQL client. The GraphQL API always
// requires a token.
func NewGraphQLClient(token string) *GraphQLClient {
	src := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	httpClient := oauth2.NewClient(context.Background(), src)
	return &GraphQLClient{client: githubv4.NewClient(httpClient)}
}

// labelNode represents a label in GraphQL.
type labelNode struct {
	DatabaseID githubv4.Int    `graphql:"databaseId"`
	Name       githubv4.String `graphql:"name"`
	Color      githubv4.String `graphql:"color"`
}

// recordNode holds the fields shared by issues and pull requests in GraphQL.
type recordNode struct {
	DatabaseID githubv4.Int    `graphql:"databaseId"`
	Number     githubv4.Int    `graphql:"number"`
	Title      githubv4.String `graphql:"title"`
	Body       githubv4.String `graphql:"body"`
	State      githubv4.String `graphql:"state"`
	URL        githubv4.String `graphql:"url"`
	Author     struct {
		Login githubv4.String
	} `graphql:"author"`
	Comments struct {
		TotalCount githubv4.Int
	} `graphql:"comments"`
	Milestone *struct {
		Title githubv4.String
	} `graphql:"milestone"`
	CreatedAt githubv4.DateTime  `graphql:"createdAt"`
	UpdatedAt githubv4.DateTime  `graphql:"updatedAt"`
	ClosedAt  *githubv4.DateTime `graphql:"closedAt"`
	Labels    struct {
		Nodes []labelNode
	} `graphql:"labels(first: 50)"`
}

type pageInfo struct {
	EndCursor   githubv4.String
	HasNextPage githubv4.Boolean
}

// FetchRecords fetches every page of the repository's issues or pull
// requests, constrained by state when one is given.
func (c *GraphQLClient) FetchRecords(ctx context.Context, owner, repo, feature, state string) ([]*models.RawRecord, error) {
	switch feature {
	case FeatureIssues:
		return c.fetchIssues(ctx, owner, repo, state)
	case FeaturePulls:
		return c.fetchPulls(ctx, owner, repo, state)
	}
	return nil, fmt.Errorf("unsupported feature %q", feature)
}

func (c *GraphQLClient) fetchIssues(ctx context.Context, owner, repo, state string) ([]*models.RawRecord, error) {
	var records []*models.RawRecord
	var cursor *githubv4.String

	for {
		var query struct {
			Repository struct {
				Issues struct {
					Nodes    []recordNode
					PageInfo pageInfo
				} `graphql:"issues(first: $perPage, after: $cursor, states: $states)"`
			} `graphql:"repository(owner: $owner, name: $name)"`
		}

		variables := map[string]interface{}{
			"owner":   githubv4.String(owner),
			"name":    githubv4.String(repo),
			"perPage": githubv4.Int(100),
			"cursor":  cursor,
			"states":  issueStates(state),
		}

		if err := c.client.Query(ctx, &query, variables); err != nil {
			return nil, &SourceAccessError{
				Repo: fmt.Sprintf("%s/%s", owner, repo),
				Err:  err,
			}
		}

		for i := range query.Repository.Issues.Nodes {
			records = append(records, convertNode(&query.Repository.Issues.Nodes[i]))
		}

		if !bool(query.Repository.Issues.PageInfo.HasNextPage) {
			break
		}
		end := query.Repository.Issues.PageInfo.EndCursor
		cursor = &end
	}

	return records, nil
}

func (c *GraphQLClient) fetchPulls(ctx context.Context, owner, repo, state string) ([]*models.RawRecord, error) {
	var records []*models.RawRecord
	var cursor *githubv4.String

	for {
		var query struct {
			Repository struct {
				PullRequests struct {
					Nodes    []recordNode
					PageInfo pageInfo
				} `graphql:"pullRequests(first: $perPage, after: $cursor, states: $states)"`
			} `graphql:"repository(owner: $owner, name: $name)"`
		}

		variables := map[string]interface{}{
			"owner":   githubv4.String(owner),
			"name":    githubv4.String(repo),
			"perPage": githubv4.Int(100),
			"cursor":  cursor,
			"states":  pullStates(state),
		}

		if err := c.client.Query(ctx, &query, variables); err != nil {
			return nil, &SourceAccessError{
				Repo: fmt.Sprintf("%s/%s", owner, repo),
				Err:  err,
			}
		}

		for i := range query.Repository.PullRequests.Nodes {
			records = append(records, convertNode(&query.Repository.PullRequests.Nodes[i]))
		}

		if !bool(query.Repository.PullRequests.PageInfo.HasNextPage) {
			break
		}
		end := query.Repository.PullRequests.PageInfo.EndCursor
		cursor = &end
	}

	return records, nil
}

// issueStates maps the REST-style state value onto GraphQL issue states. The
// REST API defaults to open records when no state is given, so an empty
// value does the same here. "all" lifts the constraint.
func issueStates(state string) *[]githubv4.IssueState {
	switch strings.ToLower(state) {
	case "", "open":
		return &[]githubv4.IssueState{githubv4.IssueStateOpen}
	case "closed":
		return &[]githubv4.IssueState{githubv4.IssueStateClosed}
	}
	return nil
}

// pullStates maps the REST-style state value onto GraphQL pull request
// states. REST counts merged pull requests as closed, so "closed" covers
// both states here.
func pullStates(state string) *[]githubv4.PullRequestState {
	switch strings.ToLower(state) {
	case "", "open":
		return &[]githubv4.PullRequestState{githubv4.PullRequestStateOpen}
	case "closed":
		return &[]githubv4.PullRequestState{githubv4.PullRequestStateClosed, githubv4.PullRequestStateMerged}
	}
	return nil
}

// convertNode converts a GraphQL record to a raw record. GraphQL reports
// states in upper case; they are lowered to match the REST representation
// the filters and the time-series counters expect.
func convertNode(node *recordNode) *models.RawRecord {
	rec := &models.RawRecord{
		ID:        int64(node.DatabaseID),
		Number:    int(node.Number),
		Title:     string(node.Title),
		Body:      string(node.Body),
		State:     strings.ToLower(string(node.State)),
		User:      string(node.Author.Login),
		URL:       string(node.URL),
		HTMLURL:   string(node.URL),
		Comments:  int(node.Comments.TotalCount),
		CreatedAt: datetimePtr(&node.CreatedAt),
		UpdatedAt: datetimePtr(&node.UpdatedAt),
		ClosedAt:  datetimePtr(node.ClosedAt),
	}
	if node.Milestone != nil {
		rec.Milestone = string(node.Milestone.Title)
	}

	for _, label := range node.Labels.Nodes {
		rec.Labels = append(rec.Labels, models.Label{
			ID:    int64(label.DatabaseID),
			Name:  string(label.Name),
			Color: string(label.Color),
		})
	}

	return rec
}

func datetimePtr(dt *githubv4.DateTime) *time.Time {
	if dt == nil {
		return nil
	}
	t := dt.Time
	return &t
}

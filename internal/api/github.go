package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/gh2csv/gh2csv/internal/models"
)

// Features a target can fetch.
const (
	FeatureIssues = "issues"
	FeaturePulls  = "pulls"
)

// SourceAccessError reports a failed fetch from the data source. Retry policy
// belongs to the caller's scheduler, never to the client itself.
type SourceAccessError struct {
	Repo       string
	StatusCode int
	Err        error
}

func (e *SourceAccessError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("access to %s failed (status %d): %v", e.Repo, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("access to %s failed: %v", e.Repo, e.Err)
}

func (e *SourceAccessError) Unwrap() error { return e.Err }

// Source yields all pages of raw records for one repository feature. The
// state constraint is forwarded verbatim to the provider.
type Source interface {
	FetchRecords(ctx context.Context, owner, repo, feature, state string) ([]*models.RawRecord, error)
}

// GitHubClient fetches records through the GitHub REST API.
type GitHubClient struct {
	client *github.Client
}

// NewGitHubClient creates a new GitHub API client. An empty token yields an
// unauthenticated client, good enough for public repositories.
func NewGitHubClient(token string) *GitHubClient {
	var tc *http.Client

	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc = oauth2.NewClient(context.Background(), ts)
	}

	return &GitHubClient{client: github.NewClient(tc)}
}

// FetchRecords fetches every page of the repository's issues or pull
// requests, constrained by state when one is given.
func (c *GitHubClient) FetchRecords(ctx context.Context, owner, repo, feature, state string) ([]*models.RawRecord, error) {
	switch feature {
	case FeatureIssues:
		return c.fetchIssues(ctx, owner, repo, state)
	case FeaturePulls:
		return c.fetchPulls(ctx, owner, repo, state)
	}
	return nil, fmt.Errorf("unsupported feature %q", feature)
}

func (c *GitHubClient) fetchIssues(ctx context.Context, owner, repo, state string) ([]*models.RawRecord, error) {
	var records []*models.RawRecord
	opts := &github.IssueListByRepoOptions{
		State: state,
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	for {
		issues, resp, err := c.client.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, accessError(owner, repo, resp, err)
		}

		for _, issue := range issues {
			records = append(records, convertIssue(issue))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return records, nil
}

func (c *GitHubClient) fetchPulls(ctx context.Context, owner, repo, state string) ([]*models.RawRecord, error) {
	var records []*models.RawRecord
	opts := &github.PullRequestListOptions{
		State: state,
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	for {
		pulls, resp, err := c.client.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, accessError(owner, repo, resp, err)
		}

		for _, pull := range pulls {
			records = append(records, convertPull(pull))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return records, nil
}

func accessError(owner, repo string, resp *github.Response, err error) error {
	e := &SourceAccessError{
		Repo: fmt.Sprintf("%s/%s", owner, repo),
		Err:  err,
	}
	if resp != nil {
		e.StatusCode = resp.StatusCode
	}
	return e
}

// convertIssue converts a GitHub issue to a raw record.
func convertIssue(issue *github.Issue) *models.RawRecord {
	rec := &models.RawRecord{
		ID:        issue.GetID(),
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		Body:      issue.GetBody(),
		State:     issue.GetState(),
		User:      issue.GetUser().GetLogin(),
		URL:       issue.GetURL(),
		HTMLURL:   issue.GetHTMLURL(),
		Comments:  issue.GetComments(),
		Milestone: issue.GetMilestone().GetTitle(),
		CreatedAt: timestampPtr(issue.CreatedAt),
		UpdatedAt: timestampPtr(issue.UpdatedAt),
		ClosedAt:  timestampPtr(issue.ClosedAt),
	}

	for _, label := range issue.Labels {
		rec.Labels = append(rec.Labels, models.Label{
			ID:    label.GetID(),
			Name:  label.GetName(),
			Color: label.GetColor(),
		})
	}

	return rec
}

// convertPull converts a GitHub pull request to a raw record.
func convertPull(pull *github.PullRequest) *models.RawRecord {
	rec := &models.RawRecord{
		ID:        pull.GetID(),
		Number:    pull.GetNumber(),
		Title:     pull.GetTitle(),
		Body:      pull.GetBody(),
		State:     pull.GetState(),
		User:      pull.GetUser().GetLogin(),
		URL:       pull.GetURL(),
		HTMLURL:   pull.GetHTMLURL(),
		Comments:  pull.GetComments(),
		Milestone: pull.GetMilestone().GetTitle(),
		CreatedAt: timestampPtr(pull.CreatedAt),
		UpdatedAt: timestampPtr(pull.UpdatedAt),
		ClosedAt:  timestampPtr(pull.ClosedAt),
	}

	for _, label := range pull.Labels {
		rec.Labels = append(rec.Labels, models.Label{
			ID:    label.GetID(),
			Name:  label.GetName(),
			Color: label.GetColor(),
		})
	}

	return rec
}

func timestampPtr(ts *github.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time
	return &t
}

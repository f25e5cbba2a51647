package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v68/github"
)

// FileRef addresses one file in a repository. Branch is optional; empty
// means the repository's default branch.
type FileRef struct {
	Owner  string
	Repo   string
	Path   string
	Branch string
}

func (r FileRef) String() string {
	s := r.Owner + "/" + r.Repo + ":" + r.Path
	if r.Branch != "" {
		s += "@" + r.Branch
	}
	return s
}

func (r FileRef) validate() error {
	if strings.TrimSpace(r.Owner) == "" || strings.TrimSpace(r.Repo) == "" {
		return fmt.Errorf("file ref: owner and repo are required")
	}
	if strings.TrimSpace(r.Path) == "" {
		return fmt.Errorf("file ref: path is required")
	}
	return nil
}

// PutResult describes the commit created by PutFile.
type PutResult struct {
	ContentSHA string
	CommitSHA  string
	CommitURL  string
}

// FileSHA returns the blob sha of the file at ref. It returns an empty sha
// and no error when the response carries no sha, including when the path
// resolves to a directory.
func (c *Client) FileSHA(ctx context.Context, ref FileRef) (string, error) {
	if err := ref.validate(); err != nil {
		return "", err
	}
	var opts *github.RepositoryContentGetOptions
	if ref.Branch != "" {
		opts = &github.RepositoryContentGetOptions{Ref: ref.Branch}
	}

	file, _, _, err := c.Client.Repositories.GetContents(ctx, ref.Owner, ref.Repo, ref.Path, opts)
	if err != nil {
		return "", fmt.Errorf("get contents %s: %w", ref, err)
	}
	if file == nil {
		return "", nil
	}
	return file.GetSHA(), nil
}

// PutFile replaces the file at ref with content as a new commit. sha must be
// the current blob sha of the file.
func (c *Client) PutFile(ctx context.Context, ref FileRef, content []byte, message, sha string) (PutResult, error) {
	if err := ref.validate(); err != nil {
		return PutResult{}, err
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
		SHA:     github.Ptr(sha),
	}
	if ref.Branch != "" {
		opts.Branch = github.Ptr(ref.Branch)
	}

	res, _, err := c.Client.Repositories.UpdateFile(ctx, ref.Owner, ref.Repo, ref.Path, opts)
	if err != nil {
		return PutResult{}, fmt.Errorf("update contents %s: %w", ref, err)
	}

	var out PutResult
	if res != nil {
		out.ContentSHA = res.GetContent().GetSHA()
		out.CommitSHA = res.Commit.GetSHA()
		out.CommitURL = res.Commit.GetHTMLURL()
	}
	return out, nil
}

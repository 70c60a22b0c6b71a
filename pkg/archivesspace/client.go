package archivesspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/caltechlibrary/cascflow/pkg/errors"
	"github.com/caltechlibrary/cascflow/pkg/logging"
)

// DefaultRetryCeiling bounds the total time spent retrying one request
// across all backoff attempts
const DefaultRetryCeiling = 30 * time.Minute

// sessionHeader carries the token returned by the login endpoint
const sessionHeader = "X-ArchivesSpace-Session"

// resolveParams are the relations fetched inline with every record
var resolveParams = []string{
	"ancestors",
	"digital_object",
	"linked_agents",
	"repository",
	"subjects",
	"top_container",
}

// Config holds everything needed to open a repository session
type Config struct {
	BaseURL      string
	Username     string
	Password     string
	RepositoryID string

	// Optional basic auth applied in front of the session token,
	// for deployments behind an authenticating proxy
	BasicAuthUsername string
	BasicAuthPassword string

	// HTTPClient overrides the transport, primarily for tests
	HTTPClient *http.Client

	// RetryCeiling bounds total retry time; zero means DefaultRetryCeiling
	RetryCeiling time.Duration
}

// Client is an authenticated session with the ArchivesSpace staff API.
// It is safe to construct once and share for the life of a run; it is
// not safe to reuse across credential changes.
type Client struct {
	baseURL      string
	repositoryID string
	basicUser    string
	basicPass    string
	httpClient   *http.Client
	session      string
	retryCeiling time.Duration
	log          zerolog.Logger
}

// New constructs a Client and authenticates immediately. Authentication
// failure is fatal to the run and is returned as a CONNECTION error.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.BaseURL == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New(errors.ErrConfigInvalid,
			"repository URL, username, and password are required")
	}
	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		repositoryID: cfg.RepositoryID,
		basicUser:    cfg.BasicAuthUsername,
		basicPass:    cfg.BasicAuthPassword,
		httpClient:   cfg.HTTPClient,
		retryCeiling: cfg.RetryCeiling,
		log:          logging.GetLogger("archivesspace"),
	}
	if c.repositoryID == "" {
		c.repositoryID = "2"
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if c.retryCeiling == 0 {
		c.retryCeiling = DefaultRetryCeiling
	}
	if err := c.authorize(ctx, cfg.Username, cfg.Password); err != nil {
		return nil, err
	}
	return c, nil
}

// authorize exchanges credentials for a session token
func (c *Client) authorize(ctx context.Context, username, password string) error {
	query := url.Values{"password": {password}}
	path := fmt.Sprintf("/users/%s/login?%s", url.PathEscape(username), query.Encode())

	resp, err := c.do(ctx, http.MethodPost, path, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrConnection,
			"failed to establish ArchivesSpace connection")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return errors.Newf(errors.ErrConnection,
			"ArchivesSpace login rejected (%d): %s", resp.StatusCode, body)
	}
	var login loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return errors.Wrap(err, errors.ErrConnection, "malformed login response")
	}
	c.session = login.Session
	c.log.Debug().Str("baseURL", c.baseURL).Msg("ArchivesSpace connection established")
	return nil
}

// do issues one request, retrying transport-level failures with
// exponential backoff up to the retry ceiling. A response that arrives,
// whatever its status, is never retried. Once the ceiling is exceeded
// the underlying transport error propagates unmodified.
func (c *Client) do(ctx context.Context, method, pathAndQuery string, body []byte) (*http.Response, error) {
	var resp *http.Response
	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+pathAndQuery, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.session != "" {
			req.Header.Set(sessionHeader, c.session)
		}
		if c.basicUser != "" && c.basicPass != "" {
			req.SetBasicAuth(c.basicUser, c.basicPass)
		}
		r, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Warn().Err(err).
				Str("method", method).
				Str("path", pathAndQuery).
				Int("attempt", attempt).
				Msg("Transient network failure, will retry")
			return err
		}
		resp = r
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.retryCeiling
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}

// getJSON issues a GET and decodes a 200 response into out
func (c *Client) getJSON(ctx context.Context, pathAndQuery string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, pathAndQuery, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return errors.Newf(errors.ErrRequestFailed,
			"GET %s returned %d: %s", pathAndQuery, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, errors.ErrRequestFailed,
			"malformed response from GET %s", pathAndQuery)
	}
	return nil
}

// postJSON posts a payload and returns the decoded result alongside the
// HTTP status, leaving application-error branching to the caller
func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) (*PostResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidInput, "failed to encode payload")
	}
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrRequestFailed,
			"failed reading response from POST %s", path)
	}
	result := &PostResult{StatusCode: resp.StatusCode}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return nil, errors.Newf(errors.ErrRequestFailed,
				"POST %s returned %d with unparseable body: %s", path, resp.StatusCode, raw)
		}
	}
	return result, nil
}

// repoPath prefixes a path with the configured repository
func (c *Client) repoPath(suffix string) string {
	return fmt.Sprintf("/repositories/%s%s", c.repositoryID, suffix)
}

// FindArchivalObjectRefs returns the URIs of every archival object whose
// component id equals componentID. Used where match counts matter but a
// missing record is not an error.
func (c *Client) FindArchivalObjectRefs(ctx context.Context, componentID string) ([]string, error) {
	query := url.Values{"component_id[]": {componentID}}
	var found findArchivalObjectsResponse
	if err := c.getJSON(ctx, c.repoPath("/find_by_id/archival_objects?"+query.Encode()), &found); err != nil {
		return nil, err
	}
	refs := make([]string, 0, len(found.ArchivalObjects))
	for _, r := range found.ArchivalObjects {
		refs = append(refs, r.Ref)
	}
	return refs, nil
}

// FindResourceRefs returns the URIs of every resource whose public
// identifier (id_0, by local policy the sole identifier field) equals
// identifier.
func (c *Client) FindResourceRefs(ctx context.Context, identifier string) ([]string, error) {
	query := url.Values{"identifier[]": {fmt.Sprintf("[%q]", identifier)}}
	var found findResourcesResponse
	if err := c.getJSON(ctx, c.repoPath("/find_by_id/resources?"+query.Encode()), &found); err != nil {
		return nil, err
	}
	refs := make([]string, 0, len(found.Resources))
	for _, r := range found.Resources {
		refs = append(refs, r.Ref)
	}
	return refs, nil
}

// FindArchivalObject resolves a component id to exactly one fully
// resolved archival object. Zero matches is a NOT_FOUND error and more
// than one is a MULTIPLE_MATCHES error; neither is ever silently
// collapsed to a single record. Records are always fetched fresh from
// the repository, never cached across runs.
func (c *Client) FindArchivalObject(ctx context.Context, componentID string) (*ArchivalObject, error) {
	refs, err := c.FindArchivalObjectRefs(ctx, componentID)
	if err != nil {
		return nil, err
	}
	switch {
	case len(refs) < 1:
		return nil, errors.Newf(errors.ErrNotFound,
			"archival object not found: %s", componentID)
	case len(refs) > 1:
		return nil, errors.Newf(errors.ErrMultipleMatches,
			"multiple archival objects found: %s", componentID)
	}

	query := url.Values{"resolve[]": resolveParams}
	var record ArchivalObject
	if err := c.getJSON(ctx, refs[0]+"?"+query.Encode(), &record); err != nil {
		return nil, err
	}
	c.log.Debug().Str("componentID", componentID).Str("uri", record.URI).
		Msg("Archival object found")
	return &record, nil
}

// UpdateDigitalObject posts a digital object back to its own URI.
// Any rejection propagates as a WRITE_REJECTED error.
func (c *Client) UpdateDigitalObject(ctx context.Context, digitalObject *DigitalObject) error {
	result, err := c.postJSON(ctx, digitalObject.URI, digitalObject)
	if err != nil {
		return err
	}
	if result.Error != nil || result.StatusCode >= http.StatusBadRequest {
		return errors.Newf(errors.ErrWriteRejected,
			"digital object update rejected (%d): %v", result.StatusCode, result.Error)
	}
	c.log.Debug().Str("uri", digitalObject.URI).Msg("Digital object updated")
	return nil
}

// UpdateArchivalObject posts an archival object back to its own URI
func (c *Client) UpdateArchivalObject(ctx context.Context, record *ArchivalObject) error {
	result, err := c.postJSON(ctx, record.URI, record)
	if err != nil {
		return err
	}
	if result.Error != nil || result.StatusCode >= http.StatusBadRequest {
		return errors.Newf(errors.ErrWriteRejected,
			"archival object update rejected (%d): %v", result.StatusCode, result.Error)
	}
	c.log.Debug().Str("uri", record.URI).Msg("Archival object updated")
	return nil
}

// CreateDigitalObject posts a new digital object and returns its URI.
// A duplicate digital_object_id surfaces as a WRITE_CONFLICT error so
// callers can branch on "already exists"; any other repository-reported
// error surfaces as WRITE_REJECTED.
func (c *Client) CreateDigitalObject(ctx context.Context, digitalObject *DigitalObject) (string, error) {
	result, err := c.postJSON(ctx, c.repoPath("/digital_objects"), digitalObject)
	if err != nil {
		return "", err
	}
	if result.Error != nil {
		if messages, ok := result.Error["digital_object_id"]; ok {
			for _, message := range messages {
				if message == "Must be unique" {
					return "", errors.Newf(errors.ErrWriteConflict,
						"non-unique digital_object_id: %s", digitalObject.DigitalObjectID)
				}
			}
		}
		return "", errors.Newf(errors.ErrWriteRejected,
			"unexpected error creating digital object: %v", result.Error)
	}
	if result.StatusCode >= http.StatusBadRequest {
		return "", errors.Newf(errors.ErrRequestFailed,
			"digital object create returned %d", result.StatusCode)
	}
	c.log.Info().Str("title", digitalObject.Title).Str("uri", result.URI).
		Msg("Digital object created")
	return result.URI, nil
}

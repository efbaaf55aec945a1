// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/utils"
	"github.com/MKhiriev/go-sync-engine/models"
	"github.com/go-resty/resty/v2"
)

type graphQLEndpoint struct {
	client   *utils.HTTPClient
	path     string
	registry *models.SchemaRegistry

	apiKey string
	token  string

	logger *logger.Logger
}

// NewGraphQLEndpoint constructs a [RemoteEndpoint] that posts GraphQL
// documents to cfg.GraphQLURL. Requests are authenticated with a bearer
// token when cfg.Token is set, otherwise with the x-api-key header.
//
// Returns an error if the URL is empty or cannot be parsed.
func NewGraphQLEndpoint(cfg config.EngineAdapter, registry *models.SchemaRegistry, log *logger.Logger) (RemoteEndpoint, error) {
	baseURL, path, err := splitEndpointURL(cfg.GraphQLURL)
	if err != nil {
		return nil, fmt.Errorf("invalid graphql url: %w", err)
	}

	e := &graphQLEndpoint{
		client:   utils.NewHTTPClient(baseURL, cfg.RequestTimeout),
		path:     path,
		registry: registry,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		token:    strings.TrimSpace(cfg.Token),
		logger:   log,
	}

	if e.token != "" {
		claims, err := utils.ParseTokenClaims(e.token)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("func", "adapter.NewGraphQLEndpoint").Msg("bearer token is not a JWT, sending as is")
		case claims.Expired(time.Now()):
			log.Warn().Str("func", "adapter.NewGraphQLEndpoint").Str("subject", claims.Subject).
				Time("expires_at", claims.ExpiresAt).Msg("bearer token has expired")
		default:
			log.Info().Str("func", "adapter.NewGraphQLEndpoint").Str("subject", claims.Subject).
				Time("expires_at", claims.ExpiresAt).Msg("using bearer token")
		}
	}

	return e, nil
}

func normalizeBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("address must include host and scheme")
	}

	return u, nil
}

// splitEndpointURL returns scheme://host and the request path of raw.
func splitEndpointURL(raw string) (string, string, error) {
	u, err := normalizeBaseURL(raw)
	if err != nil {
		return "", "", err
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	return u.Scheme + "://" + u.Host, path, nil
}

func (e *graphQLEndpoint) authedRequest(ctx context.Context) *resty.Request {
	req := e.client.R().SetContext(ctx)
	if e.token != "" {
		return req.SetHeader("Authorization", "Bearer "+e.token)
	}
	if e.apiKey != "" {
		return req.SetHeader("x-api-key", e.apiKey)
	}
	return req
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []graphQLError             `json:"errors"`
}

// do posts a document and returns the raw value of the named data field.
func (e *graphQLEndpoint) do(ctx context.Context, modelName, field, document string, variables map[string]any) (json.RawMessage, error) {
	resp, err := e.authedRequest(ctx).
		SetBody(graphQLRequest{Query: document, Variables: variables}).
		Post(e.path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s request: %w", field, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s request: %w", ErrUnavailable, field, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var body graphQLResponse
	if err = json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, field, err)
	}
	if len(body.Errors) > 0 {
		if len(body.Errors) > 1 {
			e.logger.Debug().Str("func", "graphQLEndpoint.do").Str("field", field).
				Int("errors", len(body.Errors)).Msg("remote returned several errors, mapping the first")
		}
		return nil, mapGraphQLError(modelName, body.Errors[0])
	}

	raw, ok := body.Data[field]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: %s: empty data", ErrMalformedResponse, field)
	}

	return raw, nil
}

func (e *graphQLEndpoint) mutate(ctx context.Context, op string, item models.Model, expectedVersion int64) (models.ModelWithMetadata, error) {
	schema, err := e.registry.Get(item.Name)
	if err != nil {
		return models.ModelWithMetadata{}, err
	}

	input, err := mutationInput(op, item, expectedVersion)
	if err != nil {
		return models.ModelWithMetadata{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}

	field := mutationName(op, schema)
	raw, err := e.do(ctx, schema.Name, field, mutationDocument(op, schema), map[string]any{"input": input})
	if err != nil {
		return models.ModelWithMetadata{}, err
	}

	out, err := decodeItem(schema.Name, raw)
	if err != nil {
		return models.ModelWithMetadata{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	e.logger.Debug().Str("func", "graphQLEndpoint."+op).Str("model", out.Identity().String()).
		Int64("version", out.Metadata.Version).Msg("mutation acknowledged")
	return out, nil
}

// Create implements [RemoteEndpoint].
func (e *graphQLEndpoint) Create(ctx context.Context, item models.Model) (models.ModelWithMetadata, error) {
	return e.mutate(ctx, opCreate, item, 0)
}

// Update implements [RemoteEndpoint].
func (e *graphQLEndpoint) Update(ctx context.Context, item models.Model, expectedVersion int64) (models.ModelWithMetadata, error) {
	return e.mutate(ctx, opUpdate, item, expectedVersion)
}

// Delete implements [RemoteEndpoint].
func (e *graphQLEndpoint) Delete(ctx context.Context, item models.Model, expectedVersion int64) (models.ModelWithMetadata, error) {
	return e.mutate(ctx, opDelete, item, expectedVersion)
}

type syncResult struct {
	Items     []json.RawMessage `json:"items"`
	NextToken *string           `json:"nextToken"`
	StartedAt *int64            `json:"startedAt"`
}

// Sync implements [RemoteEndpoint]. req.SinceToken must be a token returned
// by an earlier Sync; it is sent as lastSync.
func (e *graphQLEndpoint) Sync(ctx context.Context, req models.SyncRequest) (models.SyncPage, error) {
	schema, err := e.registry.Get(req.ModelName)
	if err != nil {
		return models.SyncPage{}, err
	}

	variables := map[string]any{}
	if req.Limit > 0 {
		variables["limit"] = req.Limit
	}
	if req.NextToken != "" {
		variables["nextToken"] = req.NextToken
	}
	if req.SinceToken != "" {
		lastSync, err := strconv.ParseInt(req.SinceToken, 10, 64)
		if err != nil {
			return models.SyncPage{}, fmt.Errorf("%w: invalid sync token %q", ErrBadRequest, req.SinceToken)
		}
		variables["lastSync"] = lastSync
	}
	if len(req.Filter) > 0 {
		variables["filter"] = req.Filter
	}

	raw, err := e.do(ctx, schema.Name, syncQueryName(schema), syncDocument(schema), variables)
	if err != nil {
		return models.SyncPage{}, err
	}

	var result syncResult
	if err = json.Unmarshal(raw, &result); err != nil {
		return models.SyncPage{}, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, syncQueryName(schema), err)
	}

	page := models.SyncPage{Items: make([]models.ModelWithMetadata, 0, len(result.Items))}
	for _, rawItem := range result.Items {
		item, err := decodeItem(schema.Name, rawItem)
		if err != nil {
			return models.SyncPage{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		page.Items = append(page.Items, item)
	}
	if result.NextToken != nil {
		page.NextToken = *result.NextToken
	}
	if result.StartedAt != nil {
		page.SyncToken = strconv.FormatInt(*result.StartedAt, 10)
	}

	return page, nil
}

// IsConflict reports whether err is a remote version conflict and returns
// the server's record when it was included.
func IsConflict(err error) (*models.ModelWithMetadata, bool) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict.Remote, true
	}
	return nil, errors.Is(err, ErrConflict)
}

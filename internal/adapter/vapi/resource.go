package vapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ListFilter narrows a list request. Zero fields are not sent.
type ListFilter struct {
	Limit         int
	AssistantID   string
	PhoneNumberID string
	CreatedAtGt   time.Time
	CreatedAtLt   time.Time
}

// Values encodes the filter as platform query parameters.
func (f ListFilter) Values() url.Values {
	v := url.Values{}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.AssistantID != "" {
		v.Set("assistantId", f.AssistantID)
	}
	if f.PhoneNumberID != "" {
		v.Set("phoneNumberId", f.PhoneNumberID)
	}
	if !f.CreatedAtGt.IsZero() {
		v.Set("createdAtGt", f.CreatedAtGt.UTC().Format(time.RFC3339))
	}
	if !f.CreatedAtLt.IsZero() {
		v.Set("createdAtLt", f.CreatedAtLt.UTC().Format(time.RFC3339))
	}
	return v
}

// Resource is one REST collection of T records.
type Resource[T any] struct {
	client *Client
	name   string
}

func newResource[T any](c *Client, name string) *Resource[T] {
	return &Resource[T]{client: c, name: name}
}

func (r *Resource[T]) op(verb string) string {
	return verb + " " + r.name
}

func (r *Resource[T]) itemPath(id string) string {
	return "/" + r.name + "/" + url.PathEscape(strings.TrimSpace(id))
}

// List returns the records matching filter.
func (r *Resource[T]) List(ctx context.Context, filter ListFilter) ([]T, error) {
	var out []T
	if err := r.client.do(ctx, r.op("list"), r.name, http.MethodGet, "/"+r.name, filter.Values(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one record.
func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	var out T
	if err := r.client.do(ctx, r.op("get"), r.name, http.MethodGet, r.itemPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create posts payload and returns the created record.
func (r *Resource[T]) Create(ctx context.Context, payload any) (*T, error) {
	var out T
	if err := r.client.do(ctx, r.op("create"), r.name, http.MethodPost, "/"+r.name, nil, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update sends a partial update (PATCH) and returns the updated record.
func (r *Resource[T]) Update(ctx context.Context, id string, payload any) (*T, error) {
	var out T
	if err := r.client.do(ctx, r.op("update"), r.name, http.MethodPatch, r.itemPath(id), nil, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes one record.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.client.do(ctx, r.op("delete"), r.name, http.MethodDelete, r.itemPath(id), nil, nil, nil)
}

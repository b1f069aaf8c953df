// Package hasura implements the event store on top of a Hasura GraphQL
// endpoint exposing an `events` table.
package hasura

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appLog "github.com/eviefp/hcs/internal/log"
	"github.com/eviefp/hcs/internal/model"
	"github.com/eviefp/hcs/internal/store"
)

const secretHeader = "x-hasura-admin-secret"

// Client talks GraphQL to Hasura. Both documents below run as a single
// request; Hasura executes the fields of one mutation in one transaction,
// which is what makes ReplaceEvents atomic.
type Client struct {
	url    string
	secret string
	http   *http.Client
}

const eventsBetweenQuery = `query EventsBetween($start: timestamptz, $end: timestamptz) {
  events(where: {start: {_gte: $start, _lt: $end}}, order_by: {start: asc}) {
    key
    calendar_uid
    summary
    description
    location
    organizer
    status
    attach
    start
    end
    created_at
    updated_at
  }
}`

const replaceEventsMutation = `mutation ReplaceEvents($key: String, $objects: [events_insert_input!]!) {
  delete_events(where: {key: {_eq: $key}}) {
    affected_rows
  }
  insert_events(objects: $objects) {
    affected_rows
  }
}`

// New returns a client for the GraphQL endpoint at url. httpClient may be
// nil, in which case http.DefaultClient is used.
func New(url, secret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{url: url, secret: secret, http: httpClient}
}

type request struct {
	Query     string `json:"query"`
	Variables any    `json:"variables"`
}

type gqlError struct {
	Message string `json:"message"`
}

type response[T any] struct {
	Data   *T         `json:"data"`
	Errors []gqlError `json:"errors"`
}

type affectedRows struct {
	AffectedRows *int `json:"affected_rows"`
}

type replaceData struct {
	DeleteEvents *affectedRows `json:"delete_events"`
	InsertEvents *affectedRows `json:"insert_events"`
}

type eventsData struct {
	Events []model.Event `json:"events"`
}

// EventsBetween implements store.Querier.
func (c *Client) EventsBetween(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	vars := map[string]any{
		"start": start.UTC(),
		"end":   end.UTC(),
	}
	var resp response[eventsData]
	if err := c.do(ctx, eventsBetweenQuery, vars, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, errors.New("hasura: events query returned no data")
	}
	events := resp.Data.Events
	for i := range events {
		toUTC(&events[i])
	}
	return events, nil
}

// ReplaceEvents implements store.Replacer.
func (c *Client) ReplaceEvents(ctx context.Context, key string, events []model.Event) (model.ReplaceResult, error) {
	if events == nil {
		events = []model.Event{}
	}
	vars := map[string]any{
		"key":     key,
		"objects": events,
	}
	var resp response[replaceData]
	if err := c.do(ctx, replaceEventsMutation, vars, &resp); err != nil {
		return model.ReplaceResult{}, err
	}

	d := resp.Data
	if d == nil || d.DeleteEvents == nil || d.DeleteEvents.AffectedRows == nil ||
		d.InsertEvents == nil || d.InsertEvents.AffectedRows == nil {
		return model.ReplaceResult{}, store.ErrInsertData
	}
	return model.ReplaceResult{
		Deleted:  *d.DeleteEvents.AffectedRows,
		Inserted: *d.InsertEvents.AffectedRows,
	}, nil
}

// Close implements store.Store. The client holds no resources.
func (c *Client) Close() error { return nil }

func (c *Client) do(ctx context.Context, query string, vars any, out interface{ errs() []gqlError }) error {
	body, err := json.Marshal(request{Query: query, Variables: vars})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(secretHeader, c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("hasura: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("hasura: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hasura: unexpected status %s", resp.Status)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("hasura: decode response: %w", err)
	}
	if errs := out.errs(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Message
		}
		return fmt.Errorf("hasura: %s", strings.Join(msgs, "; "))
	}

	appLog.Debug("hasura request completed", "bytes", len(data))
	return nil
}

func (r *response[T]) errs() []gqlError { return r.Errors }

func toUTC(e *model.Event) {
	for _, t := range []**time.Time{&e.Start, &e.End, &e.CreatedAt, &e.UpdatedAt} {
		if *t != nil {
			u := (*t).UTC()
			*t = &u
		}
	}
}

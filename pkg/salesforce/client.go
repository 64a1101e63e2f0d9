// Package salesforce provides rate-limited access to Salesforce Accounts used
// as customer records.
package salesforce

import (
	"context"
	"fmt"
	"net/http"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client is the subset of the Salesforce REST API the customer store needs.
type Client interface {
	Query(ctx context.Context, soql string, out any) error
	InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error)
	InsertCollection(ctx context.Context, sObjectName string, records []map[string]any) ([]CollectionResult, error)
	UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error
	DescribeSObject(ctx context.Context, name string) (*SObjectDescription, error)
}

// CollectionResult is the outcome of one record in a collection insert.
type CollectionResult struct {
	ID      string   `json:"id"`
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
}

// SObjectField describes a single field on an SObject.
type SObjectField struct {
	Name       string `json:"name"`
	Label      string `json:"label"`
	Type       string `json:"type"`
	Updateable bool   `json:"updateable"`
	Createable bool   `json:"createable"`
}

// SObjectDescription holds the field metadata of an SObject.
type SObjectDescription struct {
	Name   string         `json:"name"`
	Fields []SObjectField `json:"fields"`
}

// Field returns the named field, if the object has it.
func (d *SObjectDescription) Field(name string) (SObjectField, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return SObjectField{}, false
}

// ClientOption configures the Salesforce client.
type ClientOption func(*sfClient)

// WithRateLimit caps API calls per second. The burst is the integer part of
// rps, at least 1.
func WithRateLimit(rps float64) ClientOption {
	return func(c *sfClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// sfClient wraps go-salesforce. The library takes no context, so ctx only
// bounds the rate limiter wait.
type sfClient struct {
	sf      *salesforce.Salesforce
	limiter *rate.Limiter
}

// NewClient wraps an initialized go-salesforce instance.
func NewClient(sf *salesforce.Salesforce, opts ...ClientOption) Client {
	c := &sfClient{sf: sf}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *sfClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "sf: rate limit")
	}
	return nil
}

func (c *sfClient) Query(ctx context.Context, soql string, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	if err := c.sf.Query(soql, out); err != nil {
		return eris.Wrap(err, "sf: query")
	}
	return nil
}

func (c *sfClient) InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	res, err := c.sf.InsertOne(sObjectName, record)
	if err != nil {
		return "", eris.Wrapf(err, "sf: insert %s", sObjectName)
	}
	if !res.Success {
		return "", eris.Errorf("sf: insert %s failed: %v", sObjectName, res.Errors)
	}
	return res.Id, nil
}

func (c *sfClient) InsertCollection(ctx context.Context, sObjectName string, records []map[string]any) ([]CollectionResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	res, err := c.sf.InsertCollection(sObjectName, records, MaxCollectionSize)
	if err != nil {
		return nil, eris.Wrapf(err, "sf: insert collection %s", sObjectName)
	}

	out := make([]CollectionResult, 0, len(res.Results))
	for _, r := range res.Results {
		cr := CollectionResult{ID: r.Id, Success: r.Success}
		for _, e := range r.Errors {
			cr.Errors = append(cr.Errors, e.Message)
		}
		out = append(out, cr)
	}
	return out, nil
}

func (c *sfClient) UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["Id"] = id
	if err := c.sf.UpdateOne(sObjectName, body); err != nil {
		return eris.Wrapf(err, "sf: update %s %s", sObjectName, id)
	}
	return nil
}

func (c *sfClient) DescribeSObject(ctx context.Context, name string) (*SObjectDescription, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.sf.DoRequest(http.MethodGet, fmt.Sprintf("/sobjects/%s/describe", name), nil)
	if err != nil {
		return nil, eris.Wrapf(err, "sf: describe %s", name)
	}
	defer resp.Body.Close() //nolint:errcheck

	var desc SObjectDescription
	if err := decodeJSON(resp.Body, &desc); err != nil {
		return nil, eris.Wrapf(err, "sf: decode describe %s", name)
	}
	return &desc, nil
}

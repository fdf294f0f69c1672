package elastic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/segmentio/encoding/json"

	"github.com/slub/lisztbib/internal/core/domain"
	"github.com/slub/lisztbib/internal/core/ports/driven"
	"github.com/slub/lisztbib/internal/logger"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 1024

// Ensure SearchIndex implements the interface.
var _ driven.SearchIndex = (*SearchIndex)(nil)

// SearchIndex writes documents to an Elasticsearch cluster.
type SearchIndex struct {
	es *elasticsearch.Client
}

// NewSearchIndex creates a search index client for the configured cluster.
// A non-nil transport replaces the default HTTP transport. Failed requests
// are not retried.
func NewSearchIndex(cfg domain.ElasticConfig, transport http.RoundTripper) (*SearchIndex, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		APIKey:       cfg.APIKey,
		Transport:    transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create elasticsearch client: %w", domain.ErrInvalidConfig, err)
	}
	return &SearchIndex{es: es}, nil
}

// IndexExists reports whether the named index exists.
func (s *SearchIndex) IndexExists(ctx context.Context, name string) (bool, error) {
	res, err := s.es.Indices.Exists([]string{name}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, transportError("check", name, err)
	}
	defer drain(res)

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, responseError("check", name, res)
	}
}

// DeleteIndex removes the named index and its documents.
func (s *SearchIndex) DeleteIndex(ctx context.Context, name string) error {
	res, err := s.es.Indices.Delete([]string{name}, s.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return transportError("delete", name, err)
	}
	defer drain(res)

	if res.IsError() {
		return responseError("delete", name, res)
	}
	logger.Debug("Deleted index %s", name)
	return nil
}

// CreateIndex creates the named index with default settings.
func (s *SearchIndex) CreateIndex(ctx context.Context, name string) error {
	res, err := s.es.Indices.Create(name, s.es.Indices.Create.WithContext(ctx))
	if err != nil {
		return transportError("create", name, err)
	}
	defer drain(res)

	if res.IsError() {
		return responseError("create", name, res)
	}
	logger.Debug("Created index %s", name)
	return nil
}

// BulkWrite sends all actions in one bulk request. An empty action list
// sends nothing.
func (s *SearchIndex) BulkWrite(ctx context.Context, actions []driven.BulkAction) error {
	if len(actions) == 0 {
		return nil
	}
	target := actions[0].Index

	body, err := encodeBulk(actions)
	if err != nil {
		return err
	}

	res, err := s.es.Bulk(bytes.NewReader(body), s.es.Bulk.WithContext(ctx))
	if err != nil {
		return transportError("bulk", target, err)
	}
	defer drain(res)

	if res.IsError() {
		return responseError("bulk", target, res)
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return fmt.Errorf("%w: decode bulk response for %s: %v", domain.ErrIndexOperationFailed, target, err)
	}
	if br.Errors {
		return br.toError(target)
	}
	logger.Debug("Bulk wrote %d documents to %s in %dms", len(actions), target, br.Took)
	return nil
}

// bulkMeta is the action line preceding each document.
type bulkMeta struct {
	Index bulkTarget `json:"index"`
}

type bulkTarget struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

// encodeBulk renders actions as NDJSON. Document bodies are compacted so
// that each one occupies a single line.
func encodeBulk(actions []driven.BulkAction) ([]byte, error) {
	var buf bytes.Buffer
	for i, a := range actions {
		meta, err := json.Marshal(bulkMeta{Index: bulkTarget{Index: a.Index, ID: a.ID}})
		if err != nil {
			return nil, fmt.Errorf("%w: encode bulk action %d: %v", domain.ErrIndexOperationFailed, i, err)
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		if err := json.Compact(&buf, a.Body); err != nil {
			return nil, fmt.Errorf("%w: document %s/%s is not valid JSON: %v",
				domain.ErrIndexOperationFailed, a.Index, a.ID, err)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

type bulkResponse struct {
	Took   int                          `json:"took"`
	Errors bool                         `json:"errors"`
	Items  []map[string]bulkItemOutcome `json:"items"`
}

type bulkItemOutcome struct {
	ID     string         `json:"_id"`
	Status int            `json:"status"`
	Error  *bulkItemError `json:"error,omitempty"`
}

type bulkItemError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func (br bulkResponse) toError(index string) *BulkError {
	e := &BulkError{Index: index, Total: len(br.Items), First: "unknown"}
	for _, item := range br.Items {
		for _, outcome := range item {
			if outcome.Error == nil {
				continue
			}
			if e.Failed == 0 {
				e.First = fmt.Sprintf("%s (status %d): %s: %s",
					outcome.ID, outcome.Status, outcome.Error.Type, outcome.Error.Reason)
			}
			e.Failed++
		}
	}
	return e
}

func transportError(op, index string, err error) error {
	return fmt.Errorf("%w: elastic: %s %s: %w", domain.ErrIndexOperationFailed, op, index, err)
}

func responseError(op, index string, res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(res.StatusCode)
	}
	return &ResponseError{Op: op, Index: index, StatusCode: res.StatusCode, Message: msg}
}

// drain consumes and closes a response body so the connection is reused.
func drain(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	res.Body.Close()
}

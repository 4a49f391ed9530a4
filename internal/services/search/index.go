package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/3Eeeecho/go-docflow/internal/models"
	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"github.com/3Eeeecho/go-docflow/internal/pkg/xerr"
	"github.com/3Eeeecho/go-docflow/internal/services/versioning"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// maxSearchHits 单次搜索最多返回的链头数量
const maxSearchHits = 1000

// DocumentIndex 链头的全文索引，只保存搜索需要的字段
type DocumentIndex interface {
	EnsureIndex(ctx context.Context) error
	IndexHead(ctx context.Context, record *models.VersionRecord) error
	Delete(ctx context.Context, documentID string) error
	DeleteChain(ctx context.Context, chainRootID string) error
	// Search 返回匹配的文档 id
	Search(ctx context.Context, text string) ([]string, error)
}

// indexedDocument ES 中的文档结构
type indexedDocument struct {
	ID          string    `json:"id"`
	ChainRootID string    `json:"chainRootId"`
	FileName    string    `json:"fileName"`
	Code        string    `json:"code"`
	Area        string    `json:"area"`
	Description string    `json:"description"`
	UploadedBy  string    `json:"uploadedBy"`
	Status      string    `json:"status"`
	Version     string    `json:"version"`
	UploadDate  time.Time `json:"uploadDate"`
}

type esDocumentIndex struct {
	client *elasticsearch.Client
	index  string
}

var _ DocumentIndex = (*esDocumentIndex)(nil)

func NewDocumentIndex(client *elasticsearch.Client, index string) DocumentIndex {
	if index == "" {
		index = "documents"
	}
	return &esDocumentIndex{client: client, index: index}
}

var indexMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":          map[string]any{"type": "keyword"},
			"chainRootId": map[string]any{"type": "keyword"},
			"fileName":    map[string]any{"type": "text"},
			"code":        map[string]any{"type": "text"},
			"area":        map[string]any{"type": "text"},
			"description": map[string]any{"type": "text"},
			"uploadedBy":  map[string]any{"type": "text"},
			"status":      map[string]any{"type": "keyword"},
			"version":     map[string]any{"type": "keyword"},
			"uploadDate":  map[string]any{"type": "date"},
		},
	},
}

func (s *esDocumentIndex) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", s.index, xerr.ErrSearchError)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := encode(indexMapping)
	if err != nil {
		return err
	}
	res, err = s.client.Indices.Create(s.index,
		s.client.Indices.Create.WithBody(body),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", s.index, xerr.ErrSearchError)
	}
	defer res.Body.Close()
	// 并发启动时可能已被其他实例创建
	if res.IsError() && res.StatusCode != http.StatusBadRequest {
		return responseError("EnsureIndex", res)
	}
	logger.Info("EnsureIndex: Elasticsearch index ready", zap.String("index", s.index))
	return nil
}

func (s *esDocumentIndex) IndexHead(ctx context.Context, record *models.VersionRecord) error {
	body, err := encode(indexedDocument{
		ID:          record.ID,
		ChainRootID: versioning.ResolveChainRoot(record),
		FileName:    record.FileName,
		Code:        record.Code,
		Area:        record.Area,
		Description: record.Description,
		UploadedBy:  record.UploadedBy,
		Status:      string(record.Status),
		Version:     record.Version,
		UploadDate:  record.UploadDate,
	})
	if err != nil {
		return err
	}

	res, err := s.client.Index(s.index, body,
		s.client.Index.WithDocumentID(record.ID),
		s.client.Index.WithRefresh("true"),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index document %s: %w", record.ID, xerr.ErrSearchError)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("IndexHead", res)
	}
	return nil
}

func (s *esDocumentIndex) Delete(ctx context.Context, documentID string) error {
	res, err := s.client.Delete(s.index, documentID,
		s.client.Delete.WithRefresh("true"),
		s.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, xerr.ErrSearchError)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("Delete", res)
	}
	return nil
}

func (s *esDocumentIndex) DeleteChain(ctx context.Context, chainRootID string) error {
	body, err := encode(map[string]any{
		"query": map[string]any{
			"term": map[string]any{"chainRootId": chainRootID},
		},
	})
	if err != nil {
		return err
	}
	res, err := s.client.DeleteByQuery([]string{s.index}, body,
		s.client.DeleteByQuery.WithRefresh(true),
		s.client.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete chain %s: %w", chainRootID, xerr.ErrSearchError)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("DeleteChain", res)
	}
	return nil
}

func (s *esDocumentIndex) Search(ctx context.Context, text string) ([]string, error) {
	body, err := encode(buildSearchQuery(text))
	if err != nil {
		return nil, err
	}
	res, err := s.client.Search(
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(body),
		s.client.Search.WithSize(maxSearchHits),
		s.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", text, xerr.ErrSearchError)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("Search", res)
	}
	return decodeHitIDs(res.Body)
}

// searchFields 与快照过滤 (catalog.MatchesSearch) 使用同一组字段
var searchFields = []string{"fileName", "code", "area", "description", "uploadedBy"}

// buildSearchQuery 前缀匹配 searchFields，同时支持中间子串的通配
func buildSearchQuery(text string) map[string]any {
	return map[string]any{
		"_source": []string{"id"},
		"query": map[string]any{
			"bool": map[string]any{
				"should": []any{
					map[string]any{
						"multi_match": map[string]any{
							"query":  text,
							"type":   "bool_prefix",
							"fields": searchFields,
						},
					},
					map[string]any{
						"query_string": map[string]any{
							"query":            "*" + escapeQueryString(text) + "*",
							"fields":           searchFields,
							"analyze_wildcard": true,
						},
					},
				},
				"minimum_should_match": 1,
			},
		},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

func decodeHitIDs(r io.Reader) ([]string, error) {
	var sr searchResponse
	if err := json.NewDecoder(r).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", xerr.ErrSearchError)
	}
	ids := make([]string, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

func encode(v any) (*bytes.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(data), nil
}

func responseError(method string, res *esapi.Response) error {
	logger.Error(method+": Elasticsearch request failed", zap.String("status", res.Status()), zap.String("response", res.String()))
	return fmt.Errorf("%s: status %s: %w", method, res.Status(), xerr.ErrSearchError)
}

// escapeQueryString 转义 query_string 保留字符
func escapeQueryString(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '+', '-', '=', '&', '|', '>', '<', '!', '(', ')', '{', '}', '[', ']', '^', '"', '~', '*', '?', ':', '\\', '/', ' ':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

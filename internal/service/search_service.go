// Package service 提供了搜索相关的业务逻辑。
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"propguru-go/internal/model"
	"propguru-go/pkg/es"
	"propguru-go/pkg/log"
)

const (
	defaultSearchSize = 10
	maxSearchSize     = 50
)

// SearchService 接口定义了房源关键词检索。
// 它查询 Elasticsearch 镜像，与对话使用的向量检索相互独立。
type SearchService interface {
	SearchListings(ctx context.Context, query, propertyType string, size int) ([]model.ListingSearchHit, error)
}

type searchService struct {
	esClient  *elasticsearch.Client
	indexName string
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(esClient *elasticsearch.Client, indexName string) SearchService {
	return &searchService{esClient: esClient, indexName: indexName}
}

func (s *searchService) SearchListings(ctx context.Context, query, propertyType string, size int) ([]model.ListingSearchHit, error) {
	if size <= 0 {
		size = defaultSearchSize
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}
	query = strings.TrimSpace(query)
	propertyType = strings.TrimSpace(propertyType)
	log.Infof("[SearchService] 开始关键词检索, query: '%s', type: '%s', size: %d", query, propertyType, size)

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(es.BuildListingQuery(query, propertyType, size)); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := s.esClient.Search(
		s.esClient.Search.WithContext(ctx),
		s.esClient.Search.WithIndex(s.indexName),
		s.esClient.Search.WithBody(&buf),
		s.esClient.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		log.Errorf("[SearchService] 向 Elasticsearch 发送搜索请求失败: %v", err)
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("[SearchService] Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.Status())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.ListingDocument `json:"_source"`
				Score  float64               `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		log.Errorf("[SearchService] 解析 Elasticsearch 响应失败: %v", err)
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	results := make([]model.ListingSearchHit, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		results = append(results, model.ListingSearchHit{Listing: hit.Source, Score: hit.Score})
	}
	log.Infof("[SearchService] 关键词检索完成, query: '%s', 返回 %d 条结果", query, len(results))
	return results, nil
}

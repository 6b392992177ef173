// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"propguru-go/internal/config"
	"propguru-go/internal/model"
	"propguru-go/pkg/log"
)

var ESClient *elasticsearch.Client

// listingMapping 是房源镜像索引的结构。文本字段使用内置的 thai 分析器。
const listingMapping = `{
	"mappings": {
		"properties": {
			"listing_id": { "type": "long" },
			"upload_id": { "type": "keyword" },
			"property_type": {
				"type": "text",
				"analyzer": "thai",
				"fields": { "raw": { "type": "keyword" } }
			},
			"project": { "type": "text", "analyzer": "thai" },
			"price": { "type": "keyword" },
			"status": { "type": "keyword" },
			"location": { "type": "text", "analyzer": "thai" },
			"nearby": { "type": "text", "analyzer": "thai" }
		}
	}
}`

// NewClient 根据配置创建 Elasticsearch 客户端。
func NewClient(esCfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	return elasticsearch.NewClient(cfg)
}

// InitES 初始化 Elasticsearch 客户端
func InitES(esCfg config.ElasticsearchConfig) error {
	client, err := NewClient(esCfg)
	if err != nil {
		return err
	}
	ESClient = client
	return createIndexIfNotExists(esCfg.IndexName)
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func createIndexIfNotExists(indexName string) error {
	res, err := ESClient.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	defer res.Body.Close()
	// 如果 res.StatusCode 是 200，说明索引已存在
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	// 如果 res.StatusCode 是 404，说明索引不存在，需要创建
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	created, err := ESClient.Indices.Create(
		indexName,
		ESClient.Indices.Create.WithBody(strings.NewReader(listingMapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	defer created.Body.Close()
	if created.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, created.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// IndexListing 将单个房源文档写入 Elasticsearch，文档 ID 为房源主键。
func IndexListing(ctx context.Context, client *elasticsearch.Client, indexName string, doc model.ListingDocument) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: fmt.Sprint(doc.ListingID),
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引房源到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index listing")
	}
	return nil
}

// DeleteByUpload 删除某次上传导入的全部房源文档。
func DeleteByUpload(ctx context.Context, client *elasticsearch.Client, indexName, uploadID string) error {
	body := fmt.Sprintf(`{"query":{"term":{"upload_id":%q}}}`, uploadID)
	res, err := client.DeleteByQuery(
		[]string{indexName},
		strings.NewReader(body),
		client.DeleteByQuery.WithContext(ctx),
		client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete by query failed: %s", res.String())
	}
	return nil
}

// BuildListingQuery 构建关键词检索语句：在类型、项目、地点、周边设施上做 multi_match，
// 可选按类型精确过滤。
func BuildListingQuery(query, propertyType string, size int) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"must": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"property_type^3", "location^2", "project", "nearby"},
			},
		},
	}
	if propertyType != "" {
		boolQuery["filter"] = map[string]interface{}{
			"term": map[string]interface{}{"property_type.raw": propertyType},
		}
	}
	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"size":  size,
	}
}

// ListingMirror 把房源镜像到固定索引。
type ListingMirror struct {
	client *elasticsearch.Client
	index  string
}

// NewListingMirror 创建房源镜像写入器。
func NewListingMirror(client *elasticsearch.Client, index string) *ListingMirror {
	return &ListingMirror{client: client, index: index}
}

func (m *ListingMirror) Index(ctx context.Context, doc model.ListingDocument) error {
	return IndexListing(ctx, m.client, m.index, doc)
}

func (m *ListingMirror) DeleteUpload(ctx context.Context, uploadID string) error {
	return DeleteByUpload(ctx, m.client, m.index, uploadID)
}

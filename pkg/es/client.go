// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"valuation-form-go/internal/config"
	"valuation-form-go/internal/model"
	"valuation-form-go/pkg/log"
)

var ESClient *elasticsearch.Client

// InitES 初始化 Elasticsearch 客户端
func InitES(esCfg config.ElasticsearchConfig) error {
	var addresses []string
	for _, a := range strings.Split(esCfg.Addresses, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addresses = append(addresses, a)
		}
	}
	cfg := elasticsearch.Config{
		Addresses: addresses,
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}
	ESClient = client
	return nil
}

// customTemplateMapping 是自定义模板索引的映射，名称与描述使用 ik 中文分词器。
const customTemplateMapping = `{
	"mappings": {
		"properties": {
			"id": { "type": "keyword" },
			"organization_id": { "type": "keyword" },
			"bank_code": { "type": "keyword" },
			"property_type": { "type": "keyword" },
			"template_name": {
				"type": "text",
				"analyzer": "ik_max_word",
				"search_analyzer": "ik_smart",
				"fields": { "raw": { "type": "keyword" } }
			},
			"description": {
				"type": "text",
				"analyzer": "ik_max_word",
				"search_analyzer": "ik_smart"
			},
			"created_by_name": { "type": "keyword" }
		}
	}
}`

// CustomTemplateIndex 是自定义模板的检索索引，实现 service.CustomTemplateIndexer。
// 索引只保存可检索的元数据，检索结果总是回到数据库重新读取。
type CustomTemplateIndex struct {
	client    *elasticsearch.Client
	indexName string
}

// NewCustomTemplateIndex 创建自定义模板索引。
func NewCustomTemplateIndex(client *elasticsearch.Client, indexName string) *CustomTemplateIndex {
	return &CustomTemplateIndex{client: client, indexName: indexName}
}

// EnsureIndex 检查索引是否存在，如果不存在则创建它。
func (x *CustomTemplateIndex) EnsureIndex(ctx context.Context) error {
	res, err := x.client.Indices.Exists([]string{x.indexName}, x.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", x.indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = x.client.Indices.Create(
		x.indexName,
		x.client.Indices.Create.WithContext(ctx),
		x.client.Indices.Create.WithBody(strings.NewReader(customTemplateMapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", x.indexName, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", x.indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", x.indexName)
	return nil
}

// IndexCustomTemplate 写入或覆盖一个自定义模板文档。
func (x *CustomTemplateIndex) IndexCustomTemplate(ctx context.Context, doc model.CustomTemplateDocument) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      x.indexName,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, x.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index custom template %s: %s", doc.ID, res.String())
	}
	return nil
}

// DeleteCustomTemplate 从索引中删除文档，文档不存在不算错误。
func (x *CustomTemplateIndex) DeleteCustomTemplate(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{
		Index:      x.indexName,
		DocumentID: id,
		Refresh:    "true",
	}
	res, err := req.Do(ctx, x.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("failed to delete custom template %s: %s", id, res.String())
	}
	return nil
}

// SearchCustomTemplates 在组织范围内按名称和描述检索，返回按相关度排序的模板 ID。
func (x *CustomTemplateIndex) SearchCustomTemplates(ctx context.Context, organizationID, query, bankCode, propertyType string, size int) ([]string, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildSearchQuery(organizationID, query, bankCode, propertyType, size)); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := x.client.Search(
		x.client.Search.WithContext(ctx),
		x.client.Search.WithIndex(x.indexName),
		x.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("[CustomTemplateIndex] Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.Status())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.CustomTemplateDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	ids := make([]string, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		ids = append(ids, hit.Source.ID)
	}
	return ids, nil
}

func buildSearchQuery(organizationID, query, bankCode, propertyType string, size int) map[string]interface{} {
	filters := []map[string]interface{}{
		{"term": map[string]interface{}{"organization_id": organizationID}},
	}
	if bankCode != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"bank_code": bankCode}})
	}
	if propertyType != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"property_type": propertyType}})
	}

	boolQuery := map[string]interface{}{"filter": filters}
	if query != "" {
		boolQuery["must"] = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"template_name^2", "description"},
			},
		}
	}
	return map[string]interface{}{
		"size":    size,
		"_source": []string{"id"},
		"query":   map[string]interface{}{"bool": boolQuery},
	}
}

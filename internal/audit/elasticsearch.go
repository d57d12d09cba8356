package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
)

// ElasticStore mirrors artifacts into an Elasticsearch index so runs can be
// searched by kind and content.
type ElasticStore struct {
	client *elasticsearch.Client
	index  string
}

type elasticArtifact struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

func NewElasticStore(client *elasticsearch.Client, index string) *ElasticStore {
	return &ElasticStore{client: client, index: index}
}

func (s *ElasticStore) Save(ctx context.Context, kind Kind, v interface{}) (id string, err error) {
	defer func() { observe(kind, err) }()

	if err := checkKind(kind); err != nil {
		return "", err
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", kind, err)
	}

	id = uuid.NewString()
	body, err := json.Marshal(elasticArtifact{
		ID:        id,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("encode %s document: %w", kind, err)
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(body),
		s.client.Index.WithDocumentID(id),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("index %s artifact: %w", kind, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return "", fmt.Errorf("index %s artifact: %s", kind, res.Status())
	}
	return id, nil
}

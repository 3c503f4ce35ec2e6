package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/zyncjobs/backend/internal/config"
	"github.com/zyncjobs/backend/internal/models"
)

const JobIndex = "jobs"

func NewClient(cfg *config.Config) (*elasticsearch.Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{cfg.ES_URL},
		Username:  cfg.ES_USER,
		Password:  cfg.ES_PASSWORD,
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("es client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("es info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("es error: %s: %s", res.Status(), body)
	}

	return client, nil
}

// IndexJob mirrors a job row into the search index. Failures are the
// caller's to log; listings stay readable from the DB either way.
func IndexJob(ctx context.Context, es *elasticsearch.Client, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("es index: %w", err)
	}

	res, err := es.Index(
		JobIndex,
		bytes.NewReader(data),
		es.Index.WithDocumentID(strconv.FormatUint(uint64(job.ID), 10)),
		es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("es index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("es index: %s", res.Status())
	}
	return nil
}

func DeleteJob(ctx context.Context, es *elasticsearch.Client, jobID uint) error {
	res, err := es.Delete(
		JobIndex,
		strconv.FormatUint(uint64(jobID), 10),
		es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("es delete: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("es delete: %s", res.Status())
	}
	return nil
}

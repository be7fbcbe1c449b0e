// Package ingest registers the Elasticsearch ingest pipeline that parses the
// harvested log lines.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/imroc/req/v3"
)

// PipelineName is the id of the registered pipeline.
const PipelineName = "log-parser-pipeline"

// GrokPattern splits a line such as
// "[2024-01-02 10:00:00] (10:00:00)(db)(conn.c)( 42): message".
const GrokPattern = `\[%{TIMESTAMP_ISO8601:timestamp}\] \(%{TIME}\)\(%{DATA:component}\)\(%{DATA:source_file}\)\(\s*%{INT:line_number:int}\): %{GREEDYDATA:log_message}`

// Pipeline is the request body of PUT _ingest/pipeline/<id>.
type Pipeline struct {
	Description string      `json:"description"`
	Processors  []Processor `json:"processors"`
}

// Processor holds exactly one processor definition keyed by its type.
type Processor map[string]map[string]any

// DefaultPipeline parses the message with GrokPattern, moves the parsed
// timestamp into @timestamp and drops the raw field.
func DefaultPipeline() Pipeline {
	return Pipeline{
		Description: "Parse log files with grok pattern",
		Processors: []Processor{
			{"grok": {
				"field":          "message",
				"patterns":       []string{GrokPattern},
				"ignore_failure": true,
			}},
			{"date": {
				"field":          "timestamp",
				"formats":        []string{"yyyy-MM-dd HH:mm:ss"},
				"target_field":   "@timestamp",
				"ignore_failure": true,
			}},
			{"remove": {
				"field":          "timestamp",
				"ignore_failure": true,
			}},
		},
	}
}

// Registrar installs the pipeline.
type Registrar struct {
	client *req.Client
	logger *slog.Logger
}

// NewRegistrar returns a Registrar talking to the Elasticsearch at baseURL.
func NewRegistrar(baseURL string, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}
	client := req.C().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(30 * time.Second).
		SetCommonRetryCount(2).
		SetCommonRetryBackoffInterval(time.Second, 5*time.Second)
	return &Registrar{client: client, logger: logger}
}

// Register creates or replaces the pipeline. The call is idempotent.
func (r *Registrar) Register(ctx context.Context, p Pipeline) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(p).
		Put("/_ingest/pipeline/" + PipelineName)
	if err != nil {
		return fmt.Errorf("ingest: register pipeline: %w", err)
	}
	if resp.IsErrorState() {
		return fmt.Errorf("ingest: register pipeline: %s: %s", resp.Status, resp.String())
	}
	return nil
}

// RegisterAsync runs Register in the background. A failure is only logged;
// harvesting does not depend on the pipeline.
func (r *Registrar) RegisterAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		err := r.Register(ctx, DefaultPipeline())
		if err != nil {
			r.logger.Warn("ingest pipeline registration failed", "pipeline", PipelineName, "error", err)
		} else {
			r.logger.Info("ingest pipeline registered", "pipeline", PipelineName)
		}
		done <- err
		close(done)
	}()
	return done
}

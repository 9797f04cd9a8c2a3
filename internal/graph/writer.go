// Package graph writes harvested questions into Neo4j as
// (:Page)-[:HAS_QUESTION]->(:Question)-[:IN_CATEGORY]->(:Category).
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"interview-harvester/internal/models"
)

// Statement is a single Cypher query with its parameters.
type Statement struct {
	Query  string
	Params map[string]any
}

// QuestionWriter persists crawl jobs.
type QuestionWriter struct {
	driver DriverSessioner
	logger *zap.Logger
}

func NewQuestionWriter(driver DriverSessioner, logger *zap.Logger) *QuestionWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionWriter{driver: driver, logger: logger.With(zap.String("component", "graph_writer"))}
}

// WriteJob merges the job's page and the given questions in one transaction.
func (w *QuestionWriter) WriteJob(ctx context.Context, job models.CrawlJob, questions []models.QuestionRecord) error {
	if job.URL == "" {
		return nil
	}
	statements := BuildJobStatements(job, questions)

	session := w.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(ctx); err != nil {
			w.logger.Warn("neo4j session close error", zap.Error(err))
		}
	}()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, st := range statements {
			if _, err := tx.Run(ctx, st.Query, st.Params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("write job %s: %w", job.ID, err)
	}
	return nil
}

// Close closes the driver.
func (w *QuestionWriter) Close(ctx context.Context) error {
	return w.driver.Close(ctx)
}

// BuildJobStatements returns the page upsert followed, when there are
// questions, by a batched question upsert.
func BuildJobStatements(job models.CrawlJob, questions []models.QuestionRecord) []Statement {
	var title any
	if job.Title != "" {
		title = job.Title
	}
	statements := []Statement{{
		Query: "MERGE (p:Page {url: $url}) " +
			"SET p.title = coalesce($title, p.title), p.last_job_id = $job_id, p.scraped_at = $scraped_at",
		Params: map[string]any{
			"url":        job.URL,
			"title":      title,
			"job_id":     job.ID,
			"scraped_at": job.ScrapedAt.UTC().Format(time.RFC3339),
		},
	}}
	if len(questions) == 0 {
		return statements
	}

	rows := make([]map[string]any, 0, len(questions))
	for _, q := range questions {
		if q.Question == "" {
			continue
		}
		category := q.Category
		if category == "" {
			category = "General"
		}
		rows = append(rows, map[string]any{
			"key":        q.Key(),
			"text":       q.Question,
			"answer":     q.Answer,
			"category":   category,
			"scraped_at": q.ScrapedAt.UTC().Format(time.RFC3339),
		})
	}
	if len(rows) == 0 {
		return statements
	}
	statements = append(statements, Statement{
		Query: "MATCH (p:Page {url: $url}) " +
			"UNWIND $questions AS row " +
			"MERGE (q:Question {key: row.key}) " +
			"ON CREATE SET q.text = row.text, q.answer = row.answer, q.scraped_at = row.scraped_at " +
			"MERGE (c:Category {name: row.category}) " +
			"MERGE (p)-[:HAS_QUESTION]->(q) " +
			"MERGE (q)-[:IN_CATEGORY]->(c)",
		Params: map[string]any{
			"url":       job.URL,
			"questions": rows,
		},
	})
	return statements
}

// Package releasedao stores one record per deploy attempt so history,
// promotion, and rollback can reason about what actually shipped.
package releasedao

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/savaki/ddb/v2"
)

// TableName derives the release table name from the environment.
func TableName(env string) string {
	return fmt.Sprintf("stackpilot-%s-releases", env)
}

// PK represents a DynamoDB partition key in format {stack}/{env}
// Example: chat-api/dev
type PK string

// NewPK creates a new partition key from stack and env
func NewPK(stack, env string) PK {
	return PK(fmt.Sprintf("%s/%s", stack, env))
}

// ParsePK parses a partition key into its stack and env components
func ParsePK(pk PK) (stack, env string, err error) {
	s := string(pk)
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid PK format: %s, expected {stack}/{env}", s)
	}
	return parts[0], parts[1], nil
}

// String returns the string representation of the partition key
func (pk PK) String() string {
	return string(pk)
}

// ID represents a release ID in format {stack}/{env}:{ksuid}
// Example: chat-api/dev:2HFj3kLmNoPqRsTuVwXy
type ID string

func (id ID) String() string {
	return string(id)
}

// ParseID parses a release ID into its partition key and sort key components
func ParseID(id ID) (pk PK, sk string, err error) {
	s := string(id)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid release ID format: %s, expected {stack}/{env}:{ksuid}", s)
	}
	return PK(parts[0]), parts[1], nil
}

// NewID constructs an ID from partition key and sort key
func NewID(pk PK, sk string) ID {
	return ID(fmt.Sprintf("%s:%s", pk, sk))
}

// Status represents the current status of a release
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusSuccess    Status = "SUCCESS"
	StatusFailed     Status = "FAILED"
)

// Record represents one deploy attempt
type Record struct {
	PK           PK      `ddb:"hash" dynamodbav:"pk"`  // {stack}/{env} - DynamoDB partition key
	SK           string  `ddb:"range" dynamodbav:"sk"` // KSUID - DynamoDB sort key
	Stack        string  `dynamodbav:"stack,omitempty"`
	Env          string  `dynamodbav:"env,omitempty"`
	Operation    string  `dynamodbav:"operation,omitempty"`     // CREATE, UPDATE, NOOP, DELETE
	TemplateHash string  `dynamodbav:"template_hash,omitempty"` // sha256 of the template body
	ParamsDigest string  `dynamodbav:"params_digest,omitempty"` // sha256 of the resolved parameters
	ArtifactKey  string  `dynamodbav:"artifact_key,omitempty"`  // S3 prefix of the release snapshot
	Status       Status  `dynamodbav:"status,omitempty"`
	ErrorMsg     *string `dynamodbav:"error_msg,omitempty"`
	StartedAt    int64   `dynamodbav:"started_at,omitempty"`  // Unix epoch timestamp
	FinishedAt   *int64  `dynamodbav:"finished_at,omitempty"` // Unix epoch timestamp of completion
	UpdatedAt    int64   `dynamodbav:"updated_at,omitempty"`  // Unix epoch timestamp of last update
}

// GetID returns the full release ID in format: {stack}/{env}:{ksuid}
func (r *Record) GetID() ID {
	return NewID(r.PK, r.SK)
}

// CreateInput contains the fields needed to create a new release record
type CreateInput struct {
	Stack        string
	Env          string
	SK           string // KSUID sort key
	Operation    string
	TemplateHash string
	ParamsDigest string
	ArtifactKey  string
}

// UpdateInput contains the fields that can be updated on a release record
type UpdateInput struct {
	PK        PK
	SK        string
	Status    *Status
	Operation *string // settled once the engine decides create vs update
	ErrorMsg  *string
}

// DAO provides data access operations for release records
type DAO struct {
	db    *ddb.DDB
	table *ddb.Table
}

// New creates a new DAO instance
func New(client *dynamodb.Client, tableName string) *DAO {
	db := ddb.New(client)
	table := db.MustTable(tableName, &Record{})
	return &DAO{
		db:    db,
		table: table,
	}
}

// Create creates a new release record with initial status PENDING
func (d *DAO) Create(ctx context.Context, input CreateInput) (Record, error) {
	pk := NewPK(input.Stack, input.Env)
	now := time.Now().Unix()

	record := Record{
		PK:           pk,
		SK:           input.SK,
		Stack:        input.Stack,
		Env:          input.Env,
		Operation:    input.Operation,
		TemplateHash: input.TemplateHash,
		ParamsDigest: input.ParamsDigest,
		ArtifactKey:  input.ArtifactKey,
		Status:       StatusPending,
		StartedAt:    now,
		UpdatedAt:    now,
	}

	err := d.table.Put(&record).RunWithContext(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("failed to create release record: %w", err)
	}

	return record, nil
}

// Find retrieves a release record by ID
func (d *DAO) Find(ctx context.Context, id ID) (Record, error) {
	pk, sk, err := ParseID(id)
	if err != nil {
		return Record{}, err
	}

	var record Record

	err = d.table.Get(pk.String()).
		Range(sk).
		ConsistentRead(true).
		ScanWithContext(ctx, &record)
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "item not found") || strings.Contains(errStr, "ItemNotFound") {
			return Record{}, fmt.Errorf("release record not found: %s", id)
		}
		return Record{}, fmt.Errorf("failed to find release record: %w", err)
	}

	if record.PK == "" && record.SK == "" {
		return Record{}, fmt.Errorf("release record not found: %s", id)
	}

	return record, nil
}

// UpdateStatus updates the status of a release record
func (d *DAO) UpdateStatus(ctx context.Context, input UpdateInput) error {
	if input.Status == nil {
		return fmt.Errorf("status is required")
	}

	now := time.Now().Unix()

	update := d.table.Update(input.PK).
		Range(input.SK).
		Set("#Status = ?", string(*input.Status)).
		Set("#UpdatedAt = ?", now)

	if *input.Status == StatusSuccess || *input.Status == StatusFailed {
		update = update.Set("#FinishedAt = ?", now)
	}

	if input.Operation != nil {
		update = update.Set("#Operation = ?", *input.Operation)
	}

	if input.ErrorMsg != nil {
		update = update.Set("#ErrorMsg = ?", *input.ErrorMsg)
	}

	if err := update.RunWithContext(ctx); err != nil {
		return fmt.Errorf("failed to update release status: %w", err)
	}

	return nil
}

// List returns all releases for a stack/env partition, newest first.
// KSUID sort keys are time-ordered, so sorting by SK descending gives
// reverse chronological order.
func (d *DAO) List(ctx context.Context, pk PK) ([]Record, error) {
	var records []Record

	err := d.table.Query("#PK = ?", pk.String()).
		FindAllWithContext(ctx, &records)
	if err != nil {
		return nil, fmt.Errorf("failed to query releases: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].SK > records[j].SK
	})

	return records, nil
}

// LatestSuccess returns the most recent successful release for a
// stack/env, or ErrNoSuccessfulRelease via the caller's check on found.
func (d *DAO) LatestSuccess(ctx context.Context, pk PK) (Record, bool, error) {
	records, err := d.List(ctx, pk)
	if err != nil {
		return Record{}, false, err
	}

	for _, record := range records {
		if record.Status == StatusSuccess {
			return record, true, nil
		}
	}
	return Record{}, false, nil
}

// Delete removes a release record by ID
func (d *DAO) Delete(ctx context.Context, id ID) error {
	pk, sk, err := ParseID(id)
	if err != nil {
		return err
	}

	err = d.table.Delete(pk).
		Range(sk).
		RunWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete release record: %w", err)
	}

	return nil
}

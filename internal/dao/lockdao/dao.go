// Package lockdao serializes stack mutations: one deploy or delete per
// {env}/{stack} at a time, with TTL auto-expiry for crashed runs.
package lockdao

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/savaki/ddb/v2"
)

const (
	lockSK       = "LOCK"
	lockTTLHours = 4 // Auto-expire locks after 4 hours
)

// TableName derives the lock table name from the environment.
func TableName(env string) string {
	return fmt.Sprintf("stackpilot-%s-locks", env)
}

// PK represents the partition key: {env}/{stack}
type PK string

// NewPK creates a partition key from env and stack
func NewPK(env, stack string) PK {
	return PK(fmt.Sprintf("%s/%s", env, stack))
}

// ParsePK parses a partition key into env and stack components
func ParsePK(pk PK) (env, stack string, err error) {
	s := string(pk)
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid PK format: %s, expected {env}/{stack}", s)
	}
	return parts[0], parts[1], nil
}

// String returns the string representation
func (pk PK) String() string {
	return string(pk)
}

// ID represents a lock ID in format {env}/{stack}:LOCK
// Example: dev/chat-api:LOCK
type ID string

// NewID creates an ID from env and stack
func NewID(env, stack string) ID {
	pk := NewPK(env, stack)
	return ID(fmt.Sprintf("%s:%s", pk, lockSK))
}

// ParseID parses an ID into env and stack components
func ParseID(id ID) (env, stack string, err error) {
	s := string(id)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid ID format: %s, expected {env}/{stack}:LOCK", s)
	}

	if parts[1] != lockSK {
		return "", "", fmt.Errorf("invalid ID format: %s, expected SK to be 'LOCK', got '%s'", s, parts[1])
	}

	pkParts := strings.Split(parts[0], "/")
	if len(pkParts) != 2 {
		return "", "", fmt.Errorf("invalid PK in ID: %s, expected {env}/{stack}", parts[0])
	}

	return pkParts[0], pkParts[1], nil
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// Record represents a deployment lock
type Record struct {
	PK         PK     `ddb:"hash" dynamodbav:"pk"`  // {env}/{stack}
	SK         string `ddb:"range" dynamodbav:"sk"` // Always "LOCK"
	ReleaseID  string `dynamodbav:"release_id"`     // KSUID of the release holding the lock
	HolderArn  string `dynamodbav:"holder_arn"`     // Caller ARN that acquired the lock
	AcquiredAt int64  `dynamodbav:"acquired_at"`    // Unix timestamp when lock was acquired
	TTL        int64  `dynamodbav:"ttl"`            // Unix timestamp for DynamoDB TTL expiry
}

// GetID returns the ID for this record
func (r *Record) GetID() ID {
	env, stack, _ := ParsePK(r.PK)
	return NewID(env, stack)
}

// AcquireInput contains fields for acquiring a deployment lock
type AcquireInput struct {
	Env       string
	Stack     string
	ReleaseID string // Release KSUID
	HolderArn string // Caller ARN
}

// ReleaseInput contains fields for releasing a deployment lock
type ReleaseInput struct {
	ID        ID
	ReleaseID string // Release KSUID (must match lock holder)
}

// DAO provides data access operations for deployment locks
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

// Acquire attempts to acquire a deployment lock with a conditional put,
// so two concurrent callers cannot both win.
// Returns the lock record if acquired, the holder's record and false if
// already held by another release.
func (d *DAO) Acquire(ctx context.Context, input AcquireInput) (*Record, bool, error) {
	now := time.Now().Unix()
	ttl := now + (lockTTLHours * 3600)

	pk := NewPK(input.Env, input.Stack)
	record := &Record{
		PK:         pk,
		SK:         lockSK,
		ReleaseID:  input.ReleaseID,
		HolderArn:  input.HolderArn,
		AcquiredAt: now,
		TTL:        ttl,
	}

	err := d.table.Put(record).
		Condition("attribute_not_exists(#PK)").
		RunWithContext(ctx)
	if err == nil {
		return record, true, nil
	}
	if !strings.Contains(err.Error(), "ConditionalCheckFailed") {
		return nil, false, fmt.Errorf("failed to create lock: %w", err)
	}

	// Lost the conditional put; report the current holder.
	existing, err := d.Find(ctx, NewID(input.Env, input.Stack))
	if err != nil {
		return nil, false, fmt.Errorf("failed to check existing lock: %w", err)
	}
	if existing == nil {
		// Holder released between the put and the read. The caller
		// retries with a fresh release rather than looping here.
		return nil, false, nil
	}
	if existing.ReleaseID == input.ReleaseID {
		// Same release already holds the lock (retry scenario)
		return existing, true, nil
	}
	return existing, false, nil
}

// Find retrieves a lock record by ID.
// Returns nil if not found.
func (d *DAO) Find(ctx context.Context, id ID) (*Record, error) {
	env, stack, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	pk := NewPK(env, stack)
	var record Record

	err = d.table.Get(pk.String()).
		Range(lockSK).
		ConsistentRead(true).
		ScanWithContext(ctx, &record)
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "item not found") || strings.Contains(errStr, "ItemNotFound") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get lock: %w", err)
	}

	if record.PK == "" && record.SK == "" {
		return nil, nil
	}

	return &record, nil
}

// Release releases a deployment lock.
// Only succeeds if the lock is held by the specified release.
func (d *DAO) Release(ctx context.Context, input ReleaseInput) error {
	env, stack, err := ParseID(input.ID)
	if err != nil {
		return err
	}

	existing, err := d.Find(ctx, input.ID)
	if err != nil {
		return fmt.Errorf("failed to check lock: %w", err)
	}

	if existing == nil {
		// No lock exists (already released or expired)
		return nil
	}

	if existing.ReleaseID != input.ReleaseID {
		return fmt.Errorf("lock not held by release %s (held by %s)", input.ReleaseID, existing.ReleaseID)
	}

	pk := NewPK(env, stack)
	err = d.table.Delete(pk.String()).
		Range(lockSK).
		RunWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete lock: %w", err)
	}

	return nil
}

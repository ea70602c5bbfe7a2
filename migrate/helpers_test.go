package migrate_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/canopy/record"
)

// fakeSession records statements and answers SELECTs with rows.
type fakeSession struct {
	mu      sync.Mutex
	stmts   []string
	batches [][]string
	rows    []record.Row

	// failOn makes statements containing it fail with err.
	failOn string
	err    error
}

func (f *fakeSession) Execute(_ context.Context, stmt string, _ record.ExecOptions) (record.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stmts = append(f.stmts, stmt)
	if f.err != nil && strings.Contains(stmt, f.failOn) {
		return nil, f.err
	}
	if strings.HasPrefix(stmt, "SELECT") {
		return fakePage(append([]record.Row(nil), f.rows...)), nil
	}
	return fakePage(nil), nil
}

func (f *fakeSession) ExecuteBatch(_ context.Context, stmts []string, _ record.ExecOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.batches = append(f.batches, append([]string(nil), stmts...))
	return nil
}

func (f *fakeSession) statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.stmts...)
}

type fakePage []record.Row

func (p fakePage) Rows() []record.Row { return p }

func (p fakePage) NextPage(context.Context) (record.Page, error) { return nil, nil }

// memLedger is an in-memory Ledger.
type memLedger struct {
	mu       sync.Mutex
	versions map[int64]bool
	created  bool

	recordErr error
}

func newMemLedger(applied ...int64) *memLedger {
	l := &memLedger{versions: make(map[int64]bool)}
	for _, v := range applied {
		l.versions[v] = true
	}
	return l
}

func (l *memLedger) CreateTable(context.Context, bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.created = true
	return nil
}

func (l *memLedger) Applied(context.Context) ([]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []int64
	for v := range l.versions {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (l *memLedger) Record(_ context.Context, v int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.recordErr != nil {
		return l.recordErr
	}
	l.versions[v] = true
	return nil
}

func (l *memLedger) Remove(_ context.Context, v int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.versions, v)
	return nil
}

// fakeDynamo is an in-memory DynamoAPI holding one table keyed by "version".
// Scans return at most pageSize items per page.
type fakeDynamo struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	puts     []*dynamodb.PutItemInput
	creates  []*dynamodb.CreateTableInput
	exists   bool
	pageSize int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue), pageSize: 1}
}

func versionOf(item map[string]types.AttributeValue) string {
	if s, ok := item["version"].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		after := versionOf(in.ExclusiveStartKey)
		start = sort.SearchStrings(keys, after)
		if start < len(keys) && keys[start] == after {
			start++
		}
	}
	end := start + f.pageSize
	if end > len(keys) {
		end = len(keys)
	}

	out := &dynamodb.ScanOutput{}
	for _, k := range keys[start:end] {
		out.Items = append(out.Items, f.items[k])
	}
	if end < len(keys) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"version": &types.AttributeValueMemberS{Value: keys[end-1]},
		}
	}
	return out, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.puts = append(f.puts, in)
	v := versionOf(in.Item)
	if _, ok := f.items[v]; ok && aws.ToString(in.ConditionExpression) != "" {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	f.items[v] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.items, versionOf(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.creates = append(f.creates, in)
	if f.exists {
		return nil, &types.ResourceInUseException{Message: aws.String("Table already exists")}
	}
	f.exists = true
	return &dynamodb.CreateTableOutput{}, nil
}

var errBoom = errors.New("boom")

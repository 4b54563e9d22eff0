package dynamo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type item = map[string]types.AttributeValue

type fakeTable struct {
	hash, rng string
	indexes   map[string]string // index name -> range attribute
	items     map[string]item
}

// fakeAPI understands the handful of expressions the store emits
type fakeAPI struct {
	mu       sync.Mutex
	tables   map[string]*fakeTable
	pageSize int
	creates  int
	err      error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{tables: make(map[string]*fakeTable), pageSize: 2}
}

func sval(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func copyItem(in item) item {
	out := make(item, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (t *fakeTable) key(it item) string {
	k := sval(it[t.hash])
	if t.rng != "" {
		k += "|" + sval(it[t.rng])
	}
	return k
}

func evalCondition(expr *string, current item, values item) bool {
	if expr == nil {
		return true
	}
	for _, clause := range strings.Split(*expr, " AND ") {
		clause = strings.TrimSpace(clause)
		switch {
		case strings.HasPrefix(clause, "attribute_exists("):
			name := strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_exists("), ")")
			if _, ok := current[name]; !ok {
				return false
			}
		case strings.HasPrefix(clause, "attribute_not_exists("):
			name := strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_not_exists("), ")")
			if _, ok := current[name]; ok {
				return false
			}
		default:
			parts := strings.SplitN(clause, " = ", 2)
			got, ok := current[parts[0]]
			if !ok || sval(got) != sval(values[parts[1]]) {
				return false
			}
		}
	}
	return true
}

func applySet(current item, expr string, values item) {
	for _, assignment := range strings.Split(strings.TrimPrefix(expr, "SET "), ", ") {
		parts := strings.SplitN(assignment, " = ", 2)
		current[parts[0]] = values[parts[1]]
	}
}

func (f *fakeAPI) table(name *string) (*fakeTable, error) {
	t, ok := f.tables[aws.ToString(name)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
	}
	return t, nil
}

func (f *fakeAPI) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTable{indexes: make(map[string]string), items: make(map[string]item)}
	for _, k := range in.KeySchema {
		if k.KeyType == types.KeyTypeHash {
			t.hash = aws.ToString(k.AttributeName)
		} else {
			t.rng = aws.ToString(k.AttributeName)
		}
	}
	for _, idx := range in.LocalSecondaryIndexes {
		for _, k := range idx.KeySchema {
			if k.KeyType == types.KeyTypeRange {
				t.indexes[aws.ToString(idx.IndexName)] = aws.ToString(k.AttributeName)
			}
		}
	}
	f.tables[aws.ToString(in.TableName)] = t
	f.creates++
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeAPI) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.table(in.TableName); err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: types.TableStatusActive,
	}}, nil
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	it, ok := t.items[t.key(in.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(it)}, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	k := t.key(in.Item)
	if !evalCondition(in.ConditionExpression, t.items[k], in.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	t.items[k] = copyItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	k := t.key(in.Key)
	if !evalCondition(in.ConditionExpression, t.items[k], in.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	current, ok := t.items[k]
	if !ok {
		current = copyItem(in.Key)
	}
	applySet(current, aws.ToString(in.UpdateExpression), in.ExpressionAttributeValues)
	t.items[k] = current
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(aws.ToString(in.KeyConditionExpression), " = ", 2)
	want := sval(in.ExpressionAttributeValues[parts[1]])

	var matched []item
	for _, it := range t.items {
		if sval(it[parts[0]]) == want {
			matched = append(matched, it)
		}
	}
	sortBy := t.rng
	if in.IndexName != nil {
		sortBy = t.indexes[aws.ToString(in.IndexName)]
	}
	forward := in.ScanIndexForward == nil || *in.ScanIndexForward
	sort.Slice(matched, func(i, j int) bool {
		if forward {
			return sval(matched[i][sortBy]) < sval(matched[j][sortBy])
		}
		return sval(matched[i][sortBy]) > sval(matched[j][sortBy])
	})

	start := 0
	if in.ExclusiveStartKey != nil {
		after := t.key(in.ExclusiveStartKey)
		for i, it := range matched {
			if t.key(it) == after {
				start = i + 1
				break
			}
		}
	}
	end := start + f.pageSize
	out := &dynamodb.QueryOutput{}
	if end < len(matched) {
		last := matched[end-1]
		out.LastEvaluatedKey = item{t.hash: last[t.hash], t.rng: last[t.rng]}
	} else {
		end = len(matched)
	}
	for _, it := range matched[start:end] {
		out.Items = append(out.Items, copyItem(it))
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

func (f *fakeAPI) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	type step struct {
		table *fakeTable
		key   string
		apply func(t *fakeTable)
	}
	steps := make([]step, 0, len(in.TransactItems))
	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, ti := range in.TransactItems {
		var (
			name   *string
			keyIt  item
			cond   *string
			values item
			apply  func(t *fakeTable, k string)
		)
		switch {
		case ti.Put != nil:
			put := ti.Put
			name, keyIt, cond, values = put.TableName, put.Item, put.ConditionExpression, put.ExpressionAttributeValues
			apply = func(t *fakeTable, k string) { t.items[k] = copyItem(put.Item) }
		case ti.Update != nil:
			upd := ti.Update
			name, keyIt, cond, values = upd.TableName, upd.Key, upd.ConditionExpression, upd.ExpressionAttributeValues
			apply = func(t *fakeTable, k string) {
				current, ok := t.items[k]
				if !ok {
					current = copyItem(upd.Key)
				}
				applySet(current, aws.ToString(upd.UpdateExpression), upd.ExpressionAttributeValues)
				t.items[k] = current
			}
		case ti.Delete != nil:
			del := ti.Delete
			name, keyIt, cond, values = del.TableName, del.Key, del.ConditionExpression, del.ExpressionAttributeValues
			apply = func(t *fakeTable, k string) { delete(t.items, k) }
		}
		t, err := f.table(name)
		if err != nil {
			return nil, err
		}
		k := t.key(keyIt)
		reasons[i].Code = aws.String("None")
		if !evalCondition(cond, t.items[k], values) {
			reasons[i].Code = aws.String(conditionFailed)
			failed = true
		}
		steps = append(steps, step{table: t, key: k, apply: func(t *fakeTable) { apply(t, k) }})
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}
	for _, s := range steps {
		s.apply(s.table)
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	graphql "github.com/graph-gophers/graphql-go"
	"go.uber.org/zap"

	"ledgerScope/internal/model"
	"ledgerScope/internal/query"
)

const schemaSDL = `
schema {
	query: Query
}

scalar Uint64

type Query {
	block(hash: String!): Block
	blocksByNumber(number: Uint64!): [Block!]!
	latestBlocks(limit: Int!): [Block!]!
	transaction(hash: String!): Transaction
	transactionsForBlock(blockHash: String, blockNumber: Uint64): [Transaction!]!
}

type Block {
	hash: String!
	number: Uint64!
	timestamp: Uint64!
	transactions: [String!]!
}

type Transaction {
	hash: String!
	blockHash: String!
	from: String!
	to: String!
	value: Uint64!
	blockNumber: Uint64!
}
`

// Uint64 is the GraphQL scalar for block numbers, timestamps and values,
// which do not fit the 32-bit Int type. Inline integer literals are parsed
// by the GraphQL library as 32-bit Int and fail above 2147483647, so larger
// values must be sent as variables or as decimal string literals
// (number: "5000000000"). Variables above 2^53 lose precision in JSON and
// should also be sent as strings.
type Uint64 uint64

func (Uint64) ImplementsGraphQLType(name string) bool {
	return name == "Uint64"
}

func (u *Uint64) UnmarshalGraphQL(input interface{}) error {
	switch v := input.(type) {
	case int32:
		if v < 0 {
			return fmt.Errorf("Uint64 must not be negative: %d", v)
		}
		*u = Uint64(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("Uint64 must not be negative: %d", v)
		}
		*u = Uint64(v)
	case int:
		if v < 0 {
			return fmt.Errorf("Uint64 must not be negative: %d", v)
		}
		*u = Uint64(v)
	case float64:
		if v < 0 || v != math.Trunc(v) || v >= math.MaxUint64 {
			return fmt.Errorf("Uint64 must be a non-negative integer: %v", v)
		}
		*u = Uint64(v)
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("Uint64 parse %q: %w", v, err)
		}
		*u = Uint64(n)
	default:
		return fmt.Errorf("wrong type for Uint64: %T", input)
	}
	return nil
}

func (u Uint64) MarshalJSON() ([]byte, error) {
	return strconv.AppendUint(nil, uint64(u), 10), nil
}

// NewSchema parses the query schema over engine. Panics inside the GraphQL
// executor are reported to the client as errors and logged to logger.
func NewSchema(engine *query.Engine, logger *zap.Logger) (*graphql.Schema, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return graphql.ParseSchema(schemaSDL, &queryResolver{engine: engine}, graphql.Logger(panicLogger{logger: logger}))
}

// panicLogger routes executor panics to zap.
type panicLogger struct {
	logger *zap.Logger
}

func (l panicLogger) LogPanic(_ context.Context, value interface{}) {
	l.logger.Error("graphql panic recovered", zap.Any("panic", value))
}

type queryResolver struct {
	engine *query.Engine
}

func (r *queryResolver) Block(args struct{ Hash string }) *blockResolver {
	block, ok := r.engine.Block(args.Hash)
	if !ok {
		return nil
	}
	return &blockResolver{block: block}
}

func (r *queryResolver) BlocksByNumber(args struct{ Number Uint64 }) []*blockResolver {
	return blockResolvers(r.engine.BlocksByNumber(uint64(args.Number)))
}

func (r *queryResolver) LatestBlocks(args struct{ Limit int32 }) ([]*blockResolver, error) {
	if args.Limit < 0 {
		return nil, fmt.Errorf("limit must not be negative: %d", args.Limit)
	}
	return blockResolvers(r.engine.LatestBlocks(int(args.Limit))), nil
}

func (r *queryResolver) Transaction(args struct{ Hash string }) *txResolver {
	tx, ok := r.engine.Transaction(args.Hash)
	if !ok {
		return nil
	}
	return &txResolver{tx: tx}
}

func (r *queryResolver) TransactionsForBlock(args struct {
	BlockHash   *string
	BlockNumber *Uint64
}) []*txResolver {
	var filter query.TransactionFilter
	filter.BlockHash = args.BlockHash
	if args.BlockNumber != nil {
		number := uint64(*args.BlockNumber)
		filter.BlockNumber = &number
	}

	txs := r.engine.TransactionsForBlock(filter)
	out := make([]*txResolver, 0, len(txs))
	for _, tx := range txs {
		out = append(out, &txResolver{tx: tx})
	}
	return out
}

func blockResolvers(blocks []model.Block) []*blockResolver {
	out := make([]*blockResolver, 0, len(blocks))
	for _, block := range blocks {
		out = append(out, &blockResolver{block: block})
	}
	return out
}

type blockResolver struct {
	block model.Block
}

func (b *blockResolver) Hash() string      { return b.block.Hash }
func (b *blockResolver) Number() Uint64    { return Uint64(b.block.Number) }
func (b *blockResolver) Timestamp() Uint64 { return Uint64(b.block.Timestamp) }

func (b *blockResolver) Transactions() []string {
	if b.block.TransactionHashes == nil {
		return []string{}
	}
	return b.block.TransactionHashes
}

type txResolver struct {
	tx model.Transaction
}

func (t *txResolver) Hash() string        { return t.tx.Hash }
func (t *txResolver) BlockHash() string   { return t.tx.BlockHash }
func (t *txResolver) From() string        { return t.tx.From }
func (t *txResolver) To() string          { return t.tx.To }
func (t *txResolver) Value() Uint64       { return Uint64(t.tx.Value) }
func (t *txResolver) BlockNumber() Uint64 { return Uint64(t.tx.BlockNumber) }

type graphqlRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// graphqlHandler serves POST requests with a JSON body and GET requests with
// query, operationName and variables URL parameters.
func graphqlHandler(schema *graphql.Schema) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req graphqlRequest
		if c.Request.Method == http.MethodGet {
			req.Query = c.Query("query")
			req.OperationName = c.Query("operationName")
			if raw := c.Query("variables"); raw != "" {
				if err := json.Unmarshal([]byte(raw), &req.Variables); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid variables"})
					return
				}
			}
		} else if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		if req.Query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
			return
		}

		resp := schema.Exec(c.Request.Context(), req.Query, req.OperationName, req.Variables)
		c.JSON(http.StatusOK, resp)
	}
}

package shared

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/relloyd/starpipe/logger"
)

const mockChanSize = 1000

// MockConnection is a Connector that records the SQL it is asked to run instead of talking to a database.
// Each statement executed is sent to the channel returned by NewMockConnectionWithMockTx.
type MockConnection struct {
	log    logger.Logger
	dbType string
	sqlCh  chan string
	mu     sync.Mutex
	events []string
	// ExecFn optionally decides the outcome of each Exec. Return a nil Result to use the default.
	ExecFn func(query string) (Result, error)
	// QueryFn supplies the columns and rows returned for a query.
	QueryFn func(query string) (columns []string, rows [][]interface{}, err error)
	// BeginErr is returned by Begin when set.
	BeginErr error
	Closed   bool
}

// NewMockConnectionWithMockTx returns a mock Connector plus the channel that receives every SQL statement executed.
func NewMockConnectionWithMockTx(log logger.Logger, dbType string) (*MockConnection, chan string) {
	c := &MockConnection{
		log:    log,
		dbType: dbType,
		sqlCh:  make(chan string, mockChanSize),
	}
	return c, c.sqlCh
}

// Events returns the ordered list of BEGIN, EXEC, COMMIT and ROLLBACK calls seen so far.
func (c *MockConnection) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	retval := make([]string, len(c.events))
	copy(retval, c.events)
	return retval
}

func (c *MockConnection) record(event string) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

func (c *MockConnection) exec(ctx context.Context, query string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.log.Debug("mock exec: ", query)
	c.record("EXEC")
	c.sqlCh <- query
	if c.ExecFn != nil {
		r, err := c.ExecFn(query)
		if err != nil {
			return nil, err
		}
		if r != nil {
			return r, nil
		}
	}
	return MockResult{Rows: 0}, nil
}

func (c *MockConnection) Begin() (Transacter, error) {
	return c.BeginTx(context.Background())
}

func (c *MockConnection) BeginTx(ctx context.Context) (Transacter, error) {
	if c.BeginErr != nil {
		return nil, c.BeginErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.record("BEGIN")
	return &MockTx{conn: c, ctx: ctx}, nil
}

func (c *MockConnection) Exec(query string, args ...interface{}) (Result, error) {
	return c.exec(context.Background(), query)
}

func (c *MockConnection) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	return c.exec(ctx, query)
}

func (c *MockConnection) Query(query string, args ...interface{}) (Rows, error) {
	return c.QueryContext(context.Background(), query, args...)
}

func (c *MockConnection) QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.record("QUERY")
	c.sqlCh <- query
	if c.QueryFn == nil {
		return nil, errors.New("mock connection has no QueryFn configured")
	}
	cols, rows, err := c.QueryFn(query)
	if err != nil {
		return nil, err
	}
	return &MockRows{Cols: cols, Data: rows, idx: -1}, nil
}

func (c *MockConnection) Close() {
	c.Closed = true
}

func (c *MockConnection) GetType() string {
	return c.dbType
}

// MockTx passes statements through to its MockConnection.
type MockTx struct {
	conn *MockConnection
	ctx  context.Context
	done bool
}

func (t *MockTx) Exec(query string, args ...interface{}) (Result, error) {
	return t.conn.exec(t.ctx, query)
}

func (t *MockTx) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	return t.conn.exec(ctx, query)
}

func (t *MockTx) Commit() error {
	if t.done {
		return errors.New("transaction has already been committed or rolled back")
	}
	t.done = true
	t.conn.record("COMMIT")
	return nil
}

func (t *MockTx) Rollback() error {
	if t.done {
		return errors.New("transaction has already been committed or rolled back")
	}
	t.done = true
	t.conn.record("ROLLBACK")
	return nil
}

// MockResult reports a fixed number of rows affected.
type MockResult struct {
	Rows int64
}

func (r MockResult) LastInsertId() (int64, error) {
	return 0, errors.New("LastInsertId is not supported")
}

func (r MockResult) RowsAffected() (int64, error) {
	return r.Rows, nil
}

// MockRows iterates over canned data.
type MockRows struct {
	Cols []string
	Data [][]interface{}
	idx  int
}

func (r *MockRows) Columns() ([]string, error) {
	return r.Cols, nil
}

func (r *MockRows) Next() bool {
	r.idx++
	return r.idx < len(r.Data)
}

func (r *MockRows) Scan(dest ...interface{}) error {
	if r.idx < 0 || r.idx >= len(r.Data) {
		return io.EOF
	}
	row := r.Data[r.idx]
	if len(dest) != len(row) {
		return errors.New("mock rows: wrong number of scan destinations")
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *interface{}:
			*p = row[i]
		case *int64:
			v, ok := row[i].(int64)
			if !ok {
				return errors.New("mock rows: value is not an int64")
			}
			*p = v
		case *string:
			v, ok := row[i].(string)
			if !ok {
				return errors.New("mock rows: value is not a string")
			}
			*p = v
		default:
			return errors.New("mock rows: unsupported scan destination")
		}
	}
	return nil
}

func (r *MockRows) Err() error {
	return nil
}

func (r *MockRows) Close() error {
	return nil
}

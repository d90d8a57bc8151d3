package testutil

import (
	"context"
	"database/sql"
	"sync"
)

// ProcedureCall is one recorded stored procedure invocation
type ProcedureCall struct {
	Name string
	Args map[string]any
}

// FakeProcedures stands in for the attendance database. Query results are
// served from a queue; once it is drained every query returns NULL.
type FakeProcedures struct {
	mu       sync.Mutex
	results  []sql.NullString
	queryErr error
	execErr  error
	calls    []ProcedureCall
}

func NewFakeProcedures(batches ...string) *FakeProcedures {
	f := &FakeProcedures{}
	for _, b := range batches {
		f.results = append(f.results, sql.NullString{String: b, Valid: true})
	}
	return f
}

func (f *FakeProcedures) SetQueryError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryErr = err
}

func (f *FakeProcedures) SetExecError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execErr = err
}

func (f *FakeProcedures) QueryProcedure(ctx context.Context, name string, args ...sql.NamedArg) (sql.NullString, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record(name, args)
	if f.queryErr != nil {
		return sql.NullString{}, f.queryErr
	}
	if len(f.results) == 0 {
		return sql.NullString{}, nil
	}
	next := f.results[0]
	f.results = f.results[1:]
	return next, nil
}

func (f *FakeProcedures) ExecProcedure(ctx context.Context, name string, args ...sql.NamedArg) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record(name, args)
	return f.execErr
}

// record must be called with mu held
func (f *FakeProcedures) record(name string, args []sql.NamedArg) {
	call := ProcedureCall{Name: name, Args: make(map[string]any)}
	for _, a := range args {
		call.Args[a.Name] = a.Value
	}
	f.calls = append(f.calls, call)
}

func (f *FakeProcedures) Calls() []ProcedureCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make([]ProcedureCall, len(f.calls))
	copy(result, f.calls)
	return result
}

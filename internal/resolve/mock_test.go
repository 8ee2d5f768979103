package resolve

import (
	"context"

	"github.com/sells-group/lispendens-cli/internal/model"
	"github.com/sells-group/lispendens-cli/internal/registry"
)

// mockSearcher plays back scripted results in call order and records every
// query it saw.
type mockSearcher struct {
	calls    []registry.Query
	results  [][]model.CandidateParcel
	errs     []error
	onSearch func(call int)
}

func (m *mockSearcher) Search(_ context.Context, q registry.Query) ([]model.CandidateParcel, error) {
	call := len(m.calls)
	m.calls = append(m.calls, q)
	if m.onSearch != nil {
		m.onSearch(call)
	}
	var res []model.CandidateParcel
	if call < len(m.results) {
		res = m.results[call]
	}
	var err error
	if call < len(m.errs) {
		err = m.errs[call]
	}
	return res, err
}

func testBuilder() *registry.Builder {
	return registry.NewBuilder(map[string]string{"flagler": "28", "volusia": "74"}, 0)
}

func intPtr(n int) *int { return &n }

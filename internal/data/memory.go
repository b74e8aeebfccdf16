package data

import (
    "fmt"
    "sort"
)

// Dataset is the read-only accessor the forest trains against.
// AllValues must return a deterministic order so that split tie-breaks
// are reproducible; Memory returns values ascending.
type Dataset interface {
    Get(sampleID, varID int) float64
    AllValues(sampleIDs []int, varID int) []float64
    NumSamples() int
    NumVariables() int
    VariableNames() []string
}

type Memory struct {
    names []string
    cols  [][]float64
    nrow  int
}

func NewMemory(names []string, nrow int) *Memory {
    cols := make([][]float64, len(names))
    for i := range cols {
        cols[i] = make([]float64, nrow)
    }
    return &Memory{names: names, cols: cols, nrow: nrow}
}

func NewMemoryFromRows(names []string, rows [][]float64) (*Memory, error) {
    m := NewMemory(names, len(rows))
    for i, row := range rows {
        if len(row) != len(names) {
            return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(names))
        }
        for j, v := range row {
            m.cols[j][i] = v
        }
    }
    return m, nil
}

func (m *Memory) Set(sampleID, varID int, v float64) { m.cols[varID][sampleID] = v }

func (m *Memory) Get(sampleID, varID int) float64 { return m.cols[varID][sampleID] }

func (m *Memory) AllValues(sampleIDs []int, varID int) []float64 {
    col := m.cols[varID]
    vals := make([]float64, 0, len(sampleIDs))
    for _, s := range sampleIDs {
        vals = append(vals, col[s])
    }
    sort.Float64s(vals)
    out := vals[:0]
    for i, v := range vals {
        if i == 0 || v != out[len(out)-1] {
            out = append(out, v)
        }
    }
    return out
}

func (m *Memory) NumSamples() int { return m.nrow }

func (m *Memory) NumVariables() int { return len(m.cols) }

func (m *Memory) VariableNames() []string { return m.names }

func (m *Memory) VarID(name string) (int, error) {
    for i, n := range m.names {
        if n == name {
            return i, nil
        }
    }
    return 0, fmt.Errorf("variable %q not in dataset", name)
}

package data

import (
    "encoding/csv"
    "fmt"
    "os"
    "strconv"
)

// LoadCSV reads a numeric dataset: first row is the header with variable
// names, every other cell a float.
func LoadCSV(path string) (*Memory, error) {
    f, err := os.Open(path)
    if err != nil {
        return nil, err
    }
    defer f.Close()

    r := csv.NewReader(f)
    rows, err := r.ReadAll()
    if err != nil {
        return nil, err
    }
    if len(rows) < 2 {
        return nil, fmt.Errorf("dataset %s has no samples", path)
    }

    names := rows[0]
    m := NewMemory(names, len(rows)-1)
    for i := 1; i < len(rows); i++ {
        if len(rows[i]) != len(names) {
            return nil, fmt.Errorf("line %d has %d columns, header has %d", i+1, len(rows[i]), len(names))
        }
        for j, cell := range rows[i] {
            v, err := strconv.ParseFloat(cell, 64)
            if err != nil {
                return nil, fmt.Errorf("line %d column %q: %w", i+1, names[j], err)
            }
            m.Set(i-1, j, v)
        }
    }
    return m, nil
}

package models

import (
    "encoding/binary"
    "os"
    "path/filepath"
    "strings"
    "testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
    ds := twoClassDataset(t)
    f := trainForest(t, ds, 1)

    path := filepath.Join(t.TempDir(), "model.forest")
    if err := f.SaveToFile(path); err != nil {
        t.Fatal(err)
    }
    loaded, err := LoadForest(path, ds.NumVariables(), 4)
    if err != nil {
        t.Fatal(err)
    }

    if loaded.NumTrees != f.NumTrees {
        t.Fatalf("loaded %d trees, want %d", loaded.NumTrees, f.NumTrees)
    }
    if loaded.NumVariables() != f.NumVariables() {
        t.Fatalf("loaded %d variables, want %d", loaded.NumVariables(), f.NumVariables())
    }
    if len(loaded.ClassValues) != len(f.ClassValues) {
        t.Fatalf("class values %v, want %v", loaded.ClassValues, f.ClassValues)
    }
    for i := range f.ClassValues {
        if loaded.ClassValues[i] != f.ClassValues[i] {
            t.Fatalf("class values %v, want %v", loaded.ClassValues, f.ClassValues)
        }
    }
    for i := range f.Trees {
        want, got := f.Trees[i], loaded.Trees[i]
        if got.NumNodes() != want.NumNodes() {
            t.Fatalf("tree %d: %d nodes, want %d", i, got.NumNodes(), want.NumNodes())
        }
        for n := 0; n < want.NumNodes(); n++ {
            if got.SplitVarIDs[n] != want.SplitVarIDs[n] ||
                got.SplitValues[n] != want.SplitValues[n] ||
                got.ChildNodeIDs[0][n] != want.ChildNodeIDs[0][n] ||
                got.ChildNodeIDs[1][n] != want.ChildNodeIDs[1][n] {
                t.Fatalf("tree %d node %d does not round-trip", i, n)
            }
        }
    }

    // Loaded trees traverse identically to the originals.
    for i := 0; i < ds.NumSamples(); i++ {
        want := f.Trees[0].PredictSample(ds, i)
        got := loaded.Trees[0].PredictSample(ds, i)
        if want != got {
            t.Fatalf("sample %d: loaded tree predicts %v, original %v", i, got, want)
        }
    }
}

func TestLoadRejectsWrongTreeType(t *testing.T) {
    path := filepath.Join(t.TempDir(), "bad.forest")
    file, err := os.Create(path)
    if err != nil {
        t.Fatal(err)
    }
    binary.Write(file, binary.LittleEndian, uint64(5))
    binary.Write(file, binary.LittleEndian, int32(3)) // not a classification tag
    binary.Write(file, binary.LittleEndian, uint64(0))
    file.Close()

    _, err = LoadForest(path, 5, 4)
    if err == nil {
        t.Fatal("expected wrong-type error")
    }
    if !strings.Contains(err.Error(), "not a classification forest") {
        t.Fatalf("unhelpful error: %v", err)
    }
}

func TestLoadMissingFile(t *testing.T) {
    if _, err := LoadForest(filepath.Join(t.TempDir(), "nope.forest"), 0, 0); err == nil {
        t.Fatal("expected error for missing file")
    }
}

// A model saved with more variables than the prediction dataset has its
// split variable IDs shifted down past the response position.
func TestLoadShiftsVarIDsForSmallerVariableSpace(t *testing.T) {
    f := &Forest{
        numVariables: 5,
        ClassValues:  []float64{0, 1},
        Trees: []*Tree{
            {
                ChildNodeIDs: [2][]int{{1, 0, 0}, {2, 0, 0}},
                SplitVarIDs:  []int{3, 0, 0},
                SplitValues:  []float64{0.5, 0, 1},
            },
        },
    }
    path := filepath.Join(t.TempDir(), "shift.forest")
    if err := f.SaveToFile(path); err != nil {
        t.Fatal(err)
    }

    // Current data misses the response column at index 2: 4 variables.
    loaded, err := LoadForest(path, 4, 2)
    if err != nil {
        t.Fatal(err)
    }
    if got := loaded.Trees[0].SplitVarIDs[0]; got != 2 {
        t.Fatalf("split varID = %d, want 3 shifted to 2", got)
    }
    // IDs below the response position stay put (leaves keep zero).
    if got := loaded.Trees[0].SplitVarIDs[1]; got != 0 {
        t.Fatalf("leaf varID = %d, want 0", got)
    }
}

// A corrupted length prefix must fail with a descriptive error instead
// of attempting a multi-gigabyte allocation.
func TestLoadRejectsOversizedLengthPrefix(t *testing.T) {
    path := filepath.Join(t.TempDir(), "huge.forest")
    file, err := os.Create(path)
    if err != nil {
        t.Fatal(err)
    }
    binary.Write(file, binary.LittleEndian, uint64(5))
    binary.Write(file, binary.LittleEndian, treeTypeClassification)
    binary.Write(file, binary.LittleEndian, uint64(1)<<40) // class values length
    file.Close()

    _, err = LoadForest(path, 5, 4)
    if err == nil {
        t.Fatal("expected error for oversized length prefix")
    }
    if !strings.Contains(err.Error(), "length prefix") {
        t.Fatalf("unhelpful error: %v", err)
    }
}

func TestLoadTruncatedFileFails(t *testing.T) {
    ds := twoClassDataset(t)
    f := trainForest(t, ds, 1)
    path := filepath.Join(t.TempDir(), "trunc.forest")
    if err := f.SaveToFile(path); err != nil {
        t.Fatal(err)
    }
    raw, err := os.ReadFile(path)
    if err != nil {
        t.Fatal(err)
    }
    if err := os.WriteFile(path, raw[:len(raw)-5], 0o644); err != nil {
        t.Fatal(err)
    }
    if _, err := LoadForest(path, ds.NumVariables(), 4); err == nil {
        t.Fatal("expected error for truncated file")
    }
}

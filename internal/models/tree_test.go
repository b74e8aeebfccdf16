package models

import (
    "math/rand"
    "testing"

    "arbor/internal/data"
)

// allInBag keeps every sample in-bag, nothing out-of-bag. Makes tree
// growth a pure function of the dataset.
type allInBag struct{}

func (allInBag) Draw(rng *rand.Rand, numSamples int) ([]int, []int) {
    inbag := make([]int, numSamples)
    for i := range inbag {
        inbag[i] = i
    }
    return inbag, nil
}

func mustDataset(t *testing.T, names []string, rows [][]float64) *data.Memory {
    t.Helper()
    ds, err := data.NewMemoryFromRows(names, rows)
    if err != nil {
        t.Fatal(err)
    }
    return ds
}

// x in {1,2}, class follows x. depvar is column 1.
func stepDataset(t *testing.T) *data.Memory {
    return mustDataset(t, []string{"x", "class"}, [][]float64{
        {1, 0}, {1, 0}, {2, 1}, {2, 1},
    })
}

func grownTree(t *testing.T, ds *data.Memory, depVarID, minNodeSize int) *Tree {
    t.Helper()
    f := NewForest(ds, depVarID)
    f.NumTrees = 1
    f.NumThreads = 1
    f.MinNodeSize = minNodeSize
    f.Sampler = allInBag{}
    if err := f.Init(); err != nil {
        t.Fatal(err)
    }
    f.Grow()
    return f.Trees[0]
}

func TestTreeSplitsStepData(t *testing.T) {
    tree := grownTree(t, stepDataset(t), 1, 1)

    if tree.NumNodes() != 3 {
        t.Fatalf("got %d nodes, want 3", tree.NumNodes())
    }
    if tree.SplitVarIDs[0] != 0 {
        t.Fatalf("root split variable = %d, want 0", tree.SplitVarIDs[0])
    }
    if tree.SplitValues[0] != 1 {
        t.Fatalf("root threshold = %v, want 1", tree.SplitValues[0])
    }
    left := tree.ChildNodeIDs[0][0]
    right := tree.ChildNodeIDs[1][0]
    if tree.SplitValues[left] != 0 || tree.SplitValues[right] != 1 {
        t.Fatalf("leaf values = %v, %v, want 0, 1", tree.SplitValues[left], tree.SplitValues[right])
    }
}

// A sample equal to the threshold routes left: pins the <= routing rule.
func TestRoutingUsesLessOrEqual(t *testing.T) {
    ds := stepDataset(t)
    tree := grownTree(t, ds, 1, 1)
    if got := tree.PredictSample(ds, 0); got != 0 {
        t.Fatalf("sample at threshold predicted %v, want left leaf value 0", got)
    }
    if got := tree.PredictSample(ds, 2); got != 1 {
        t.Fatalf("sample above threshold predicted %v, want 1", got)
    }
}

// A node with exactly minNodeSize samples becomes a leaf: pins the <=
// in the minimum-size stop.
func TestMinNodeSizeStopUsesLessOrEqual(t *testing.T) {
    tree := grownTree(t, stepDataset(t), 1, 4)
    if tree.NumNodes() != 1 {
        t.Fatalf("got %d nodes, want a single leaf", tree.NumNodes())
    }
    if v := tree.SplitValues[0]; v != 0 && v != 1 {
        t.Fatalf("leaf value = %v, want one of the class values", v)
    }

    // One size larger and the root must split again.
    tree = grownTree(t, stepDataset(t), 1, 3)
    if tree.NumNodes() != 3 {
        t.Fatalf("got %d nodes, want 3", tree.NumNodes())
    }
}

func TestPureNodeBecomesLeaf(t *testing.T) {
    ds := mustDataset(t, []string{"x", "class"}, [][]float64{
        {1, 7}, {2, 7}, {3, 7}, {4, 7},
    })
    tree := grownTree(t, ds, 1, 1)
    if tree.NumNodes() != 1 {
        t.Fatalf("pure node split into %d nodes", tree.NumNodes())
    }
    if tree.SplitValues[0] != 7 {
        t.Fatalf("pure leaf value = %v, want 7", tree.SplitValues[0])
    }
}

func TestConstantVariableBecomesLeaf(t *testing.T) {
    ds := mustDataset(t, []string{"x", "class"}, [][]float64{
        {5, 0}, {5, 1}, {5, 0}, {5, 1},
    })
    tree := grownTree(t, ds, 1, 1)
    if tree.NumNodes() != 1 {
        t.Fatalf("constant variable split into %d nodes", tree.NumNodes())
    }
}

func TestTreeTopology(t *testing.T) {
    rng := rand.New(rand.NewSource(3))
    rows := make([][]float64, 60)
    for i := range rows {
        x0, x1, x2 := rng.Float64(), rng.Float64(), rng.Float64()
        class := 0.0
        if x0+x1 > 1 {
            class = 1
        }
        rows[i] = []float64{x0, x1, x2, class}
    }
    ds := mustDataset(t, []string{"x0", "x1", "x2", "class"}, rows)
    tree := grownTree(t, ds, 3, 1)

    n := tree.NumNodes()
    parentCount := make([]int, n)
    for nodeID := 0; nodeID < n; nodeID++ {
        left := tree.ChildNodeIDs[0][nodeID]
        right := tree.ChildNodeIDs[1][nodeID]
        if left == 0 && right == 0 {
            continue
        }
        if left <= nodeID || right <= nodeID {
            t.Fatalf("node %d has child not greater than itself: %d, %d", nodeID, left, right)
        }
        if left == right {
            t.Fatalf("node %d has identical children", nodeID)
        }
        if left >= n || right >= n {
            t.Fatalf("node %d has out-of-range child", nodeID)
        }
        parentCount[left]++
        parentCount[right]++
    }
    if parentCount[0] != 0 {
        t.Fatal("root appears as a child")
    }
    for nodeID := 1; nodeID < n; nodeID++ {
        if parentCount[nodeID] != 1 {
            t.Fatalf("node %d has %d parents, want 1", nodeID, parentCount[nodeID])
        }
    }

    // Each internal node's membership splits exactly across its children:
    // count samples routed through every node and compare.
    reach := make([]int, n)
    for sampleID := 0; sampleID < ds.NumSamples(); sampleID++ {
        nodeID := 0
        for {
            reach[nodeID]++
            left := tree.ChildNodeIDs[0][nodeID]
            right := tree.ChildNodeIDs[1][nodeID]
            if left == 0 && right == 0 {
                break
            }
            if ds.Get(sampleID, tree.SplitVarIDs[nodeID]) <= tree.SplitValues[nodeID] {
                nodeID = left
            } else {
                nodeID = right
            }
        }
    }
    for nodeID := 0; nodeID < n; nodeID++ {
        left := tree.ChildNodeIDs[0][nodeID]
        right := tree.ChildNodeIDs[1][nodeID]
        if left == 0 && right == 0 {
            continue
        }
        if reach[nodeID] != reach[left]+reach[right] {
            t.Fatalf("node %d reached by %d samples, children by %d+%d", nodeID, reach[nodeID], reach[left], reach[right])
        }
    }
}

func TestOOBAccuracy(t *testing.T) {
    ds := stepDataset(t)
    f := NewForest(ds, 1)
    f.NumTrees = 1
    f.NumThreads = 1
    f.Sampler = holdOutLast{}
    if err := f.Init(); err != nil {
        t.Fatal(err)
    }
    f.Grow()

    // In-bag x = 1, 1, 2 splits at 1; the held-out sample (x=2, class 1)
    // routes to the class-1 leaf.
    if acc := f.Trees[0].OOBAccuracy(); acc != 1 {
        t.Fatalf("OOB accuracy = %v, want 1", acc)
    }

    // Without OOB samples the diagnostic reports zero.
    g := NewForest(ds, 1)
    g.NumTrees = 1
    g.NumThreads = 1
    g.Sampler = allInBag{}
    if err := g.Init(); err != nil {
        t.Fatal(err)
    }
    g.Grow()
    if acc := g.Trees[0].OOBAccuracy(); acc != 0 {
        t.Fatalf("OOB accuracy without OOB samples = %v, want 0", acc)
    }
}

func TestGiniImportanceAccumulates(t *testing.T) {
    ds := stepDataset(t)
    f := NewForest(ds, 1)
    f.NumTrees = 1
    f.NumThreads = 1
    f.MinNodeSize = 1
    f.Sampler = allInBag{}
    f.ImportanceMode = ImportanceGini
    if err := f.Init(); err != nil {
        t.Fatal(err)
    }
    f.Grow()

    // Root: counts (2,2), sumNode = 8, decrease = 4/2 + 4/2 = 4,
    // bestGini = 4 - 8/4 = 2.
    if got := f.VariableImportance[0]; got != 2 {
        t.Fatalf("importance = %v, want 2", got)
    }
}

package models

import (
    "bufio"
    "encoding/binary"
    "errors"
    "fmt"
    "io"
    "math/rand"
    "os"
)

// treeTypeClassification tags the binary model file; loading anything
// else fails.
const treeTypeClassification int32 = 1

// SaveToFile writes the forest in its fixed little-endian layout:
// variable count, tree-type tag, class values, then per tree the child
// node IDs (nested, length-prefixed), split variable IDs and split
// values. The file carries no tree count; readers consume tree records
// until EOF.
func (f *Forest) SaveToFile(path string) error {
    file, err := os.Create(path)
    if err != nil {
        return fmt.Errorf("could not write to forest file %s: %w", path, err)
    }
    defer file.Close()

    w := bufio.NewWriter(file)
    if err := binary.Write(w, binary.LittleEndian, uint64(f.numVariables)); err != nil {
        return err
    }
    if err := binary.Write(w, binary.LittleEndian, treeTypeClassification); err != nil {
        return err
    }
    if err := writeDoubleSlice(w, f.ClassValues); err != nil {
        return err
    }
    for _, tree := range f.Trees {
        if err := writeUintSlice2D(w, tree.ChildNodeIDs[:]); err != nil {
            return err
        }
        if err := writeUintSlice(w, tree.SplitVarIDs); err != nil {
            return err
        }
        if err := writeDoubleSlice(w, tree.SplitValues); err != nil {
            return err
        }
    }
    return w.Flush()
}

// LoadForest reads a saved forest. numVariables is the variable count of
// the dataset the model will be applied to (0 when unknown): when the
// saved model knows more variables than the current data, split variable
// IDs at or past the dependent variable's old position shift down by
// one, the response column being the one assumed missing.
func LoadForest(path string, numVariables, dependentVarID int) (*Forest, error) {
    file, err := os.Open(path)
    if err != nil {
        return nil, fmt.Errorf("could not read forest file %s: %w", path, err)
    }
    defer file.Close()
    info, err := file.Stat()
    if err != nil {
        return nil, fmt.Errorf("could not stat forest file %s: %w", path, err)
    }
    // Every element behind a length prefix occupies 8 bytes, so no valid
    // prefix can exceed the file size divided by 8. Keeps a corrupted
    // header from demanding an absurd allocation.
    maxLen := uint64(info.Size()) / 8
    r := bufio.NewReader(file)

    var numVariablesSaved uint64
    if err := binary.Read(r, binary.LittleEndian, &numVariablesSaved); err != nil {
        return nil, fmt.Errorf("forest file %s: %w", path, err)
    }
    var treeType int32
    if err := binary.Read(r, binary.LittleEndian, &treeType); err != nil {
        return nil, fmt.Errorf("forest file %s: %w", path, err)
    }
    if treeType != treeTypeClassification {
        return nil, fmt.Errorf("wrong tree type %d: loaded file is not a classification forest", treeType)
    }
    classValues, err := readDoubleSlice(r, maxLen)
    if err != nil {
        return nil, fmt.Errorf("forest file %s: %w", path, err)
    }

    f := &Forest{
        DependentVarID: dependentVarID,
        ClassValues:    classValues,
        numVariables:   int(numVariablesSaved),
        rng:            rand.New(rand.NewSource(0)),
    }
    if numVariables > 0 {
        f.numVariables = numVariables
    }

    for {
        childNodeIDs, err := readUintSlice2D(r, maxLen)
        if errors.Is(err, io.EOF) {
            break
        }
        if err != nil {
            return nil, fmt.Errorf("forest file %s: %w", path, err)
        }
        if len(childNodeIDs) != 2 {
            return nil, fmt.Errorf("forest file %s: tree has %d child arrays, want 2", path, len(childNodeIDs))
        }
        splitVarIDs, err := readUintSlice(r, maxLen)
        if err != nil {
            return nil, fmt.Errorf("forest file %s: %w", path, err)
        }
        splitValues, err := readDoubleSlice(r, maxLen)
        if err != nil {
            return nil, fmt.Errorf("forest file %s: %w", path, err)
        }

        if numVariables > 0 && int(numVariablesSaved) > numVariables {
            for i, varID := range splitVarIDs {
                if varID >= dependentVarID {
                    splitVarIDs[i] = varID - 1
                }
            }
        }

        var children [2][]int
        children[0], children[1] = childNodeIDs[0], childNodeIDs[1]
        f.Trees = append(f.Trees, loadedTree(children, splitVarIDs, splitValues, f.ClassValues))
    }
    if len(f.Trees) == 0 {
        return nil, fmt.Errorf("forest file %s holds no trees", path)
    }
    f.NumTrees = len(f.Trees)
    return f, nil
}

func writeDoubleSlice(w io.Writer, values []float64) error {
    if err := binary.Write(w, binary.LittleEndian, uint64(len(values))); err != nil {
        return err
    }
    return binary.Write(w, binary.LittleEndian, values)
}

func readDoubleSlice(r io.Reader, maxLen uint64) ([]float64, error) {
    n, err := readLength(r, maxLen)
    if err != nil {
        return nil, err
    }
    values := make([]float64, n)
    if err := binary.Read(r, binary.LittleEndian, values); err != nil {
        return nil, unexpected(err)
    }
    return values, nil
}

func writeUintSlice(w io.Writer, values []int) error {
    if err := binary.Write(w, binary.LittleEndian, uint64(len(values))); err != nil {
        return err
    }
    for _, v := range values {
        if err := binary.Write(w, binary.LittleEndian, uint64(v)); err != nil {
            return err
        }
    }
    return nil
}

func readUintSlice(r io.Reader, maxLen uint64) ([]int, error) {
    n, err := readLength(r, maxLen)
    if err != nil {
        return nil, err
    }
    values := make([]int, n)
    for i := range values {
        var v uint64
        if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
            return nil, unexpected(err)
        }
        values[i] = int(v)
    }
    return values, nil
}

func writeUintSlice2D(w io.Writer, slices [][]int) error {
    if err := binary.Write(w, binary.LittleEndian, uint64(len(slices))); err != nil {
        return err
    }
    for _, s := range slices {
        if err := writeUintSlice(w, s); err != nil {
            return err
        }
    }
    return nil
}

func readUintSlice2D(r io.Reader, maxLen uint64) ([][]int, error) {
    n, err := readLength(r, maxLen)
    if err != nil {
        return nil, err
    }
    slices := make([][]int, n)
    for i := range slices {
        s, err := readUintSlice(r, maxLen)
        if err != nil {
            return nil, unexpected(err)
        }
        slices[i] = s
    }
    return slices, nil
}

// readLength reads a length prefix and rejects values no file of the
// observed size could back.
func readLength(r io.Reader, maxLen uint64) (uint64, error) {
    var n uint64
    if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
        return 0, err
    }
    if n > maxLen {
        return 0, fmt.Errorf("length prefix %d exceeds the %d elements the file could hold", n, maxLen)
    }
    return n, nil
}

// unexpected turns an EOF inside a record into ErrUnexpectedEOF, so only
// an EOF at a tree boundary reads as a clean end of file.
func unexpected(err error) error {
    if errors.Is(err, io.EOF) {
        return io.ErrUnexpectedEOF
    }
    return err
}

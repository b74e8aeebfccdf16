package models

type ImportanceMode int

const (
    ImportanceNone ImportanceMode = iota
    ImportanceGini
)

// buildImportanceIndex maps a variable ID to its slot in the importance
// accumulator, skipping variables that are never split on. Built once
// per forest; entries for no-split variables are -1.
func buildImportanceIndex(numVariables int, noSplitVarIDs []int) []int {
    idx := make([]int, numVariables)
    for varID := 0; varID < numVariables; varID++ {
        shifted := varID
        skip := false
        for _, s := range noSplitVarIDs {
            if varID == s {
                skip = true
            }
            if varID >= s {
                shifted--
            }
        }
        if skip {
            idx[varID] = -1
        } else {
            idx[varID] = shifted
        }
    }
    return idx
}
